// Package codec provides the key and value encoders used when values are written to
// and read back from the shared Redis handle.
//
// Codecs are selected by identifier through a static registry. The identifier chosen at
// startup is part of the stored-data contract: bytes written with one codec must be read
// with the same codec.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Built-in codec identifiers.
const (
	JSON    = "json"
	CBOR    = "cbor"
	MsgPack = "msgpack"
	String  = "string"
	Bytes   = "bytes"
)

var (
	// ErrUnknownCodec is returned by Lookup when no codec is registered under an identifier.
	ErrUnknownCodec = errors.New("codec: unknown identifier")

	// ErrUnsupportedType is returned when a codec cannot handle the Go type it was given.
	ErrUnsupportedType = errors.New("codec: unsupported type")
)

// Codec is a paired encode/decode strategy.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Name returns the canonical registry identifier of the codec.
	Name() string
	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes data into the value pointed to by v.
	Unmarshal(data []byte, v any) error
}

// Factory creates a codec instance.
type Factory func() Codec

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a codec factory under name and any aliases.
// Names are matched case-insensitively. Registering an existing name replaces it.
func Register(name string, factory Factory, aliases ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[normalize(name)] = factory
	for _, alias := range aliases {
		registry[normalize(alias)] = factory
	}
}

// Lookup resolves a codec identifier. Class-style names such as
// "org.redisson.codec.JsonJacksonCodec" only resolve when registered as aliases.
func Lookup(name string) (Codec, error) {
	key := normalize(name)
	if key == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrUnknownCodec)
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	if factory, ok := registry[key]; ok {
		return factory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// Names returns all registered identifiers, including aliases, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

//nolint:gochecknoinits // Built-in codecs are registered at package load time
func init() {
	Register(JSON, func() Codec { return jsonCodec{} },
		"JsonJacksonCodec", "org.redisson.codec.JsonJacksonCodec",
		"GenericFastJsonRedisSerializer", "com.alibaba.fastjson.support.spring.GenericFastJsonRedisSerializer",
		"GenericJackson2JsonRedisSerializer", "org.springframework.data.redis.serializer.GenericJackson2JsonRedisSerializer")
	Register(CBOR, func() Codec { return cborCodec{} },
		"CborJacksonCodec", "org.redisson.codec.CborJacksonCodec")
	Register(MsgPack, func() Codec { return msgpackCodec{} },
		"MsgPackJacksonCodec", "org.redisson.codec.MsgPackJacksonCodec")
	Register(String, func() Codec { return stringCodec{} },
		"StringCodec", "org.redisson.client.codec.StringCodec",
		"StringRedisSerializer", "org.springframework.data.redis.serializer.StringRedisSerializer")
	Register(Bytes, func() Codec { return bytesCodec{} },
		"ByteArrayCodec", "org.redisson.client.codec.ByteArrayCodec")
}
