package cache

import (
	"context"
	"errors"
	"time"

	"github.com/gaborage/redisbridge/codec"
)

// Store is the byte-level subset of Cache a Template writes through.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Template is a typed key/value view over a Store. Keys go through the key codec and
// values through the value codec, in both directions, so data written by a Template
// can only be read back by a Template configured with the same codecs.
//
// A Template is safe for concurrent use when its Store and codecs are.
type Template[V any] struct {
	store      Store
	keyCodec   codec.Codec
	valueCodec codec.Codec
}

// NewTemplate creates a Template over store.
func NewTemplate[V any](store Store, keyCodec, valueCodec codec.Codec) *Template[V] {
	return &Template[V]{
		store:      store,
		keyCodec:   keyCodec,
		valueCodec: valueCodec,
	}
}

// KeyCodec returns the identifier of the key codec.
func (t *Template[V]) KeyCodec() string { return t.keyCodec.Name() }

// ValueCodec returns the identifier of the value codec.
func (t *Template[V]) ValueCodec() string { return t.valueCodec.Name() }

// Get reads and decodes the value stored under key.
// A missing key returns the zero value, false and a nil error.
// Stored bytes the value codec cannot decode return a *CodecError.
func (t *Template[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	storeKey, err := t.encodeKey(key)
	if err != nil {
		return zero, false, err
	}

	data, err := t.store.Get(ctx, storeKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}

	var value V
	if err := t.valueCodec.Unmarshal(data, &value); err != nil {
		return zero, false, NewCodecError(OpDecode, key, t.valueCodec.Name(), err)
	}
	return value, true, nil
}

// Put encodes value and stores it under key. ttl is passed to the store unchanged;
// zero means no expiration.
func (t *Template[V]) Put(ctx context.Context, key string, value V, ttl time.Duration) error {
	storeKey, err := t.encodeKey(key)
	if err != nil {
		return err
	}

	data, err := t.valueCodec.Marshal(value)
	if err != nil {
		return NewCodecError(OpEncode, key, t.valueCodec.Name(), err)
	}

	return t.store.Set(ctx, storeKey, data, ttl)
}

// Delete removes key. Deleting a missing key is not an error.
func (t *Template[V]) Delete(ctx context.Context, key string) error {
	storeKey, err := t.encodeKey(key)
	if err != nil {
		return err
	}
	return t.store.Delete(ctx, storeKey)
}

func (t *Template[V]) encodeKey(key string) (string, error) {
	data, err := t.keyCodec.Marshal(key)
	if err != nil {
		return "", NewCodecError(OpEncode, key, t.keyCodec.Name(), err)
	}
	return string(data), nil
}
