package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a missing or expired key.
	ErrNotFound = errors.New("cache: key not found")

	// ErrClosed is returned by every operation once the client or handle is closed.
	ErrClosed = errors.New("cache: connection closed")

	// ErrInvalidTTL rejects negative expirations.
	ErrInvalidTTL = errors.New("cache: invalid TTL")
)

// ConfigError rejects a configuration while resolving the topology or building
// the connection options. Field is the property path, e.g. "redisson.mastername".
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	msg := "cache config: " + e.Field + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError. err may be nil.
func NewConfigError(field, message string, err error) *ConfigError {
	return &ConfigError{Field: field, Message: message, Err: err}
}

// ConnectionError reports a node that could not be reached or identified.
// Op is the command or phase ("dial", "ping", "role") and Address the node, or a
// comma-separated list when the whole topology failed.
type ConnectionError struct {
	Op      string
	Address string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cache connection: %s %s: %v", e.Op, e.Address, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func NewConnectionError(op, address string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Address: address, Err: err}
}

// OperationError wraps a failed command against a single key.
type OperationError struct {
	Op  string
	Key string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

func NewOperationError(op, key string, err error) *OperationError {
	return &OperationError{Op: op, Key: key, Err: err}
}

// CodecError reports a key or value that could not be encoded or decoded.
// The connection stays usable.
type CodecError struct {
	Op    string // encode or decode
	Key   string
	Codec string
	Err   error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("cache %s %s %q: %v", e.Codec, e.Op, e.Key, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

func NewCodecError(op, key, codec string, err error) *CodecError {
	return &CodecError{Op: op, Key: key, Codec: codec, Err: err}
}
