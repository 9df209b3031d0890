package codec

import (
	"fmt"
	"unicode/utf8"
)

// stringCodec stores strings as their raw UTF-8 bytes. It is the default key codec.
type stringCodec struct{}

func (stringCodec) Name() string { return String }

func (stringCodec) Marshal(v any) ([]byte, error) {
	switch s := v.(type) {
	case string:
		return []byte(s), nil
	case *string:
		if s == nil {
			return nil, fmt.Errorf("%w: nil *string", ErrUnsupportedType)
		}
		return []byte(*s), nil
	case fmt.Stringer:
		return []byte(s.String()), nil
	default:
		return nil, fmt.Errorf("%w: string codec cannot encode %T", ErrUnsupportedType, v)
	}
}

// Unmarshal accepts *string, and *any which receives a string.
func (stringCodec) Unmarshal(data []byte, v any) error {
	var set func(string)
	switch target := v.(type) {
	case *string:
		if target != nil {
			set = func(s string) { *target = s }
		}
	case *any:
		if target != nil {
			set = func(s string) { *target = s }
		}
	}
	if set == nil {
		return fmt.Errorf("%w: string codec cannot decode into %T", ErrUnsupportedType, v)
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("string unmarshal failed: invalid UTF-8")
	}
	set(string(data))
	return nil
}

// bytesCodec passes byte slices through unchanged.
type bytesCodec struct{}

func (bytesCodec) Name() string { return Bytes }

func (bytesCodec) Marshal(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return append([]byte(nil), b...), nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("%w: bytes codec cannot encode %T", ErrUnsupportedType, v)
	}
}

// Unmarshal accepts *[]byte, and *any which receives a []byte.
func (bytesCodec) Unmarshal(data []byte, v any) error {
	switch target := v.(type) {
	case *[]byte:
		if target != nil {
			*target = append([]byte(nil), data...)
			return nil
		}
	case *any:
		if target != nil {
			*target = append([]byte(nil), data...)
			return nil
		}
	}
	return fmt.Errorf("%w: bytes codec cannot decode into %T", ErrUnsupportedType, v)
}
