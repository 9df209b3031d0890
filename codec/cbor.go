package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR encoding/decoding options configured for security and determinism.
var (
	// encMode sorts map keys canonically (same input → same bytes) and writes
	// timestamps as RFC3339 for cross-language readers.
	encMode cbor.EncMode

	// decMode bounds arrays, maps and nesting so hostile payloads cannot exhaust memory
	// or the stack.
	decMode cbor.DecMode
)

//nolint:gochecknoinits // Required for CBOR mode configuration at package load time
func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		MaxArrayElements: 10000,
		MaxMapPairs:      10000,
		MaxNestedLevels:  16,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoding mode: %v", err))
	}
}

type cborCodec struct{}

func (cborCodec) Name() string { return CBOR }

// Marshal serializes v to canonical CBOR.
//
// Struct tags are optional but shrink the encoding:
//   - `cbor:"1,keyasint"` - use integer keys
//   - `cbor:"-"` - skip field
//   - `cbor:"field_name,omitempty"` - omit zero values
func (cborCodec) Marshal(v any) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal failed: %w", err)
	}
	return data, nil
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cbor unmarshal failed: %w", err)
	}
	return nil
}
