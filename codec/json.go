package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type jsonCodec struct{}

func (jsonCodec) Name() string { return JSON }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json marshal failed: %w", err)
	}
	return data, nil
}

// Unmarshal rejects trailing data so a payload written by another codec is not
// silently accepted when it happens to start with a valid JSON token.
func (jsonCodec) Unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("json unmarshal failed: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("json unmarshal failed: trailing data after value")
	}
	return nil
}
