package persistence

import (
	"bytes"
	"encoding/gob"
)

func init() {
	// Common composite payload shapes used in orchestration inputs and
	// outputs. Application structs must be registered by the caller, e.g.
	// gob.Register(MyPayload{}) in an init function.
	gob.Register([]string{})
	gob.Register([]any{})
	gob.Register(map[string]any{})
}

// EncodeValue serializes arbitrary Go values using encoding/gob.
// Callers must ensure that values are gob-encodable.
func EncodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	// Important: encode as interface{} so we can safely decode into interface{}.
	iv := v
	if err := enc.Encode(&iv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeValue deserializes a value previously written by EncodeValue.
// Empty input decodes to nil.
func DecodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var iv any
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&iv); err != nil {
		return nil, err
	}
	return iv, nil
}
