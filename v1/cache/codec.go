package cache

import (
	stdErrors "errors"

	"github.com/goccy/go-json"
)

// Codec defines methods for encoding and decoding values.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec implements Codec using goccy/go-json, which is wire compatible
// with encoding/json.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// StringCodec stores strings verbatim so values stay readable from
// redis-cli. It fails if the value is not a string.
type StringCodec struct{}

func (StringCodec) Marshal(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	return nil, stdErrors.New("StringCodec: value is not string")
}

func (StringCodec) Unmarshal(data []byte, v any) error {
	if ptr, ok := v.(*string); ok {
		*ptr = string(data)
		return nil
	}
	return stdErrors.New("StringCodec: v is not *string")
}
