package bookingv1

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Encode превращает значение с JSON-тегами в Struct; nil даёт пустой Struct.
func Encode(v any) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	if v == nil {
		return out, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}

// Decode заполняет значение с JSON-тегами из Struct.
func Decode(in *structpb.Struct, v any) error {
	if in == nil {
		in = &structpb.Struct{}
	}
	raw, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
