package dsl

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	dynaskema "github.com/reoring/dynaskema"
	js "github.com/reoring/dynaskema/jsonschema"
)

// String returns the text schema.
func String() dynaskema.Schema[string] { return stringSchema{} }

// Int returns the 64-bit integer schema. It accepts Go integers, integral
// floats and integral json.Number values.
func Int() dynaskema.Schema[int64] { return intSchema{} }

// Float returns the floating point schema. It accepts any Go number or json.Number.
func Float() dynaskema.Schema[float64] { return floatSchema{} }

// Bool returns the boolean schema.
func Bool() dynaskema.Schema[bool] { return boolSchema{} }

// StringField, IntField, FloatField and BoolField are AnyAdapter shorthands
// for the object builder.
func StringField() AnyAdapter { return Adapt(String()) }
func IntField() AnyAdapter    { return Adapt(Int()) }
func FloatField() AnyAdapter  { return Adapt(Float()) }
func BoolField() AnyAdapter   { return Adapt(Bool()) }

type stringSchema struct{}

func (stringSchema) Parse(_ context.Context, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", invalidType("string")
	}
	return s, nil
}
func (s stringSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}
func (stringSchema) ValidateValue(context.Context, string) error { return nil }
func (stringSchema) JSONSchema() (*js.Schema, error)             { return &js.Schema{Type: "string"}, nil }

type intSchema struct{}

func (intSchema) Parse(_ context.Context, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, invalidType("integer")
		}
		return floatToInt(f)
	}
	return 0, invalidType("integer")
}
func (s intSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}
func (intSchema) ValidateValue(context.Context, int64) error { return nil }
func (intSchema) JSONSchema() (*js.Schema, error)            { return &js.Schema{Type: "integer"}, nil }

func uintToInt(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, invalidType("integer")
	}
	return int64(u), nil
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, invalidType("integer")
	}
	return int64(f), nil
}

type floatSchema struct{}

func (floatSchema) Parse(_ context.Context, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int8:
		return float64(n), nil
	case int16:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint8:
		return float64(n), nil
	case uint16:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, invalidType("number")
		}
		return f, nil
	}
	return 0, invalidType("number")
}
func (s floatSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}
func (floatSchema) ValidateValue(context.Context, float64) error { return nil }
func (floatSchema) JSONSchema() (*js.Schema, error)              { return &js.Schema{Type: "number"}, nil }

type boolSchema struct{}

func (boolSchema) Parse(_ context.Context, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, invalidType("boolean")
	}
	return b, nil
}
func (s boolSchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}
func (boolSchema) ValidateValue(context.Context, bool) error { return nil }
func (boolSchema) JSONSchema() (*js.Schema, error)           { return &js.Schema{Type: "boolean"}, nil }
