package dsl

import (
	"context"
	"strconv"

	dynaskema "github.com/reoring/dynaskema"
	js "github.com/reoring/dynaskema/jsonschema"
)

// ArraySchema validates a sequence whose elements all match elem.
type ArraySchema[E any] struct {
	elem dynaskema.Schema[E]
}

// Array returns an array schema with the given element schema.
func Array[E any](elem dynaskema.Schema[E]) *ArraySchema[E] {
	return &ArraySchema[E]{elem: elem}
}

// ArrayOf adapts Array[E] to AnyAdapter for use in object builders.
// Example: Field("items", dsl.ArrayOf(itemModel))
func ArrayOf[E any](elem dynaskema.Schema[E]) AnyAdapter {
	return Adapt[[]E](Array(elem))
}

// Elem returns the element schema.
func (a *ArraySchema[E]) Elem() dynaskema.Schema[E] { return a.elem }

func (a *ArraySchema[E]) Parse(ctx context.Context, v any) ([]E, error) {
	switch src := v.(type) {
	case []E:
		if err := a.ValidateValue(ctx, src); err != nil {
			return nil, err
		}
		return append([]E(nil), src...), nil
	case []any:
		res := make([]E, 0, len(src))
		var iss dynaskema.Issues
		for i := range src {
			ev, err := a.elem.Parse(ctx, src[i])
			if err != nil {
				iss = dynaskema.AppendIssues(iss, issuesFromErr("/"+strconv.Itoa(i), err)...)
				if dynaskema.IsFailFast(ctx) {
					return nil, iss
				}
				continue
			}
			res = append(res, ev)
		}
		if len(iss) > 0 {
			return nil, iss
		}
		return res, nil
	default:
		return nil, invalidType("array")
	}
}

func (a *ArraySchema[E]) Validate(ctx context.Context, v any) error {
	_, err := a.Parse(ctx, v)
	return err
}

func (a *ArraySchema[E]) ValidateValue(ctx context.Context, v []E) error {
	for i := range v {
		if err := a.elem.ValidateValue(ctx, v[i]); err != nil {
			return issuesFromErr("/"+strconv.Itoa(i), err)
		}
	}
	return nil
}

func (a *ArraySchema[E]) JSONSchema() (*js.Schema, error) {
	return a.jsonSchemaCtx(newExportCtx())
}

func (a *ArraySchema[E]) jsonSchemaCtx(c *exportCtx) (*js.Schema, error) {
	items, err := exportSchema(c, a.elem)
	if err != nil {
		return nil, err
	}
	return &js.Schema{Type: "array", Items: items}, nil
}

// ArrayAny returns a sequence schema that accepts any elements unchanged.
func ArrayAny() dynaskema.Schema[[]any] { return anyArraySchema{} }

// ArrayAnyField is the AnyAdapter form of ArrayAny.
func ArrayAnyField() AnyAdapter { return Adapt(ArrayAny()) }

type anyArraySchema struct{}

func (anyArraySchema) Parse(_ context.Context, v any) ([]any, error) {
	src, ok := v.([]any)
	if !ok {
		return nil, invalidType("array")
	}
	return append([]any{}, src...), nil
}
func (s anyArraySchema) Validate(ctx context.Context, v any) error {
	_, err := s.Parse(ctx, v)
	return err
}
func (anyArraySchema) ValidateValue(context.Context, []any) error { return nil }
func (anyArraySchema) JSONSchema() (*js.Schema, error)            { return &js.Schema{Type: "array"}, nil }
