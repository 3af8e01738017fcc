package dsl

import (
	"context"

	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/i18n"
	js "github.com/reoring/dynaskema/jsonschema"
)

// AnyAdapter adapts Schema[T] to an any-typed field wrapper for the object
// builder. It keeps the original schema for default application and JSON
// Schema export.
type AnyAdapter struct {
	parse         func(context.Context, any) (any, error)
	validateValue func(context.Context, any) error
	applyDefault  func(context.Context) (any, error)
	export        func(*exportCtx) (*js.Schema, error)
	orig          any
}

// Adapt wraps a strongly typed Schema[T] as an AnyAdapter.
func Adapt[T any](s dynaskema.Schema[T]) AnyAdapter {
	return AnyAdapter{
		parse: func(ctx context.Context, v any) (any, error) { return s.Parse(ctx, v) },
		validateValue: func(ctx context.Context, v any) error {
			tv, ok := v.(T)
			if !ok {
				return dynaskema.Issues{dynaskema.Issue{Path: "/", Code: dynaskema.CodeInvalidType, Message: i18n.T(dynaskema.CodeInvalidType, nil), Hint: "invalid field type"}}
			}
			return s.ValidateValue(ctx, tv)
		},
		export: func(c *exportCtx) (*js.Schema, error) { return exportSchema(c, s) },
		orig:   s,
	}
}

// Orig returns the underlying Schema[T] used to create this adapter.
func (ad AnyAdapter) Orig() any { return ad.orig }

// Nullable wraps an AnyAdapter to accept nulls (JSON null) for both parse and validate.
// When the input value is nil, parsing succeeds and returns nil.
func Nullable(ad AnyAdapter) AnyAdapter {
	prevParse := ad.parse
	prevValidate := ad.validateValue
	out := ad
	out.parse = func(ctx context.Context, v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		return prevParse(ctx, v)
	}
	out.validateValue = func(ctx context.Context, v any) error {
		if v == nil {
			return nil
		}
		return prevValidate(ctx, v)
	}
	return out
}

// Nullable enables fluent chaining: dsl.StringField().Nullable()
func (ad AnyAdapter) Nullable() AnyAdapter { return Nullable(ad) }

func invalidType(expected string) dynaskema.Issues {
	return dynaskema.Issues{dynaskema.Issue{
		Path:    "/",
		Code:    dynaskema.CodeInvalidType,
		Message: i18n.T(dynaskema.CodeInvalidType, map[string]string{"expected": expected}),
		Hint:    "expected " + expected,
	}}
}

// issuesFromErr converts an error into Issues rebased under path, wrapping
// non-Issues with CodeParseError.
func issuesFromErr(path string, err error) dynaskema.Issues {
	if err == nil {
		return nil
	}
	if i2, ok := dynaskema.AsIssues(err); ok {
		return i2.Rebase(path)
	}
	return dynaskema.Issues{dynaskema.Issue{Path: path, Code: dynaskema.CodeParseError, Message: err.Error(), Cause: err}}
}
