package dsl

import (
	"context"
	"errors"
	"fmt"

	dynaskema "github.com/reoring/dynaskema"
)

type objectField struct {
	name string
	ad   AnyAdapter
}

// ObjectBuilder assembles a Model field by field. Field order is the order
// of Field calls and is kept by parsing, encoding and export.
type ObjectBuilder struct {
	name          string
	fields        []objectField
	index         map[string]int
	required      map[string]struct{}
	unknownPolicy dynaskema.UnknownPolicy
	refines       []objRefine
	def           *dynaskema.ModelDefinition
	errs          []error
}

// FieldStep configures the field registered last.
type FieldStep struct {
	b    *ObjectBuilder
	name string
}

// Object creates a new object builder with safe defaults (UnknownStrict).
func Object() *ObjectBuilder {
	return &ObjectBuilder{
		index:         map[string]int{},
		required:      map[string]struct{}{},
		unknownPolicy: dynaskema.UnknownStrict,
	}
}

// Name sets the model name reported by records and export.
func (b *ObjectBuilder) Name(name string) *ObjectBuilder {
	b.name = name
	return b
}

// ModelName returns the name set so far.
func (b *ObjectBuilder) ModelName() string { return b.name }

// Field registers a field with its adapter. Registering an existing name
// replaces its adapter in place.
func (b *ObjectBuilder) Field(name string, ad AnyAdapter) *FieldStep {
	if ad.parse == nil {
		b.errs = append(b.errs, fmt.Errorf("dsl: field %q: zero AnyAdapter", name))
	}
	if i, ok := b.index[name]; ok {
		b.fields[i].ad = ad
	} else {
		b.index[name] = len(b.fields)
		b.fields = append(b.fields, objectField{name: name, ad: ad})
	}
	return &FieldStep{b: b, name: name}
}

// Required marks the field as required and returns the builder.
func (f *FieldStep) Required() *ObjectBuilder {
	f.b.required[f.name] = struct{}{}
	return f.b
}

// Optional marks the field as optional (default) and returns the builder.
func (f *FieldStep) Optional() *ObjectBuilder {
	delete(f.b.required, f.name)
	return f.b
}

// Default sets a default for the current field. The value is parsed through
// the field schema each time it is applied.
func (f *FieldStep) Default(v any) *ObjectBuilder {
	return f.DefaultFunc(func() any { return v })
}

// DefaultFunc sets a default produced by fn each time the field is missing.
func (f *FieldStep) DefaultFunc(fn func() any) *ObjectBuilder {
	i := f.b.index[f.name]
	ad := f.b.fields[i].ad
	parse := ad.parse
	ad.applyDefault = func(ctx context.Context) (any, error) { return parse(ctx, fn()) }
	f.b.fields[i].ad = ad
	return f.b
}

func (f *FieldStep) Require(names ...string) *ObjectBuilder { return f.b.Require(names...) }
func (f *FieldStep) UnknownStrict() *ObjectBuilder          { return f.b.UnknownStrict() }
func (f *FieldStep) UnknownStrip() *ObjectBuilder           { return f.b.UnknownStrip() }
func (f *FieldStep) Refine(name string, fn func(context.Context, *dynaskema.Record) error) *ObjectBuilder {
	return f.b.Refine(name, fn)
}
func (f *FieldStep) Field(name string, ad AnyAdapter) *FieldStep { return f.b.Field(name, ad) }
func (f *FieldStep) Build() (*Model, error)                      { return f.b.Build() }
func (f *FieldStep) MustBuild() *Model                           { return f.b.MustBuild() }

// Require marks one or more fields as required.
func (b *ObjectBuilder) Require(names ...string) *ObjectBuilder {
	for _, n := range names {
		b.required[n] = struct{}{}
	}
	return b
}

// UnknownStrict rejects keys that are not declared fields.
func (b *ObjectBuilder) UnknownStrict() *ObjectBuilder {
	b.unknownPolicy = dynaskema.UnknownStrict
	return b
}

// UnknownStrip drops keys that are not declared fields.
func (b *ObjectBuilder) UnknownStrip() *ObjectBuilder {
	b.unknownPolicy = dynaskema.UnknownStrip
	return b
}

// Refine adds an object-level check executed after all fields parsed.
func (b *ObjectBuilder) Refine(name string, fn func(context.Context, *dynaskema.Record) error) *ObjectBuilder {
	if fn == nil {
		return b
	}
	b.refines = append(b.refines, objRefine{name: name, fn: fn})
	return b
}

// Build validates the builder and returns a Model.
func (b *ObjectBuilder) Build() (*Model, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	for n := range b.required {
		if _, ok := b.index[n]; !ok {
			return nil, fmt.Errorf("dsl: required field %q is not declared", n)
		}
	}
	fields := append([]objectField(nil), b.fields...)
	required := make(map[string]struct{}, len(b.required))
	for k := range b.required {
		required[k] = struct{}{}
	}
	index := make(map[string]int, len(b.index))
	for k, v := range b.index {
		index[k] = v
	}
	return &Model{
		name:          b.name,
		fields:        fields,
		index:         index,
		required:      required,
		unknownPolicy: b.unknownPolicy,
		refines:       append([]objRefine(nil), b.refines...),
		def:           b.def,
	}, nil
}

// MustBuild is like Build but panics on error.
func (b *ObjectBuilder) MustBuild() *Model {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

type objRefine struct {
	name string
	fn   func(context.Context, *dynaskema.Record) error
}
