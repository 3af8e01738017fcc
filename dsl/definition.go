package dsl

import (
	"fmt"

	dynaskema "github.com/reoring/dynaskema"
)

// Base is the shared behavior every model materialized from a definition is
// constructed against. Extend runs after the fields are registered and
// before Build, so it can change the unknown-key policy or add refinements.
type Base interface {
	Extend(b *ObjectBuilder)
}

// BaseFunc adapts a function to Base.
type BaseFunc func(b *ObjectBuilder)

func (f BaseFunc) Extend(b *ObjectBuilder) { f(b) }

// StrictBase rejects undeclared keys on every generated model.
var StrictBase Base = BaseFunc(func(b *ObjectBuilder) { b.UnknownStrict() })

// FromDefinition materializes def into a Model. Nested definitions are
// materialized the same way and share base; a nested definition reached
// through several fields is materialized once. Without a base, generated
// models strip undeclared keys.
func FromDefinition(def *dynaskema.ModelDefinition, base Base) (*Model, error) {
	return fromDefinition(def, base, map[*dynaskema.ModelDefinition]*Model{})
}

func fromDefinition(def *dynaskema.ModelDefinition, base Base, seen map[*dynaskema.ModelDefinition]*Model) (*Model, error) {
	if def == nil {
		return nil, fmt.Errorf("dsl: nil model definition")
	}
	if m, ok := seen[def]; ok {
		return m, nil
	}
	b := Object().Name(def.Name).UnknownStrip()
	b.def = def
	for _, f := range def.Fields {
		ad, err := adapterFor(f.Type, base, seen)
		if err != nil {
			return nil, fmt.Errorf("dsl: %s.%s: %w", def.Name, f.Name, err)
		}
		if !f.Optional {
			b.Field(f.Name, ad).Required()
			continue
		}
		policy, typ := f.Default, f.Type
		step := b.Field(f.Name, Nullable(ad))
		if _, ok := policy.Value(typ); ok {
			step.DefaultFunc(func() any {
				v, _ := policy.Value(typ)
				return v
			})
		}
	}
	if base != nil {
		base.Extend(b)
	}
	m, err := b.Build()
	if err != nil {
		return nil, err
	}
	seen[def] = m
	return m, nil
}

func adapterFor(t dynaskema.TargetType, base Base, seen map[*dynaskema.ModelDefinition]*Model) (AnyAdapter, error) {
	switch t.Kind {
	case dynaskema.KindModel:
		m, err := fromDefinition(t.Model, base, seen)
		if err != nil {
			return AnyAdapter{}, err
		}
		return Adapt[*dynaskema.Record](m), nil
	case dynaskema.KindSequence:
		if t.Elem == nil {
			return ArrayAnyField(), nil
		}
		if t.Elem.Kind == dynaskema.KindModel {
			m, err := fromDefinition(t.Elem.Model, base, seen)
			if err != nil {
				return AnyAdapter{}, err
			}
			return ArrayOf[*dynaskema.Record](m), nil
		}
		return AnyAdapter{}, fmt.Errorf("unsupported sequence element %s", t.Elem)
	case dynaskema.KindPrimitive:
		switch t.Primitive {
		case dynaskema.PrimitiveText:
			return StringField(), nil
		case dynaskema.PrimitiveInt:
			return IntField(), nil
		case dynaskema.PrimitiveFloat:
			return FloatField(), nil
		case dynaskema.PrimitiveBool:
			return BoolField(), nil
		case dynaskema.PrimitiveSequence:
			return ArrayAnyField(), nil
		}
	}
	return AnyAdapter{}, fmt.Errorf("unsupported target type %s", t)
}

// Bases applies each base in order.
func Bases(bases ...Base) Base {
	return BaseFunc(func(b *ObjectBuilder) {
		for _, base := range bases {
			if base != nil {
				base.Extend(b)
			}
		}
	})
}
