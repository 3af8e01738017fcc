package dynaskema

import "strings"

// PrimitiveType is the runtime type bound to a JSON Schema primitive keyword.
type PrimitiveType int

const (
	PrimitiveInvalid PrimitiveType = iota
	PrimitiveText
	PrimitiveInt
	PrimitiveFloat
	PrimitiveBool
	PrimitiveSequence
)

func (p PrimitiveType) String() string {
	switch p {
	case PrimitiveText:
		return "string"
	case PrimitiveInt:
		return "int64"
	case PrimitiveFloat:
		return "float64"
	case PrimitiveBool:
		return "bool"
	case PrimitiveSequence:
		return "[]any"
	default:
		return "invalid"
	}
}

// TypeKind tags the shape of a TargetType.
type TypeKind int

const (
	KindPrimitive TypeKind = iota
	KindModel
	KindSequence
)

// TargetType is the validation/typing tag of a field. Exactly one of
// Primitive, Model or Elem is meaningful, selected by Kind.
type TargetType struct {
	Kind      TypeKind
	Primitive PrimitiveType    // KindPrimitive
	Model     *ModelDefinition // KindModel
	Elem      *TargetType      // KindSequence; nil means elements are not typed
}

// Primitive returns a primitive target type. PrimitiveSequence maps to an
// untyped sequence.
func Primitive(p PrimitiveType) TargetType {
	if p == PrimitiveSequence {
		return SequenceOf(nil)
	}
	return TargetType{Kind: KindPrimitive, Primitive: p}
}

// NestedModel returns a target type bound to a nested model definition.
func NestedModel(def *ModelDefinition) TargetType {
	return TargetType{Kind: KindModel, Model: def}
}

// SequenceOf returns a sequence target type. A nil elem yields a generic sequence.
func SequenceOf(elem *TargetType) TargetType {
	return TargetType{Kind: KindSequence, Elem: elem}
}

func (t TargetType) String() string {
	switch t.Kind {
	case KindModel:
		if t.Model == nil {
			return "<nil model>"
		}
		return t.Model.Name
	case KindSequence:
		if t.Elem == nil {
			return "[]any"
		}
		return "[]" + t.Elem.String()
	default:
		return t.Primitive.String()
	}
}

// DefaultPolicy decides what an optional field holds when the input omits it.
type DefaultPolicy int

const (
	// DefaultNone marks a required field: the input must supply it.
	DefaultNone DefaultPolicy = iota
	// DefaultZero applies the zero value of the target type.
	DefaultZero
	// DefaultNull leaves the field null (used for nested models).
	DefaultNull
)

func (p DefaultPolicy) String() string {
	switch p {
	case DefaultZero:
		return "zero"
	case DefaultNull:
		return "null"
	default:
		return "none"
	}
}

// Value returns a fresh default for t. ok is false for DefaultNone.
// Sequences get a new empty slice on every call.
func (p DefaultPolicy) Value(t TargetType) (v any, ok bool) {
	switch p {
	case DefaultNull:
		return nil, true
	case DefaultZero:
		switch t.Kind {
		case KindSequence:
			return []any{}, true
		case KindModel:
			return nil, true
		}
		switch t.Primitive {
		case PrimitiveText:
			return "", true
		case PrimitiveInt:
			return int64(0), true
		case PrimitiveFloat:
			return float64(0), true
		case PrimitiveBool:
			return false, true
		}
		return nil, true
	default:
		return nil, false
	}
}

// ResolvedField is one field of a ModelDefinition.
type ResolvedField struct {
	Name     string
	Type     TargetType
	Optional bool
	Default  DefaultPolicy
}

// ModelDefinition is an ordered, typed, optionality-annotated field list
// describing a runtime data container. Field order is declaration order.
type ModelDefinition struct {
	Name   string
	Fields []ResolvedField
}

// Field looks up a field by name.
func (d *ModelDefinition) Field(name string) (ResolvedField, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return ResolvedField{}, false
}

// FieldNames returns field names in declaration order.
func (d *ModelDefinition) FieldNames() []string {
	out := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		out[i] = f.Name
	}
	return out
}

// String renders the definition as an indented tree, nested models inline.
// A nested model rendered earlier in the tree is printed by name only.
func (d *ModelDefinition) String() string {
	b := &strings.Builder{}
	d.render(b, 0, map[*ModelDefinition]bool{})
	return b.String()
}

func (d *ModelDefinition) render(b *strings.Builder, depth int, seen map[*ModelDefinition]bool) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent + d.Name + "\n")
	seen[d] = true
	for _, f := range d.Fields {
		b.WriteString(indent + "  " + f.Name + ": " + f.Type.String())
		if f.Optional {
			b.WriteString(" (optional, default=" + f.Default.String() + ")")
		}
		b.WriteString("\n")
		nested := f.Type.modelOf()
		switch {
		case nested == nil:
		case seen[nested]:
			b.WriteString(indent + "    " + nested.Name + " (see above)\n")
		default:
			nested.render(b, depth+2, seen)
		}
	}
}

// modelOf returns the nested model of a model or sequence-of-model type.
func (t TargetType) modelOf() *ModelDefinition {
	switch t.Kind {
	case KindModel:
		return t.Model
	case KindSequence:
		if t.Elem != nil {
			return t.Elem.modelOf()
		}
	}
	return nil
}
