package builder

import dynaskema "github.com/reoring/dynaskema"

// ResolveType maps a primitive JSON Schema type keyword to its runtime type.
// "object" is not a primitive: nested models must be declared through $ref.
func ResolveType(keyword string) (dynaskema.PrimitiveType, error) {
	switch keyword {
	case "string":
		return dynaskema.PrimitiveText, nil
	case "integer":
		return dynaskema.PrimitiveInt, nil
	case "number", "float":
		return dynaskema.PrimitiveFloat, nil
	case "boolean":
		return dynaskema.PrimitiveBool, nil
	case "array":
		return dynaskema.PrimitiveSequence, nil
	}
	return dynaskema.PrimitiveInvalid, &UnknownTypeError{Keyword: keyword}
}

// FieldPolicy returns the default policy of a field of type t.
//
//   - required fields have no default
//   - optional nested models default to null
//   - optional primitives and sequences default to their zero value
func FieldPolicy(t dynaskema.TargetType, optional bool) dynaskema.DefaultPolicy {
	if !optional {
		return dynaskema.DefaultNone
	}
	if t.Kind == dynaskema.KindModel {
		return dynaskema.DefaultNull
	}
	return dynaskema.DefaultZero
}
