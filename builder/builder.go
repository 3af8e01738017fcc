// Package builder turns JSON Schema documents into model definitions and
// runtime models.
//
// Build walks the declared properties of a schema node in order, resolves
// $ref properties against a definitions table that is threaded unchanged
// through every recursive call, and decides per field whether it is
// optional and what it defaults to. Make additionally materializes the
// result through the dsl package.
//
// Supported property shapes:
//
//	{"type": "string" | "integer" | "number" | "boolean"}
//	{"$ref": "#/$defs/Name"}
//	{"type": "array", "items": {"$ref": "#/$defs/Name"}}
//	{"type": "array"}                       // untyped sequence
//
// Anything else fails with a typed error carrying the JSON Pointer of the
// offending node.
package builder

import (
	"fmt"
	"log/slog"
	"sort"

	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/dsl"
	js "github.com/reoring/dynaskema/jsonschema"
)

// compositionKeywords are recognized but not modeled; they only produce a warning.
var compositionKeywords = []string{"allOf", "anyOf", "oneOf", "not", "if", "then", "else"}

// state is the traversal state owned by a single Build call.
type state struct {
	opts  Options
	log   *slog.Logger
	stack []string // definitions currently being built
	built map[string]*dynaskema.ModelDefinition
}

// Build converts node into a ModelDefinition, resolving every $ref against
// defs. Neither node nor defs is modified. On error no partial definition is
// returned.
func Build(node *js.Schema, defs js.Definitions, opts Options) (*dynaskema.ModelDefinition, error) {
	opts = opts.withDefaults()
	if node == nil {
		return nil, &SchemaFormatError{Reason: "schema is null"}
	}
	name := node.Title
	if name == "" {
		name = opts.Name
	}
	st := &state{opts: opts, log: opts.Logger, built: map[string]*dynaskema.ModelDefinition{}}
	return build(name, node, defs, st, "")
}

// Make builds doc against its own definitions table and materializes the
// result with opts.Base.
func Make(doc *js.Schema, opts Options) (*dsl.Model, error) {
	opts = opts.withDefaults()
	def, err := Build(doc, DefinitionsFor(doc, opts.RefPrefix), opts)
	if err != nil {
		return nil, err
	}
	return dsl.FromDefinition(def, opts.Base)
}

// MakeFromBytes parses a JSON or YAML schema document and calls Make.
func MakeFromBytes(data []byte, opts Options) (*dsl.Model, error) {
	doc, err := js.Parse(data)
	if err != nil {
		return nil, err
	}
	return Make(doc, opts)
}

func build(name string, node *js.Schema, defs js.Definitions, st *state, path string) (*dynaskema.ModelDefinition, error) {
	if node.Properties == nil {
		return nil, &SchemaFormatError{Path: path, Reason: "missing properties"}
	}
	warnUnmodeled(st, node, path)

	required := make(map[string]struct{}, len(node.Required))
	for _, r := range node.Required {
		required[r] = struct{}{}
		if _, ok := node.Properties.Get(r); !ok {
			st.log.Warn("required names an undeclared property", "model", name, "property", r, "path", pointer(path))
		}
	}

	fields := make([]dynaskema.ResolvedField, 0, node.Properties.Len())
	for _, key := range node.Properties.Keys() {
		prop, _ := node.Properties.Get(key)
		t, err := resolveProperty(prop, defs, st, path+"/properties/"+dynaskema.EscapePointerToken(key))
		if err != nil {
			return nil, err
		}
		_, req := required[key]
		fields = append(fields, dynaskema.ResolvedField{
			Name:     key,
			Type:     t,
			Optional: !req,
			Default:  FieldPolicy(t, !req),
		})
	}
	return &dynaskema.ModelDefinition{Name: name, Fields: fields}, nil
}

func resolveProperty(prop *js.Schema, defs js.Definitions, st *state, path string) (dynaskema.TargetType, error) {
	if prop == nil {
		return dynaskema.TargetType{}, &SchemaFormatError{Path: path, Reason: "property schema is null"}
	}
	if _, ok := prop.Extra["type"]; ok {
		return dynaskema.TargetType{}, &SchemaFormatError{Path: path + "/type", Reason: "type must be a single string"}
	}
	if prop.Ref != "" {
		if prop.Type != "" {
			return dynaskema.TargetType{}, &SchemaFormatError{Path: path, Reason: fmt.Sprintf("$ref cannot be combined with type %q", prop.Type)}
		}
		def, err := nested(prop.Ref, defs, st, path)
		if err != nil {
			return dynaskema.TargetType{}, err
		}
		return dynaskema.NestedModel(def), nil
	}
	switch prop.Type {
	case "":
		return dynaskema.TargetType{}, &UnknownTypeError{Path: path}
	case "array":
		return resolveArray(prop, defs, st, path)
	}
	p, err := ResolveType(prop.Type)
	if err != nil {
		return dynaskema.TargetType{}, &UnknownTypeError{Path: path, Keyword: prop.Type}
	}
	return dynaskema.Primitive(p), nil
}

// resolveArray distinguishes a list of nested models from an untyped sequence.
func resolveArray(prop *js.Schema, defs js.Definitions, st *state, path string) (dynaskema.TargetType, error) {
	if prop.Items == nil {
		if _, ok := prop.Extra["items"]; ok {
			return dynaskema.TargetType{}, &SchemaFormatError{Path: path + "/items", Reason: "items must be a single schema object"}
		}
		return dynaskema.SequenceOf(nil), nil
	}
	if prop.Items.Ref == "" {
		return dynaskema.SequenceOf(nil), nil
	}
	ipath := path + "/items"
	if prop.Items.Type != "" {
		return dynaskema.TargetType{}, &SchemaFormatError{Path: ipath, Reason: fmt.Sprintf("$ref cannot be combined with type %q", prop.Items.Type)}
	}
	def, err := nested(prop.Items.Ref, defs, st, ipath)
	if err != nil {
		return dynaskema.TargetType{}, err
	}
	elem := dynaskema.NestedModel(def)
	return dynaskema.SequenceOf(&elem), nil
}

// nested builds the definition ref points to. A definition is built once per
// Build call; later references share the result, which callers must treat as
// read-only.
func nested(ref string, defs js.Definitions, st *state, path string) (*dynaskema.ModelDefinition, error) {
	name, target, err := resolveRef(ref, defs, st, path)
	if err != nil {
		return nil, err
	}
	// A definition that built once has an acyclic closure, so reusing it
	// under a different stack cannot hide a cycle.
	if def, ok := st.built[name]; ok {
		return def, nil
	}
	st.log.Debug("resolving $ref", "ref", ref, "definition", name, "path", pointer(path))
	st.stack = append(st.stack, name)
	def, err := build(name, target, defs, st, defLocation(st.opts.RefPrefix, name))
	st.stack = st.stack[:len(st.stack)-1]
	if err != nil {
		return nil, err
	}
	st.built[name] = def
	return def, nil
}

func warnUnmodeled(st *state, node *js.Schema, path string) {
	if len(node.Extra) == 0 {
		return
	}
	var kws []string
	for _, k := range compositionKeywords {
		if _, ok := node.Extra[k]; ok {
			kws = append(kws, k)
		}
	}
	if len(kws) == 0 {
		return
	}
	sort.Strings(kws)
	st.log.Warn("ignoring composition keywords", "keywords", kws, "path", pointer(path))
}
