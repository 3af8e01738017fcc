package builder_test

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/builder"
	js "github.com/reoring/dynaskema/jsonschema"
)

func mustDoc(t *testing.T, src string) *js.Schema {
	t.Helper()
	doc, err := js.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	return doc
}

func buildDoc(t *testing.T, src string, opts builder.Options) (*dynaskema.ModelDefinition, error) {
	t.Helper()
	doc := mustDoc(t, src)
	return builder.Build(doc, builder.DefinitionsFor(doc, opts.RefPrefix), opts)
}

const personSchema = `{
  "title": "Person",
  "type": "object",
  "properties": {
    "name": {"type": "string"},
    "age": {"type": "integer"},
    "address": {"$ref": "#/$defs/Address"},
    "pets": {"type": "array", "items": {"$ref": "#/$defs/Pet"}},
    "tags": {"type": "array", "items": {"type": "string"}},
    "score": {"type": "number"},
    "active": {"type": "boolean"}
  },
  "required": ["name", "pets"],
  "$defs": {
    "Address": {
      "title": "Address",
      "type": "object",
      "properties": {"street": {"type": "string"}, "zip": {"type": "string"}},
      "required": ["street"]
    },
    "Pet": {
      "type": "object",
      "properties": {"kind": {"type": "string"}},
      "required": ["kind"]
    }
  }
}`

func TestBuild_FieldOrderOptionalityAndTypes(t *testing.T) {
	def, err := buildDoc(t, personSchema, builder.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if def.Name != "Person" {
		t.Fatalf("name: %q", def.Name)
	}
	want := []string{"name", "age", "address", "pets", "tags", "score", "active"}
	if diff := cmp.Diff(want, def.FieldNames()); diff != "" {
		t.Fatalf("field order (-want +got):\n%s", diff)
	}

	type shape struct {
		Type     string
		Optional bool
		Default  dynaskema.DefaultPolicy
	}
	got := map[string]shape{}
	for _, f := range def.Fields {
		got[f.Name] = shape{f.Type.String(), f.Optional, f.Default}
	}
	wantShapes := map[string]shape{
		"name":    {"string", false, dynaskema.DefaultNone},
		"age":     {"int64", true, dynaskema.DefaultZero},
		"address": {"Address", true, dynaskema.DefaultNull},
		"pets":    {"[]Pet", false, dynaskema.DefaultNone},
		"tags":    {"[]any", true, dynaskema.DefaultZero},
		"score":   {"float64", true, dynaskema.DefaultZero},
		"active":  {"bool", true, dynaskema.DefaultZero},
	}
	if diff := cmp.Diff(wantShapes, got); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}

	addr, _ := def.Field("address")
	if addr.Type.Kind != dynaskema.KindModel || addr.Type.Model.Name != "Address" {
		t.Fatalf("address type: %+v", addr.Type)
	}
	if diff := cmp.Diff([]string{"street", "zip"}, addr.Type.Model.FieldNames()); diff != "" {
		t.Fatalf("address fields (-want +got):\n%s", diff)
	}
	street, _ := addr.Type.Model.Field("street")
	zip, _ := addr.Type.Model.Field("zip")
	if street.Optional || !zip.Optional {
		t.Fatalf("address optionality: street=%v zip=%v", street.Optional, zip.Optional)
	}
	pets, _ := def.Field("pets")
	if pets.Type.Kind != dynaskema.KindSequence || pets.Type.Elem == nil || pets.Type.Elem.Model.Name != "Pet" {
		t.Fatalf("pets type: %+v", pets.Type)
	}
}

func TestBuild_AbsentRequiredMakesEveryFieldOptional(t *testing.T) {
	def, err := buildDoc(t, `{"properties":{"a":{"type":"string"},"b":{"type":"integer"}}}`, builder.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, f := range def.Fields {
		if !f.Optional || f.Default != dynaskema.DefaultZero {
			t.Fatalf("%s: optional=%v default=%v", f.Name, f.Optional, f.Default)
		}
	}
}

func TestBuild_ModelName(t *testing.T) {
	def, err := buildDoc(t, `{"properties":{}}`, builder.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if def.Name != "Model" || len(def.Fields) != 0 {
		t.Fatalf("got %q with %d fields", def.Name, len(def.Fields))
	}
	def, err = buildDoc(t, `{"properties":{}}`, builder.Options{Name: "Order"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if def.Name != "Order" {
		t.Fatalf("name: %q", def.Name)
	}
}

func TestBuild_MissingPropertiesIsFormatError(t *testing.T) {
	_, err := buildDoc(t, `{"title":"X","type":"object"}`, builder.Options{})
	var fe *builder.SchemaFormatError
	if !errors.As(err, &fe) {
		t.Fatalf("want SchemaFormatError, got %v", err)
	}
	if !errors.Is(err, builder.ErrSchemaFormat) {
		t.Fatalf("errors.Is sentinel failed: %v", err)
	}
	if _, err := builder.Build(nil, nil, builder.Options{}); !errors.Is(err, builder.ErrSchemaFormat) {
		t.Fatalf("nil schema: %v", err)
	}
}

func TestBuild_FormatErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		path string
	}{
		{"ref with type", `{"properties":{"a":{"$ref":"#/$defs/A","type":"string"}},"$defs":{"A":{"properties":{}}}}`, "/properties/a"},
		{"items not an object", `{"properties":{"a":{"type":"array","items":[{"type":"string"}]}}}`, "/properties/a/items"},
		{"type list", `{"properties":{"a":{"type":["string","null"]}}}`, "/properties/a/type"},
		{"nested missing properties", `{"properties":{"a":{"$ref":"#/$defs/A"}},"$defs":{"A":{"type":"object"}}}`, "/$defs/A"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildDoc(t, tc.src, builder.Options{})
			var fe *builder.SchemaFormatError
			if !errors.As(err, &fe) {
				t.Fatalf("want SchemaFormatError, got %v", err)
			}
			if fe.Path != tc.path {
				t.Fatalf("path: got %q want %q", fe.Path, tc.path)
			}
		})
	}
}

func TestBuild_UnknownType(t *testing.T) {
	_, err := buildDoc(t, `{"properties":{"ok":{"type":"string"},"x":{"type":"frobnicate"}}}`, builder.Options{})
	var ue *builder.UnknownTypeError
	if !errors.As(err, &ue) {
		t.Fatalf("want UnknownTypeError, got %v", err)
	}
	if ue.Keyword != "frobnicate" || ue.Path != "/properties/x" {
		t.Fatalf("got %+v", ue)
	}
	if !errors.Is(err, builder.ErrUnknownType) {
		t.Fatalf("errors.Is sentinel failed")
	}

	_, err = buildDoc(t, `{"properties":{"x":{"description":"no type"}}}`, builder.Options{})
	if !errors.As(err, &ue) || ue.Keyword != "" {
		t.Fatalf("missing keyword: %v", err)
	}

	_, err = buildDoc(t, `{"properties":{"x":{"type":"object","properties":{}}}}`, builder.Options{})
	if !errors.As(err, &ue) || ue.Keyword != "object" {
		t.Fatalf("inline object: %v", err)
	}
}

func TestBuild_UnresolvedReference(t *testing.T) {
	cases := []struct {
		name      string
		ref       string
		malformed bool
		defName   string
	}{
		{"missing", "#/$defs/Nope", false, "Nope"},
		{"wrong prefix", "#/definitions/A", true, ""},
		{"remote", "https://example.com/a.json", true, ""},
		{"empty name", "#/$defs/", true, ""},
		{"nested pointer", "#/$defs/A/properties/x", true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := `{"properties":{"a":{"$ref":"` + tc.ref + `"}},"$defs":{"A":{"properties":{}}}}`
			_, err := buildDoc(t, src, builder.Options{})
			var re *builder.UnresolvedReferenceError
			if !errors.As(err, &re) {
				t.Fatalf("want UnresolvedReferenceError, got %v", err)
			}
			if re.Malformed != tc.malformed || re.Name != tc.defName || re.Ref != tc.ref || re.Path != "/properties/a" {
				t.Fatalf("got %+v", re)
			}
			if !errors.Is(err, builder.ErrUnresolvedReference) {
				t.Fatalf("errors.Is sentinel failed")
			}
		})
	}
}

func TestBuild_UnresolvedInsideArrayItems(t *testing.T) {
	_, err := buildDoc(t, `{"properties":{"xs":{"type":"array","items":{"$ref":"#/$defs/Gone"}}}}`, builder.Options{})
	var re *builder.UnresolvedReferenceError
	if !errors.As(err, &re) || re.Path != "/properties/xs/items" || re.Malformed {
		t.Fatalf("got %v", err)
	}
}

func TestBuild_CyclicReference(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		cycle []string
		path  string
	}{
		{
			"mutual",
			`{"properties":{"a":{"$ref":"#/$defs/A"}},"$defs":{
				"A":{"properties":{"b":{"$ref":"#/$defs/B"}}},
				"B":{"properties":{"a":{"$ref":"#/$defs/A"}}}}}`,
			[]string{"A", "B", "A"},
			"/$defs/B/properties/a",
		},
		{
			"self",
			`{"properties":{"a":{"$ref":"#/$defs/A"}},"$defs":{
				"A":{"properties":{"children":{"type":"array","items":{"$ref":"#/$defs/A"}}}}}}`,
			[]string{"A", "A"},
			"/$defs/A/properties/children/items",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildDoc(t, tc.src, builder.Options{})
			var ce *builder.CyclicReferenceError
			if !errors.As(err, &ce) {
				t.Fatalf("want CyclicReferenceError, got %v", err)
			}
			if diff := cmp.Diff(tc.cycle, ce.Cycle); diff != "" {
				t.Fatalf("cycle (-want +got):\n%s", diff)
			}
			if ce.Path != tc.path {
				t.Fatalf("path: got %q want %q", ce.Path, tc.path)
			}
			if !errors.Is(err, builder.ErrCyclicReference) {
				t.Fatalf("errors.Is sentinel failed")
			}
		})
	}
}

func TestBuild_DiamondSharesDefinition(t *testing.T) {
	def, err := buildDoc(t, `{"properties":{
		"left":{"$ref":"#/$defs/L"},
		"right":{"$ref":"#/$defs/R"}},
	"$defs":{
		"L":{"properties":{"s":{"$ref":"#/$defs/Shared"}}},
		"R":{"properties":{"s":{"$ref":"#/$defs/Shared"}}},
		"Shared":{"properties":{"v":{"type":"integer"}},"required":["v"]}}}`, builder.Options{})
	if err != nil {
		t.Fatalf("diamond must build: %v", err)
	}
	l, _ := def.Field("left")
	r, _ := def.Field("right")
	ls, _ := l.Type.Model.Field("s")
	rs, _ := r.Type.Model.Field("s")
	if ls.Type.Model != rs.Type.Model {
		t.Fatalf("a definition must be built once per Build call")
	}
	v, ok := ls.Type.Model.Field("v")
	if !ok || v.Optional || v.Type.Primitive != dynaskema.PrimitiveInt {
		t.Fatalf("shared definition: %+v", ls.Type.Model)
	}
	if got := strings.Count(def.String(), "Shared (see above)"); got != 1 {
		t.Fatalf("tree should print Shared once in full:\n%s", def)
	}
}

// diamondChain returns a schema where each D<i> references D<i+1> twice.
func diamondChain(depth int) string {
	var b strings.Builder
	b.WriteString(`{"title":"Root","properties":{"d":{"$ref":"#/$defs/D0"}},"$defs":{`)
	for i := 0; i < depth; i++ {
		fmt.Fprintf(&b, `"D%d":{"properties":{"l":{"$ref":"#/$defs/D%d"},"r":{"$ref":"#/$defs/D%d"}}},`, i, i+1, i+1)
	}
	fmt.Fprintf(&b, `"D%d":{"properties":{"v":{"type":"string"}}}}}`, depth)
	return b.String()
}

func TestBuild_DeepDiamondIsLinear(t *testing.T) {
	done := make(chan error, 1)
	go func() {
		_, err := builder.MakeFromBytes([]byte(diamondChain(64)), builder.Options{})
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("make: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("deep diamond did not build in time")
	}
}

func TestBuild_DefinitionsConventions(t *testing.T) {
	src := `{"properties":{"a":{"$ref":"#/definitions/A"}},"definitions":{"A":{"properties":{"x":{"type":"string"}}}}}`
	def, err := buildDoc(t, src, builder.Options{RefPrefix: "#/definitions/"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a, _ := def.Field("a")
	if a.Type.Model == nil || a.Type.Model.Name != "A" {
		t.Fatalf("a: %+v", a.Type)
	}

	src = `{"properties":{"a":{"$ref":"#/components/schemas/A"}},"$defs":{"A":{"properties":{}}}}`
	if _, err := buildDoc(t, src, builder.Options{RefPrefix: "#/components/schemas/"}); err != nil {
		t.Fatalf("custom prefix: %v", err)
	}
}

func TestBuild_EscapedReferenceName(t *testing.T) {
	src := `{"properties":{"a":{"$ref":"#/$defs/io.k8s~1Pod~0v1"}},"$defs":{"io.k8s/Pod~v1":{"properties":{}}}}`
	def, err := buildDoc(t, src, builder.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a, _ := def.Field("a")
	if a.Type.Model.Name != "io.k8s/Pod~v1" {
		t.Fatalf("name: %q", a.Type.Model.Name)
	}
}

func TestBuild_SharesDefinitionsWithSiblings(t *testing.T) {
	// B is only reachable from A's definition; the table passed to Build is
	// the only one consulted at every level.
	def, err := buildDoc(t, `{"properties":{"a":{"$ref":"#/$defs/A"}},"$defs":{
		"A":{"properties":{"b":{"$ref":"#/$defs/B"}}},
		"B":{"properties":{"c":{"$ref":"#/$defs/C"}}},
		"C":{"properties":{"v":{"type":"boolean"}}}}}`, builder.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	a, _ := def.Field("a")
	b, _ := a.Type.Model.Field("b")
	c, _ := b.Type.Model.Field("c")
	if c.Type.Model.Name != "C" {
		t.Fatalf("c: %+v", c.Type)
	}
}

func TestBuild_DoesNotMutateInputs(t *testing.T) {
	doc := mustDoc(t, personSchema)
	before, err := js.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	defs := builder.DefinitionsFor(doc, "")
	first, err := builder.Build(doc, defs, builder.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	second, err := builder.Build(doc, defs, builder.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	after, _ := js.Marshal(doc)
	if !bytes.Equal(before, after) {
		t.Fatalf("document mutated:\nbefore %s\nafter  %s", before, after)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("builds differ:\n%s", diff)
	}
}

func TestBuild_LogsWarningsAndTraces(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err := buildDoc(t, `{"properties":{"a":{"$ref":"#/$defs/A"}},"required":["ghost"],"anyOf":[{}],
		"$defs":{"A":{"properties":{}}}}`, builder.Options{Logger: log})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"undeclared property", "property=ghost", "anyOf", "resolving $ref", "definition=A"} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q:\n%s", want, out)
		}
	}
}

func TestResolveType(t *testing.T) {
	cases := map[string]dynaskema.PrimitiveType{
		"string":  dynaskema.PrimitiveText,
		"integer": dynaskema.PrimitiveInt,
		"number":  dynaskema.PrimitiveFloat,
		"float":   dynaskema.PrimitiveFloat,
		"boolean": dynaskema.PrimitiveBool,
		"array":   dynaskema.PrimitiveSequence,
	}
	for kw, want := range cases {
		got, err := builder.ResolveType(kw)
		if err != nil || got != want {
			t.Fatalf("%s: got %v, %v", kw, got, err)
		}
	}
	for _, kw := range []string{"", "object", "null", "frobnicate"} {
		if _, err := builder.ResolveType(kw); !errors.Is(err, builder.ErrUnknownType) {
			t.Fatalf("%q: want ErrUnknownType, got %v", kw, err)
		}
	}
}

func TestFieldPolicy(t *testing.T) {
	nested := dynaskema.NestedModel(&dynaskema.ModelDefinition{Name: "N"})
	cases := []struct {
		t        dynaskema.TargetType
		optional bool
		want     dynaskema.DefaultPolicy
	}{
		{dynaskema.Primitive(dynaskema.PrimitiveText), false, dynaskema.DefaultNone},
		{dynaskema.Primitive(dynaskema.PrimitiveText), true, dynaskema.DefaultZero},
		{dynaskema.SequenceOf(nil), true, dynaskema.DefaultZero},
		{dynaskema.SequenceOf(&nested), true, dynaskema.DefaultZero},
		{nested, true, dynaskema.DefaultNull},
		{nested, false, dynaskema.DefaultNone},
	}
	for _, tc := range cases {
		if got := builder.FieldPolicy(tc.t, tc.optional); got != tc.want {
			t.Fatalf("%s optional=%v: got %v want %v", tc.t, tc.optional, got, tc.want)
		}
	}
}
