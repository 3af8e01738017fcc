package dsl

import (
	"context"
	"sort"

	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/i18n"
	js "github.com/reoring/dynaskema/jsonschema"
)

// Model is an instantiable runtime data container: it validates inputs into
// Records and serializes Records back using the same field names.
type Model struct {
	name          string
	fields        []objectField
	index         map[string]int
	required      map[string]struct{}
	unknownPolicy dynaskema.UnknownPolicy
	refines       []objRefine
	def           *dynaskema.ModelDefinition
}

// Ensure Model implements dynaskema.Schema[*dynaskema.Record]
var _ dynaskema.Schema[*dynaskema.Record] = (*Model)(nil)

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// FieldNames returns the declared field names in order.
func (m *Model) FieldNames() []string {
	out := make([]string, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.name
	}
	return out
}

// IsRequired reports whether name is a required field.
func (m *Model) IsRequired(name string) bool {
	_, ok := m.required[name]
	return ok
}

// UnknownPolicy reports how undeclared keys are handled.
func (m *Model) UnknownPolicy() dynaskema.UnknownPolicy { return m.unknownPolicy }

// Definition returns the ModelDefinition the model was materialized from,
// or nil for hand-built models.
func (m *Model) Definition() *dynaskema.ModelDefinition { return m.def }

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case *dynaskema.Record:
		if t == nil {
			return nil, false
		}
		return t.ToMapPreserving(), true
	}
	return nil, false
}

// handleExistingField parses a present field value and records presence flags.
func (m *Model) handleExistingField(ctx context.Context, f objectField, val any, rec *dynaskema.Record) dynaskema.Issues {
	rec.Mark(f.name, dynaskema.PresenceSeen)
	if val == nil {
		rec.Mark(f.name, dynaskema.PresenceWasNull)
	}
	parsed, err := f.ad.parse(ctx, val)
	if err != nil {
		return issuesFromErr("/"+dynaskema.EscapePointerToken(f.name), err)
	}
	rec.Set(f.name, parsed)
	return nil
}

// handleMissingField applies a default when available; handled is false when
// the field has no default.
func (m *Model) handleMissingField(ctx context.Context, f objectField, rec *dynaskema.Record) (iss dynaskema.Issues, handled bool) {
	if f.ad.applyDefault == nil {
		return nil, false
	}
	dv, err := f.ad.applyDefault(ctx)
	if err != nil {
		return issuesFromErr("/"+dynaskema.EscapePointerToken(f.name), err), true
	}
	rec.Set(f.name, dv)
	rec.Mark(f.name, dynaskema.PresenceDefaultApplied)
	return nil, true
}

func (m *Model) collectKnown(ctx context.Context, src map[string]any, rec *dynaskema.Record) dynaskema.Issues {
	var iss dynaskema.Issues
	for _, f := range m.fields {
		var i2 dynaskema.Issues
		if val, exists := src[f.name]; exists {
			i2 = m.handleExistingField(ctx, f, val, rec)
		} else if d, handled := m.handleMissingField(ctx, f, rec); handled {
			i2 = d
		} else if _, req := m.required[f.name]; req {
			i2 = requiredIssue(f.name)
		}
		if len(i2) > 0 {
			iss = dynaskema.AppendIssues(iss, i2...)
			if dynaskema.IsFailFast(ctx) {
				return iss
			}
		}
	}
	return iss
}

// collectUnknown reports undeclared keys, in key-sorted order, under UnknownStrict.
func (m *Model) collectUnknown(keys []string) dynaskema.Issues {
	if m.unknownPolicy != dynaskema.UnknownStrict {
		return nil
	}
	var uks []string
	for _, k := range keys {
		if _, known := m.index[k]; !known {
			uks = append(uks, k)
		}
	}
	sort.Strings(uks)
	var iss dynaskema.Issues
	for _, k := range uks {
		iss = dynaskema.AppendIssues(iss, dynaskema.Issue{Path: "/" + dynaskema.EscapePointerToken(k), Code: dynaskema.CodeUnknownKey, Message: i18n.T(dynaskema.CodeUnknownKey, nil)})
	}
	return iss
}

// Parse validates v (a map or a Record) into a new Record. Fields appear in
// declaration order; missing optional fields get their defaults.
func (m *Model) Parse(ctx context.Context, v any) (*dynaskema.Record, error) {
	src, ok := asObject(v)
	if !ok {
		return nil, invalidType("object")
	}
	rec := dynaskema.NewRecord(m.name)
	iss := m.collectKnown(ctx, src, rec)
	if dynaskema.IsFailFast(ctx) && len(iss) > 0 {
		return nil, iss
	}
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	if u := m.collectUnknown(keys); len(u) > 0 {
		iss = dynaskema.AppendIssues(iss, u...)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	if err := m.refine(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (m *Model) Validate(ctx context.Context, v any) error {
	_, err := m.Parse(ctx, v)
	return err
}

// ValidateValue checks an existing Record without conversion.
func (m *Model) ValidateValue(ctx context.Context, rec *dynaskema.Record) error {
	if rec == nil {
		return invalidType("object")
	}
	for _, f := range m.fields {
		val, ok := rec.Get(f.name)
		if !ok {
			if _, req := m.required[f.name]; req {
				return requiredIssue(f.name)
			}
			continue
		}
		if err := f.ad.validateValue(ctx, val); err != nil {
			return issuesFromErr("/"+dynaskema.EscapePointerToken(f.name), err)
		}
	}
	if iss := m.collectUnknown(rec.Keys()); len(iss) > 0 {
		return iss
	}
	return m.refine(ctx, rec)
}

// Encode validates rec and converts it to plain JSON-like values. With
// EncodePreserve, fields that only hold defaults are left out.
func (m *Model) Encode(ctx context.Context, rec *dynaskema.Record, mode dynaskema.EncodeMode) (map[string]any, error) {
	if err := m.ValidateValue(ctx, rec); err != nil {
		return nil, err
	}
	if mode == dynaskema.EncodePreserve {
		return rec.ToMapPreserving(), nil
	}
	return rec.ToMap(), nil
}

// EncodeJSON is like Encode but writes JSON in field order.
func (m *Model) EncodeJSON(ctx context.Context, rec *dynaskema.Record, mode dynaskema.EncodeMode) ([]byte, error) {
	if err := m.ValidateValue(ctx, rec); err != nil {
		return nil, err
	}
	return rec.AppendJSON(nil, mode)
}

func (m *Model) refine(ctx context.Context, rec *dynaskema.Record) error {
	if len(m.refines) == 0 {
		return nil
	}
	var iss dynaskema.Issues
	for _, r := range m.refines {
		if err := r.fn(ctx, rec); err != nil {
			if i2, ok := dynaskema.AsIssues(err); ok {
				for _, it := range i2 {
					if it.Rule == "" {
						it.Rule = r.name
					}
					iss = dynaskema.AppendIssues(iss, it)
				}
			} else {
				iss = dynaskema.AppendIssues(iss, dynaskema.Issue{Path: "/", Code: dynaskema.CodeCustom, Message: err.Error(), Cause: err, Rule: r.name})
			}
			if dynaskema.IsFailFast(ctx) {
				return iss
			}
		}
	}
	if len(iss) > 0 {
		return iss
	}
	return nil
}

// JSONSchema exports the model. Nested models are emitted under $defs and
// referenced as #/$defs/<name>, which the builder reads back unchanged.
func (m *Model) JSONSchema() (*js.Schema, error) {
	c := newExportCtx()
	s, err := m.jsonSchemaCtx(c)
	if err != nil {
		return nil, err
	}
	if len(c.defs) > 0 {
		s.Defs = c.defs
	}
	return s, nil
}

func (m *Model) jsonSchemaCtx(c *exportCtx) (*js.Schema, error) {
	props := js.NewProperties()
	var req []string
	for _, f := range m.fields {
		ps, err := f.ad.export(c)
		if err != nil {
			return nil, err
		}
		props.Set(f.name, ps)
		if _, ok := m.required[f.name]; ok {
			req = append(req, f.name)
		}
	}
	s := &js.Schema{Title: m.name, Type: "object", Properties: props, Required: req}
	if m.unknownPolicy == dynaskema.UnknownStrict {
		s.AdditionalProperties = false
	}
	return s, nil
}

func requiredIssue(name string) dynaskema.Issues {
	return dynaskema.Issues{dynaskema.Issue{Path: "/" + dynaskema.EscapePointerToken(name), Code: dynaskema.CodeRequired, Message: i18n.T(dynaskema.CodeRequired, nil), Hint: "required property missing"}}
}
