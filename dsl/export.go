package dsl

import (
	"fmt"

	dynaskema "github.com/reoring/dynaskema"
	js "github.com/reoring/dynaskema/jsonschema"
)

// RefPrefix is the $ref prefix used for nested models in exported schemas.
const RefPrefix = "#/$defs/"

type exportCtx struct {
	defs       js.Definitions
	inProgress map[string]bool
}

func newExportCtx() *exportCtx {
	return &exportCtx{defs: js.Definitions{}, inProgress: map[string]bool{}}
}

type ctxExporter interface {
	jsonSchemaCtx(*exportCtx) (*js.Schema, error)
}

type plainExporter interface {
	JSONSchema() (*js.Schema, error)
}

// exportSchema exports s, turning nested models into $defs references.
func exportSchema(c *exportCtx, s any) (*js.Schema, error) {
	switch t := s.(type) {
	case *Model:
		return c.ref(t)
	case ctxExporter:
		return t.jsonSchemaCtx(c)
	case plainExporter:
		return t.JSONSchema()
	}
	return &js.Schema{}, nil
}

// ref registers m under $defs (once per name) and returns a reference to it.
func (c *exportCtx) ref(m *Model) (*js.Schema, error) {
	if m.name == "" {
		return nil, fmt.Errorf("dsl: cannot export unnamed nested model")
	}
	ref := &js.Schema{Ref: RefPrefix + dynaskema.EscapePointerToken(m.name)}
	if _, done := c.defs[m.name]; done || c.inProgress[m.name] {
		return ref, nil
	}
	c.inProgress[m.name] = true
	body, err := m.jsonSchemaCtx(c)
	delete(c.inProgress, m.name)
	if err != nil {
		return nil, err
	}
	c.defs[m.name] = body
	return ref, nil
}
