package jsonschema

import (
	"bytes"

	gojson "github.com/goccy/go-json"
)

// Schema is the subset of JSON Schema understood by the model builder. It is
// used both for documents read from the wire and for export.
type Schema struct {
	// Core
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`
	Ref         string `json:"$ref,omitempty"`
	Format      string `json:"format,omitempty"`
	Default     any    `json:"default,omitempty"`

	// Object
	Properties           *Properties `json:"properties,omitempty"`
	Required             []string    `json:"required,omitempty"`
	AdditionalProperties any         `json:"additionalProperties,omitempty"`

	// Array
	Items *Schema `json:"items,omitempty"`

	// Definitions, under either key convention.
	Defs        Definitions `json:"$defs,omitempty"`
	Definitions Definitions `json:"definitions,omitempty"`

	// Extra keeps keywords the loader does not model (anyOf, enum, ...),
	// so callers can report them.
	Extra map[string]any `json:"-"`
}

// Definitions maps a definition name to its schema.
type Definitions map[string]*Schema

// Properties is an insertion-ordered property map.
type Properties struct {
	keys []string
	m    map[string]*Schema
}

// Property is a name/schema pair used to build Properties.
type Property struct {
	Name   string
	Schema *Schema
}

// NewProperties builds Properties in the given order. Later duplicates
// replace earlier ones in place.
func NewProperties(props ...Property) *Properties {
	p := &Properties{m: make(map[string]*Schema, len(props))}
	for _, pr := range props {
		p.Set(pr.Name, pr.Schema)
	}
	return p
}

// Set stores s under name, keeping the original position of an existing name.
func (p *Properties) Set(name string, s *Schema) {
	if p.m == nil {
		p.m = map[string]*Schema{}
	}
	if _, ok := p.m[name]; !ok {
		p.keys = append(p.keys, name)
	}
	p.m[name] = s
}

// Get returns the schema for name.
func (p *Properties) Get(name string) (*Schema, bool) {
	if p == nil {
		return nil, false
	}
	s, ok := p.m[name]
	return s, ok
}

// Keys returns property names in declaration order.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.keys...)
}

// Len returns the number of properties.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.keys)
}

// MarshalJSON writes properties in declaration order.
func (p *Properties) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := gojson.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := gojson.Marshal(p.m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Marshal encodes s as JSON with properties in declaration order.
func Marshal(s *Schema) ([]byte, error) { return gojson.Marshal(s) }

// MarshalIndent is like Marshal with indentation.
func MarshalIndent(s *Schema, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(s, prefix, indent)
}
