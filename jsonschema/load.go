package jsonschema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// orderedMap is the loader's intermediate object form: JSON and YAML readers
// both keep key order, which becomes property declaration order.
type orderedMap struct {
	keys []string
	vals map[string]any
}

func (m *orderedMap) set(k string, v any) bool {
	if _, dup := m.vals[k]; dup {
		return false
	}
	m.keys = append(m.keys, k)
	m.vals[k] = v
	return true
}

func newOrderedMap() *orderedMap { return &orderedMap{vals: map[string]any{}} }

// Parse loads a schema document from JSON or YAML. Documents whose first
// non-space byte is '{' are read as JSON.
func Parse(data []byte) (*Schema, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// ParseJSON loads a schema document from JSON, keeping property order.
func ParseJSON(data []byte) (*Schema, error) {
	dec := gojson.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("jsonschema: invalid JSON: %w", err)
	}
	v, err := jsonValue(dec, tok, "")
	if err != nil {
		return nil, fmt.Errorf("jsonschema: invalid JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("jsonschema: invalid JSON: trailing data after document")
	}
	root, ok := v.(*orderedMap)
	if !ok {
		return nil, errors.New("jsonschema: document root must be an object")
	}
	return fromOrdered(root, "")
}

func jsonValue(dec *gojson.Decoder, tok gojson.Token, path string) (any, error) {
	switch t := tok.(type) {
	case gojson.Delim:
		switch t {
		case '{':
			m := newOrderedMap()
			for {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				if d, ok := kt.(gojson.Delim); ok && d == '}' {
					return m, nil
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("%s: expected object key", orRoot(path))
				}
				vt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				v, err := jsonValue(dec, vt, path+"/"+key)
				if err != nil {
					return nil, err
				}
				if !m.set(key, v) {
					return nil, fmt.Errorf("%s/%s: duplicate key", path, key)
				}
			}
		case '[':
			arr := []any{}
			for i := 0; ; i++ {
				et, err := dec.Token()
				if err != nil {
					return nil, err
				}
				if d, ok := et.(gojson.Delim); ok && d == ']' {
					return arr, nil
				}
				v, err := jsonValue(dec, et, path+"/"+strconv.Itoa(i))
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
		}
		return nil, fmt.Errorf("%s: unexpected delimiter %v", orRoot(path), t)
	default:
		return t, nil
	}
}

// ParseYAML loads a schema document from YAML, keeping property order.
func ParseYAML(data []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("jsonschema: invalid YAML: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("jsonschema: empty YAML document")
	}
	w := &yamlWalker{budget: yamlNodeBudget(doc.Content[0])}
	v, err := w.value(doc.Content[0], "")
	if err != nil {
		return nil, fmt.Errorf("jsonschema: invalid YAML: %w", err)
	}
	root, ok := v.(*orderedMap)
	if !ok {
		return nil, errors.New("jsonschema: document root must be an object")
	}
	return fromOrdered(root, "")
}

// ErrAliasExpansion reports a YAML document whose aliases expand far beyond
// its own size.
var ErrAliasExpansion = errors.New("jsonschema: YAML alias expansion exceeds limit")

// yamlWalker converts a yaml.Node tree, following aliases, within a node budget.
type yamlWalker struct {
	budget int
}

// yamlNodeBudget allows a document to expand to ten times its own node count
// plus a fixed allowance.
func yamlNodeBudget(n *yaml.Node) int {
	return 10_000 + 10*countNodes(n)
}

func countNodes(n *yaml.Node) int {
	c := 1
	for _, ch := range n.Content {
		c += countNodes(ch)
	}
	return c
}

func (w *yamlWalker) value(n *yaml.Node, path string) (any, error) {
	w.budget--
	if w.budget < 0 {
		return nil, fmt.Errorf("%s: %w", orRoot(path), ErrAliasExpansion)
	}
	switch n.Kind {
	case yaml.MappingNode:
		m := newOrderedMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			v, err := w.value(n.Content[i+1], path+"/"+key)
			if err != nil {
				return nil, err
			}
			if !m.set(key, v) {
				return nil, fmt.Errorf("%s/%s: duplicate key (line %d)", path, key, n.Content[i].Line)
			}
		}
		return m, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for i, c := range n.Content {
			v, err := w.value(c, path+"/"+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("%s: unknown anchor %q", orRoot(path), n.Value)
		}
		return w.value(n.Alias, path)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("%s: %w", orRoot(path), err)
		}
		return v, nil
	}
}

// FromMap converts a decoded document into a Schema. Go maps carry no order,
// so properties are declared in lexical order.
func FromMap(doc map[string]any) (*Schema, error) {
	if doc == nil {
		return nil, errors.New("jsonschema: nil document")
	}
	return fromOrdered(orderMap(doc), "")
}

func orderMap(m map[string]any) *orderedMap {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	om := newOrderedMap()
	for _, k := range keys {
		om.set(k, orderValue(m[k]))
	}
	return om
}

func orderValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return orderMap(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = orderValue(t[i])
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out
	}
	return v
}

func fromOrdered(m *orderedMap, path string) (*Schema, error) {
	s := &Schema{}
	for _, k := range m.keys {
		v := m.vals[k]
		p := path + "/" + escape(k)
		var err error
		switch k {
		case "title":
			s.Title, err = stringAt(v, p)
		case "description":
			s.Description, err = stringAt(v, p)
		case "type":
			// type arrays ("type": ["string","null"]) are not modeled
			if str, ok := v.(string); ok {
				s.Type = str
			} else {
				s.setExtra(k, plain(v))
			}
		case "$ref":
			s.Ref, err = stringAt(v, p)
		case "format":
			s.Format, err = stringAt(v, p)
		case "default":
			s.Default = plain(v)
		case "properties":
			s.Properties, err = propertiesAt(v, p)
		case "required":
			s.Required, err = stringsAt(v, p)
		case "additionalProperties":
			if om, ok := v.(*orderedMap); ok {
				s.AdditionalProperties, err = fromOrdered(om, p)
			} else {
				s.AdditionalProperties = plain(v)
			}
		case "items":
			om, ok := v.(*orderedMap)
			if !ok {
				// tuple-form items are not modeled
				s.setExtra(k, plain(v))
				continue
			}
			s.Items, err = fromOrdered(om, p)
		case "$defs":
			s.Defs, err = definitionsAt(v, p)
		case "definitions":
			s.Definitions, err = definitionsAt(v, p)
		default:
			s.setExtra(k, plain(v))
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) setExtra(k string, v any) {
	if s.Extra == nil {
		s.Extra = map[string]any{}
	}
	s.Extra[k] = v
}

func propertiesAt(v any, path string) (*Properties, error) {
	om, ok := v.(*orderedMap)
	if !ok {
		return nil, fmt.Errorf("jsonschema: %s: expected object", path)
	}
	props := &Properties{m: make(map[string]*Schema, len(om.keys))}
	for _, name := range om.keys {
		child, ok := om.vals[name].(*orderedMap)
		if !ok {
			return nil, fmt.Errorf("jsonschema: %s/%s: expected object", path, escape(name))
		}
		ps, err := fromOrdered(child, path+"/"+escape(name))
		if err != nil {
			return nil, err
		}
		props.Set(name, ps)
	}
	return props, nil
}

func definitionsAt(v any, path string) (Definitions, error) {
	om, ok := v.(*orderedMap)
	if !ok {
		return nil, fmt.Errorf("jsonschema: %s: expected object", path)
	}
	defs := make(Definitions, len(om.keys))
	for _, name := range om.keys {
		child, ok := om.vals[name].(*orderedMap)
		if !ok {
			return nil, fmt.Errorf("jsonschema: %s/%s: expected object", path, escape(name))
		}
		ds, err := fromOrdered(child, path+"/"+escape(name))
		if err != nil {
			return nil, err
		}
		defs[name] = ds
	}
	return defs, nil
}

func stringAt(v any, path string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("jsonschema: %s: expected string", path)
	}
	return s, nil
}

func stringsAt(v any, path string) ([]string, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("jsonschema: %s: expected array of strings", path)
	}
	out := make([]string, 0, len(arr))
	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("jsonschema: %s/%d: expected string", path, i)
		}
		out = append(out, s)
	}
	return out, nil
}

// plain turns ordered values back into map[string]any for Extra/Default.
func plain(v any) any {
	switch t := v.(type) {
	case *orderedMap:
		out := make(map[string]any, len(t.keys))
		for _, k := range t.keys {
			out[k] = plain(t.vals[k])
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plain(t[i])
		}
		return out
	}
	return v
}

func escape(s string) string {
	if !strings.ContainsAny(s, "~/") {
		return s
	}
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func orRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
