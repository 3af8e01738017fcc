package dynaskema

import (
	"bytes"
	"encoding/json"

	gojson "github.com/goccy/go-json"
)

// Presence is the bit flag recorded for every field of a Record.
type Presence uint8

const (
	PresenceSeen           Presence = 1 << iota // Field appeared in the input.
	PresenceWasNull                             // Field value was null.
	PresenceDefaultApplied                      // Default value was applied.
)

// Record is the validated value of a generated model: an ordered set of
// fields, keyed by the same names the input used.
//
// Values are string, int64, float64, bool, nil, *Record, []*Record or []any.
type Record struct {
	model    string
	keys     []string
	vals     map[string]any
	presence map[string]Presence
}

// NewRecord returns an empty Record for the named model.
func NewRecord(model string) *Record {
	return &Record{model: model, vals: map[string]any{}, presence: map[string]Presence{}}
}

// Model returns the name of the model that produced the record.
func (r *Record) Model() string { return r.model }

// Set stores v under key, appending key when new and keeping its position otherwise.
func (r *Record) Set(key string, v any) {
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Mark ORs presence flags for key.
func (r *Record) Mark(key string, p Presence) { r.presence[key] |= p }

// Presence reports the presence flags recorded for key.
func (r *Record) Presence(key string) Presence { return r.presence[key] }

// Keys returns the field names in order.
func (r *Record) Keys() []string { return append([]string(nil), r.keys...) }

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// Get returns the raw value of key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.vals[key]
	return v, ok
}

// String returns a text field.
func (r *Record) String(key string) (string, bool) {
	v, ok := r.vals[key].(string)
	return v, ok
}

// Int returns an integer field.
func (r *Record) Int(key string) (int64, bool) {
	v, ok := r.vals[key].(int64)
	return v, ok
}

// Float returns a floating point field.
func (r *Record) Float(key string) (float64, bool) {
	v, ok := r.vals[key].(float64)
	return v, ok
}

// Bool returns a boolean field.
func (r *Record) Bool(key string) (bool, bool) {
	v, ok := r.vals[key].(bool)
	return v, ok
}

// Record returns a nested model field. A null nested field reports false.
func (r *Record) Record(key string) (*Record, bool) {
	v, ok := r.vals[key].(*Record)
	return v, ok && v != nil
}

// Records returns a sequence-of-model field.
func (r *Record) Records(key string) ([]*Record, bool) {
	v, ok := r.vals[key].([]*Record)
	return v, ok
}

// List returns any sequence field as []any.
func (r *Record) List(key string) ([]any, bool) {
	switch t := r.vals[key].(type) {
	case []any:
		return t, true
	case []*Record:
		out := make([]any, len(t))
		for i := range t {
			out[i] = t[i]
		}
		return out, true
	}
	return nil, false
}

// ToMap converts the record into plain JSON-like values, recursively.
func (r *Record) ToMap() map[string]any { return r.toMap(EncodeCanonical) }

// ToMapPreserving is like ToMap but leaves out fields that only hold a
// default, at every nesting level.
func (r *Record) ToMapPreserving() map[string]any { return r.toMap(EncodePreserve) }

func (r *Record) toMap(mode EncodeMode) map[string]any {
	if r == nil {
		return nil
	}
	out := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		if mode == EncodePreserve && r.defaultOnly(k) {
			continue
		}
		out[k] = plainValue(r.vals[k], mode)
	}
	return out
}

func (r *Record) defaultOnly(k string) bool {
	p := r.presence[k]
	return p&PresenceDefaultApplied != 0 && p&PresenceSeen == 0
}

func plainValue(v any, mode EncodeMode) any {
	switch t := v.(type) {
	case *Record:
		if t == nil {
			return nil
		}
		return t.toMap(mode)
	case []*Record:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plainValue(t[i], mode)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plainValue(t[i], mode)
		}
		return out
	default:
		return v
	}
}

// MarshalJSON writes the record canonically, in field order.
func (r *Record) MarshalJSON() ([]byte, error) { return r.AppendJSON(nil, EncodeCanonical) }

// AppendJSON appends the JSON form of the record in field order using mode.
func (r *Record) AppendJSON(dst []byte, mode EncodeMode) ([]byte, error) {
	if r == nil {
		return append(dst, "null"...), nil
	}
	buf := bytes.NewBuffer(dst)
	buf.WriteByte('{')
	first := true
	for _, k := range r.keys {
		if mode == EncodePreserve && r.defaultOnly(k) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := gojson.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		if err := appendValueJSON(buf, r.vals[k], mode); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func appendValueJSON(buf *bytes.Buffer, v any, mode EncodeMode) error {
	switch t := v.(type) {
	case *Record:
		b, err := t.AppendJSON(nil, mode)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	case []*Record:
		buf.WriteByte('[')
		for i := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendValueJSON(buf, t[i], mode); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case []any:
		buf.WriteByte('[')
		for i := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendValueJSON(buf, t[i], mode); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case json.Number:
		buf.WriteString(t.String())
		return nil
	default:
		b, err := gojson.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}
