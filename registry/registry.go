// Package registry keeps runtime models built from schema documents received
// at runtime, keyed by model name, and validates records against them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/builder"
	"github.com/reoring/dynaskema/dsl"
	js "github.com/reoring/dynaskema/jsonschema"
)

// ErrNotFound is returned when no model is registered under a name.
var ErrNotFound = errors.New("registry: model not found")

// Registry is safe for concurrent use. Models are immutable once built, so
// a model returned by Get stays valid after it is replaced.
type Registry struct {
	opts   builder.Options
	mu     sync.RWMutex
	models map[string]*dsl.Model
}

// New returns an empty registry that builds models with opts.
func New(opts builder.Options) *Registry {
	return &Registry{opts: opts, models: map[string]*dsl.Model{}}
}

// Register parses a JSON or YAML schema document, builds its model and
// stores it under the model name, replacing any previous model.
func (r *Registry) Register(data []byte) (*dsl.Model, error) {
	doc, err := js.Parse(data)
	if err != nil {
		return nil, err
	}
	return r.RegisterSchema(doc)
}

// RegisterSchema is like Register for an already parsed document.
func (r *Registry) RegisterSchema(doc *js.Schema) (*dsl.Model, error) {
	m, err := builder.Make(doc, r.opts)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	_, replaced := r.models[m.Name()]
	r.models[m.Name()] = m
	r.mu.Unlock()
	if r.opts.Logger != nil {
		r.opts.Logger.Info("model registered", "model", m.Name(), "fields", len(m.FieldNames()), "replaced", replaced)
	}
	return m, nil
}

// Get returns the model registered under name.
func (r *Registry) Get(name string) (*dsl.Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[name]
	return m, ok
}

// Names returns the registered model names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.models))
	for n := range r.models {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Validate parses JSON data with the model registered under name.
func (r *Registry) Validate(ctx context.Context, name string, data []byte, opt dynaskema.ParseOpt) (*dynaskema.Record, error) {
	m, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return dynaskema.ParseJSON[*dynaskema.Record](ctx, m, data, opt)
}
