package builder

import (
	"io"
	"log/slog"

	"github.com/reoring/dynaskema/dsl"
)

// DefaultRefPrefix is the $ref prefix used when Options.RefPrefix is empty.
// It matches what dsl.Model.JSONSchema emits.
const DefaultRefPrefix = "#/$defs/"

// Options controls how a schema document becomes a model.
type Options struct {
	// RefPrefix is the part of every $ref string preceding the definition
	// name, e.g. "#/$defs/" or "#/definitions/".
	RefPrefix string
	// Name names the root model when the document has no title.
	Name string
	// Base is applied to every materialized model, root and nested.
	// It is used by Make only; Build never materializes.
	Base dsl.Base
	// Logger receives reference-resolution traces and warnings. Nil discards.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.RefPrefix == "" {
		o.RefPrefix = DefaultRefPrefix
	}
	if o.Name == "" {
		o.Name = "Model"
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
