package dynaskema

import "log/slog"

// UnknownPolicy controls how unknown keys are handled.
type UnknownPolicy int

const (
	UnknownStrip  UnknownPolicy = iota // Drop unknown keys.
	UnknownStrict                      // Reject unknown keys with an error.
)

// Strictness configures enforcement for duplicate keys.
type Strictness struct {
	OnDuplicateKey Severity // Ignore, Warn or Error (duplicate JSON keys).
}

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// ParseOpt bundles parsing options for the JSON entry points.
type ParseOpt struct {
	Strictness Strictness
	MaxDepth   int   // 0 means unlimited.
	MaxBytes   int64 // 0 means unlimited.
	FailFast   bool
	// Logger receives issues reported with Warn severity. Nil drops them.
	Logger *slog.Logger
}

// EncodeMode selects canonical vs preserving output.
type EncodeMode int

const (
	// EncodeCanonical emits every declared field, including defaults.
	EncodeCanonical EncodeMode = iota
	// EncodePreserve omits fields that were only materialized by defaults,
	// so a validated record serializes back to the shape it was read from.
	EncodePreserve
)
