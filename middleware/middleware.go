package middleware

import (
	"context"

	dynaskema "github.com/reoring/dynaskema"
)

type ctxKeyRecord struct{}

// ContextWithRecord attaches a validated Record to the context.
func ContextWithRecord(ctx context.Context, rec *dynaskema.Record) context.Context {
	return context.WithValue(ctx, ctxKeyRecord{}, rec)
}

// RecordFromContext retrieves the Record stored by ContextWithRecord.
func RecordFromContext(ctx context.Context) (*dynaskema.Record, bool) {
	rec, ok := ctx.Value(ctxKeyRecord{}).(*dynaskema.Record)
	return rec, ok && rec != nil
}

// DefaultParseOpt returns a recommended default for HTTP JSON boundaries.
// - Duplicate keys are errors
// - Nesting deeper than 64 levels is rejected
// - Bodies above 1 MiB are rejected
func DefaultParseOpt() dynaskema.ParseOpt {
	return dynaskema.ParseOpt{
		Strictness: dynaskema.Strictness{OnDuplicateKey: dynaskema.Error},
		MaxDepth:   64,
		MaxBytes:   1 << 20,
	}
}

// IsZeroOpt reports whether opt was left unset by the caller.
func IsZeroOpt(opt dynaskema.ParseOpt) bool {
	return opt == dynaskema.ParseOpt{}
}

// ErrorPayload shapes Issues for JSON responses.
func ErrorPayload(issues []dynaskema.Issue) map[string]any {
	out := make([]map[string]string, 0, len(issues))
	for _, it := range issues {
		m := map[string]string{"path": it.Path, "code": it.Code, "message": it.Message}
		if it.Hint != "" {
			m["hint"] = it.Hint
		}
		if it.Rule != "" {
			m["rule"] = it.Rule
		}
		out = append(out, m)
	}
	return map[string]any{"issues": out}
}
