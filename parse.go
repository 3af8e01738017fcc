package dynaskema

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/reoring/dynaskema/i18n"
	eng "github.com/reoring/dynaskema/internal/engine"
)

// ParseJSON decodes data and parses it with s. Numbers reach the schema as
// json.Number so integers keep full precision.
func ParseJSON[T any](ctx context.Context, s Schema[T], data []byte, opts ...ParseOpt) (T, error) {
	opt := lastOpt(opts)
	if opt.MaxBytes > 0 && int64(len(data)) > opt.MaxBytes {
		var zero T
		return zero, singleIssue(CodeTruncated, "max bytes exceeded")
	}
	return parseFrom(ctx, s, bytes.NewReader(data), opt)
}

// ParseJSONReader is like ParseJSON but reads the document from r. When
// MaxBytes is set it enforces the size cap up front.
func ParseJSONReader[T any](ctx context.Context, s Schema[T], r io.Reader, opts ...ParseOpt) (T, error) {
	opt := lastOpt(opts)
	if opt.MaxBytes > 0 {
		data, err := io.ReadAll(io.LimitReader(r, opt.MaxBytes+1))
		if err != nil {
			var zero T
			return zero, singleIssue(CodeParseError, err.Error())
		}
		return ParseJSON(ctx, s, data, opt)
	}
	return parseFrom(ctx, s, r, opt)
}

func parseFrom[T any](ctx context.Context, s Schema[T], r io.Reader, opt ParseOpt) (T, error) {
	var zero T
	if s == nil {
		return zero, singleIssue(CodeParseError, "nil schema")
	}
	if opt.FailFast {
		ctx = WithFailFast(ctx, true)
	}
	v, dups, err := eng.Decode(r, eng.Options{
		Duplicates: toEngineDup(opt.Strictness.OnDuplicateKey),
		MaxDepth:   opt.MaxDepth,
		FailFast:   opt.FailFast,
	})
	if err != nil {
		return zero, toIssues(err)
	}
	if len(dups) > 0 {
		if opt.Strictness.OnDuplicateKey == Error {
			return zero, fromEngineIssues(dups)
		}
		warnIssues(ctx, opt.Logger, fromEngineIssues(dups))
	}
	return s.Parse(ctx, v)
}

func toEngineDup(s Severity) eng.DuplicateStrictness {
	switch s {
	case Error:
		return eng.DupError
	case Warn:
		return eng.DupWarn
	default:
		return eng.DupIgnore
	}
}

func warnIssues(ctx context.Context, log *slog.Logger, iss Issues) {
	if log == nil {
		return
	}
	for _, it := range iss {
		log.WarnContext(ctx, it.Message, "path", it.Path, "code", it.Code)
	}
}

func lastOpt(opts []ParseOpt) ParseOpt {
	if len(opts) == 0 {
		return ParseOpt{}
	}
	return opts[len(opts)-1]
}

func toIssues(err error) Issues {
	if ii, ok := AsIssues(err); ok {
		return ii
	}
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return fromEngineIssues([]eng.SimpleIssue{ie.SimpleIssue})
	}
	return AppendIssues(nil, Issue{Path: "/", Code: CodeParseError, Message: err.Error(), Cause: err})
}

func fromEngineIssues(si []eng.SimpleIssue) Issues {
	var iss Issues
	for _, s := range si {
		iss = AppendIssues(iss, Issue{Code: s.Code, Path: s.Path, Message: i18n.T(s.Code, nil)})
	}
	return iss
}
