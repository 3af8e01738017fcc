package engine

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
)

// DuplicateStrictness selects how duplicate object keys are treated.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn                       // report, keep decoding
	DupError                      // report and fail
)

// Options controls enforcement while decoding.
type Options struct {
	Duplicates DuplicateStrictness
	MaxDepth   int // 0 means unlimited.
	// FailFast stops at the first duplicate key under DupError instead of
	// collecting all of them.
	FailFast bool
}

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.SimpleIssue.Message }

var errUnexpectedToken = errors.New("unexpected token")

type decoder struct {
	dec    *gojson.Decoder
	opt    Options
	issues []SimpleIssue
}

// Decode reads exactly one JSON value from r into map[string]any / []any /
// json.Number / string / bool / nil. Duplicate keys are reported as issues
// unless opt.Duplicates is DupIgnore; the last occurrence always wins.
func Decode(r io.Reader, opt Options) (any, []SimpleIssue, error) {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	d := &decoder{dec: dec, opt: opt}
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	v, err := d.value(tok, "", 0)
	if err != nil {
		return nil, d.issues, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = fmt.Errorf("trailing data after top-level value")
		}
		return nil, d.issues, err
	}
	return v, d.issues, nil
}

func (d *decoder) value(tok gojson.Token, path string, depth int) (any, error) {
	switch t := tok.(type) {
	case gojson.Delim:
		switch t {
		case '{':
			if err := d.enter(path, depth); err != nil {
				return nil, err
			}
			return d.object(path, depth+1)
		case '[':
			if err := d.enter(path, depth); err != nil {
				return nil, err
			}
			return d.array(path, depth+1)
		}
		return nil, errUnexpectedToken
	case gojson.Number:
		return t, nil
	case float64:
		return gojson.Number(strconv.FormatFloat(t, 'g', -1, 64)), nil
	case string, bool, nil:
		return t, nil
	}
	return nil, errUnexpectedToken
}

func (d *decoder) enter(path string, depth int) error {
	if d.opt.MaxDepth > 0 && depth+1 > d.opt.MaxDepth {
		return IssueError{SimpleIssue{Code: "too_deep", Path: normalizePath(path), Message: "max depth exceeded"}}
	}
	return nil
}

func (d *decoder) object(path string, depth int) (any, error) {
	m := make(map[string]any)
	for {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(gojson.Delim); ok && delim == '}' {
			return m, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errUnexpectedToken
		}
		child := path + "/" + escapeToken(key)
		if _, dup := m[key]; dup && d.opt.Duplicates != DupIgnore {
			si := SimpleIssue{Code: "duplicate_key", Path: child, Message: "duplicate key"}
			if d.opt.FailFast && d.opt.Duplicates == DupError {
				return nil, IssueError{si}
			}
			d.issues = append(d.issues, si)
		}
		vt, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := d.value(vt, child, depth)
		if err != nil {
			return nil, err
		}
		m[key] = v
	}
}

func (d *decoder) array(path string, depth int) (any, error) {
	out := []any{}
	for i := 0; ; i++ {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		if delim, ok := tok.(gojson.Delim); ok && delim == ']' {
			return out, nil
		}
		v, err := d.value(tok, path+"/"+strconv.Itoa(i), depth)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func escapeToken(s string) string {
	if !strings.ContainsAny(s, "~/") {
		return s
	}
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
