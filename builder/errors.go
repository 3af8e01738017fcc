package builder

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrSchemaFormat        = errors.New("builder: schema format")
	ErrUnresolvedReference = errors.New("builder: unresolved reference")
	ErrUnknownType         = errors.New("builder: unknown type")
	ErrCyclicReference     = errors.New("builder: cyclic reference")
)

// SchemaFormatError reports a missing or ill-shaped schema node.
type SchemaFormatError struct {
	Path   string // JSON Pointer of the offending node.
	Reason string
}

func (e *SchemaFormatError) Error() string {
	return fmt.Sprintf("builder: schema format at %s: %s", pointer(e.Path), e.Reason)
}

func (e *SchemaFormatError) Unwrap() error { return ErrSchemaFormat }

// UnresolvedReferenceError reports a $ref that does not name a definition.
// Malformed is set when the reference does not follow the configured prefix
// convention at all, as opposed to naming a definition that is absent.
type UnresolvedReferenceError struct {
	Path      string
	Ref       string
	Name      string
	Malformed bool
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("builder: malformed $ref %q at %s", e.Ref, pointer(e.Path))
	}
	return fmt.Sprintf("builder: $ref %q at %s: no definition named %q", e.Ref, pointer(e.Path), e.Name)
}

func (e *UnresolvedReferenceError) Unwrap() error { return ErrUnresolvedReference }

// UnknownTypeError reports an unsupported or missing type keyword.
type UnknownTypeError struct {
	Path    string
	Keyword string // empty when the keyword is missing
}

func (e *UnknownTypeError) Error() string {
	if e.Keyword == "" {
		return fmt.Sprintf("builder: missing type keyword at %s", pointer(e.Path))
	}
	return fmt.Sprintf("builder: unknown type %q at %s", e.Keyword, pointer(e.Path))
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }

// CyclicReferenceError reports a definition reachable from itself.
// Cycle lists definition names from the first repeated one back to itself.
type CyclicReferenceError struct {
	Path  string
	Cycle []string
}

func (e *CyclicReferenceError) Error() string {
	return fmt.Sprintf("builder: cyclic $ref at %s: %s", pointer(e.Path), strings.Join(e.Cycle, " -> "))
}

func (e *CyclicReferenceError) Unwrap() error { return ErrCyclicReference }

func pointer(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
