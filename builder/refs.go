package builder

import (
	"strings"

	dynaskema "github.com/reoring/dynaskema"
	js "github.com/reoring/dynaskema/jsonschema"
)

// DefinitionsFor picks the definitions table of doc that $refs written with
// prefix point into. Unknown prefixes use $defs when present, else definitions.
func DefinitionsFor(doc *js.Schema, prefix string) js.Definitions {
	if doc == nil {
		return nil
	}
	if prefix == "" {
		prefix = DefaultRefPrefix
	}
	switch prefix {
	case "#/$defs/":
		return doc.Defs
	case "#/definitions/":
		return doc.Definitions
	}
	if len(doc.Defs) > 0 {
		return doc.Defs
	}
	return doc.Definitions
}

// parseRef extracts the definition name from ref. ok is false when ref does
// not carry prefix or the remainder is not a single pointer token.
func parseRef(ref, prefix string) (name string, ok bool) {
	rest, found := strings.CutPrefix(ref, prefix)
	if !found || rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return unescapeToken(rest), true
}

// unescapeToken reverses JSON Pointer escaping (RFC 6901).
func unescapeToken(s string) string {
	if !strings.Contains(s, "~") {
		return s
	}
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(s)
}

// defLocation is the JSON Pointer of definition name under prefix, used in
// errors raised while building that definition.
func defLocation(prefix, name string) string {
	loc := strings.TrimPrefix(prefix, "#") + dynaskema.EscapePointerToken(name)
	if !strings.HasPrefix(loc, "/") {
		loc = "/" + loc
	}
	return loc
}

// resolveRef looks up ref in defs and guards against cycles through the
// in-progress stack of st.
func resolveRef(ref string, defs js.Definitions, st *state, path string) (string, *js.Schema, error) {
	name, ok := parseRef(ref, st.opts.RefPrefix)
	if !ok {
		return "", nil, &UnresolvedReferenceError{Path: path, Ref: ref, Malformed: true}
	}
	target, ok := defs[name]
	if !ok || target == nil {
		return "", nil, &UnresolvedReferenceError{Path: path, Ref: ref, Name: name}
	}
	for i, n := range st.stack {
		if n == name {
			cycle := append(append([]string(nil), st.stack[i:]...), name)
			return "", nil, &CyclicReferenceError{Path: path, Cycle: cycle}
		}
	}
	return name, target, nil
}
