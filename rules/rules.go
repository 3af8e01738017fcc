// Package rules provides cross-field checks for generated models. Rules read
// Records through JSON Pointers and are attached to models by name through
// a dsl.Base, so they reach nested models materialized from definitions too.
package rules

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	dynaskema "github.com/reoring/dynaskema"
	"github.com/reoring/dynaskema/dsl"
	"github.com/reoring/dynaskema/i18n"
)

// Rule inspects a parsed Record and reports Issues relative to it.
type Rule = func(context.Context, *dynaskema.Record) []dynaskema.Issue

// Op defines simple comparison operators for If(...).Then(...)
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// Conditional composes conditional execution of rules.
type Conditional struct {
	path string
	op   Op
	want any
	all  []Conditional // composite AND
	any  []Conditional // composite OR
}

// If builds a conditional that evaluates the value at path against want.
// A missing or null value never satisfies the condition.
func If(path string, op Op, want any) Conditional {
	return Conditional{path: normalizePath(path), op: op, want: want}
}

// IfAll builds a conditional that requires all conditions to hold.
func IfAll(conds ...Conditional) Conditional { return Conditional{all: conds} }

// IfAny builds a conditional that requires any condition to hold.
func IfAny(conds ...Conditional) Conditional { return Conditional{any: conds} }

// And combines the receiver with additional conditions using logical AND.
func (c Conditional) And(others ...Conditional) Conditional {
	return IfAll(append([]Conditional{c}, others...)...)
}

// Or combines the receiver with additional conditions using logical OR.
func (c Conditional) Or(others ...Conditional) Conditional {
	return IfAny(append([]Conditional{c}, others...)...)
}

// Then attaches rules to run when the condition is satisfied.
func (c Conditional) Then(rules ...Rule) Rule {
	inner := And(rules...)
	return func(ctx context.Context, rec *dynaskema.Record) []dynaskema.Issue {
		if !c.eval(rec) {
			return nil
		}
		return inner(ctx, rec)
	}
}

func (c Conditional) eval(rec *dynaskema.Record) bool {
	if len(c.all) > 0 {
		for _, it := range c.all {
			if !it.eval(rec) {
				return false
			}
		}
		return true
	}
	if len(c.any) > 0 {
		for _, it := range c.any {
			if it.eval(rec) {
				return true
			}
		}
		return false
	}
	cur, ok := valueAt(rec, c.path)
	if !ok || cur == nil {
		return false
	}
	return compare(cur, c.op, c.want)
}

// Present requires a non-null value at path.
func Present(path string) Rule {
	p := normalizePath(path)
	return func(_ context.Context, rec *dynaskema.Record) []dynaskema.Issue {
		if v, ok := valueAt(rec, p); ok && v != nil {
			return nil
		}
		return []dynaskema.Issue{{Path: p, Code: dynaskema.CodeRequired, Message: i18n.T(dynaskema.CodeRequired, nil)}}
	}
}

// AtLeastOne ensures the sequence at path has at least 1 element.
func AtLeastOne(path string) Rule {
	p := normalizePath(path)
	return func(_ context.Context, rec *dynaskema.Record) []dynaskema.Issue {
		v, ok := valueAt(rec, p)
		if !ok {
			return nil
		}
		if n, isSeq := seqLen(v); isSeq && n == 0 {
			return []dynaskema.Issue{{Path: p, Code: dynaskema.CodeTooShort, Message: i18n.T(dynaskema.CodeTooShort, nil), Hint: "at least 1 item is required"}}
		}
		return nil
	}
}

// UniqueBy ensures elements of the sequence at collectionPath have distinct
// values at keyPath, a pointer relative to each element (e.g. "sku").
// Keys compare by their printed form, so keep them a single type.
func UniqueBy(collectionPath, keyPath string) Rule {
	cp := normalizePath(collectionPath)
	kp := normalizePath(keyPath)
	return func(_ context.Context, rec *dynaskema.Record) []dynaskema.Issue {
		v, ok := valueAt(rec, cp)
		if !ok {
			return nil
		}
		n, isSeq := seqLen(v)
		if !isSeq {
			return nil
		}
		seen := map[string]int{}
		var out []dynaskema.Issue
		for i := 0; i < n; i++ {
			elem, _ := valueAt(v, "/"+strconv.Itoa(i))
			kv, ok := valueAt(elem, kp)
			if !ok || kv == nil {
				continue
			}
			key := fmt.Sprint(kv)
			if j, dup := seen[key]; dup {
				out = append(out, dynaskema.Issue{
					Path:    cp + "/" + strconv.Itoa(i) + kp,
					Code:    dynaskema.CodeUniqueness,
					Message: i18n.T(dynaskema.CodeUniqueness, nil),
					Hint:    fmt.Sprintf("same %s as item %d", strings.TrimPrefix(kp, "/"), j),
				})
				continue
			}
			seen[key] = i
		}
		return out
	}
}

// And executes all rules and concatenates Issues, stopping early under fail-fast.
func And(rules ...Rule) Rule {
	return func(ctx context.Context, rec *dynaskema.Record) []dynaskema.Issue {
		var out []dynaskema.Issue
		for _, r := range rules {
			if r == nil {
				continue
			}
			if iss := r(ctx, rec); len(iss) > 0 {
				out = append(out, iss...)
				if dynaskema.IsFailFast(ctx) {
					return out
				}
			}
		}
		return out
	}
}

// Or succeeds if any rule returns no Issues. When all fail, the branch with
// the fewest Issues is reported.
func Or(rules ...Rule) Rule {
	return func(ctx context.Context, rec *dynaskema.Record) []dynaskema.Issue {
		var best []dynaskema.Issue
		bestSet := false
		for _, r := range rules {
			if r == nil {
				continue
			}
			iss := r(ctx, rec)
			if len(iss) == 0 {
				return nil
			}
			if !bestSet || len(iss) < len(best) {
				best, bestSet = iss, true
			}
		}
		return best
	}
}

// Refinement adapts r to ObjectBuilder.Refine.
func Refinement(r Rule) func(context.Context, *dynaskema.Record) error {
	return func(ctx context.Context, rec *dynaskema.Record) error {
		if iss := r(ctx, rec); len(iss) > 0 {
			return dynaskema.Issues(iss)
		}
		return nil
	}
}

// ForModel returns a Base that attaches rules, under name, to every
// generated model called model.
func ForModel(model, name string, rules ...Rule) dsl.Base {
	r := And(rules...)
	return dsl.BaseFunc(func(b *dsl.ObjectBuilder) {
		if b.ModelName() == model {
			b.Refine(name, Refinement(r))
		}
	})
}

// ------- helpers -------

func normalizePath(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	if p[0] != '/' {
		return "/" + p
	}
	return p
}

// valueAt navigates Records, sequences and plain maps by JSON Pointer.
func valueAt(v any, pointer string) (any, bool) {
	rel := strings.TrimPrefix(pointer, "/")
	if rel == "" {
		return v, true
	}
	cur := v
	for _, seg := range strings.Split(rel, "/") {
		seg = strings.NewReplacer("~1", "/", "~0", "~").Replace(seg)
		switch t := cur.(type) {
		case *dynaskema.Record:
			if t == nil {
				return nil, false
			}
			next, ok := t.Get(seg)
			if !ok {
				return nil, false
			}
			cur = next
		case map[string]any:
			next, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []*dynaskema.Record:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			cur = t[i]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			cur = t[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func seqLen(v any) (int, bool) {
	switch t := v.(type) {
	case []*dynaskema.Record:
		return len(t), true
	case []any:
		return len(t), true
	}
	return 0, false
}

func compare(cur any, op Op, want any) bool {
	a, aNum := toFloat(cur)
	b, bNum := toFloat(want)
	switch op {
	case Eq:
		if aNum && bNum {
			return a == b
		}
		return reflect.DeepEqual(cur, want)
	case Ne:
		if aNum && bNum {
			return a != b
		}
		return !reflect.DeepEqual(cur, want)
	}
	if !aNum || !bNum {
		return false
	}
	switch op {
	case Lt:
		return a < b
	case Le:
		return a <= b
	case Gt:
		return a > b
	case Ge:
		return a >= b
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
