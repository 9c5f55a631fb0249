package chainz

import (
	"fmt"
	"reflect"
)

// Args is the argument specification of a step: either a literal list or
// a single producer evaluated against the running value at run time.
// The zero value carries no arguments.
type Args struct {
	deferred ArgsFunc
	values   []any
}

// Deferred wraps fn as an argument producer. Passing Deferred(fn) as the
// only argument of a step is the explicit form; a lone func() any,
// func(any) any, func() []any or func(any) []any is recognised as well.
func Deferred(fn func(current any) any) ArgsFunc {
	return ArgsFunc(fn)
}

// newArgs classifies the raw arguments given to a builder method.
func newArgs(raw []any) Args {
	if len(raw) == 1 {
		if fn, ok := asArgsFunc(raw[0]); ok {
			return Args{deferred: fn}
		}
	}
	if len(raw) == 0 {
		return Args{}
	}
	values := make([]any, len(raw))
	copy(values, raw)
	return Args{values: values}
}

func asArgsFunc(v any) (ArgsFunc, bool) {
	switch fn := v.(type) {
	case ArgsFunc:
		return fn, fn != nil
	case func(any) any:
		return fn, fn != nil
	case func() any:
		return func(any) any { return fn() }, fn != nil
	case func(any) []any:
		return func(c any) any { return fn(c) }, fn != nil
	case func() []any:
		return func(any) any { return fn() }, fn != nil
	default:
		return nil, false
	}
}

// Present reports whether the step was given arguments. An empty literal
// list counts as no arguments.
func (a Args) Present() bool {
	return a.deferred != nil || len(a.values) > 0
}

// IsDeferred reports whether the arguments come from a producer.
func (a Args) IsDeferred() bool {
	return a.deferred != nil
}

// Values returns a copy of the literal arguments.
func (a Args) Values() []any {
	if a.values == nil {
		return nil
	}
	out := make([]any, len(a.values))
	copy(out, a.values)
	return out
}

// Resolve produces the argument list for a run. Literal arguments are
// returned as a fresh slice, so the callee may modify it without touching
// the recorded step. A producer's slice or array result is spread; anything
// else becomes a one-element list.
func (a Args) Resolve(current any) (args []any, err error) {
	if a.deferred == nil {
		return a.Values(), nil
	}
	defer func() {
		if r := recover(); r != nil {
			args, err = nil, &PanicError{Value: r}
		}
	}()
	return spread(a.deferred(current)), nil
}

func spread(v any) []any {
	if v == nil {
		return []any{nil}
	}
	if list, ok := v.([]any); ok {
		return list
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = valueOf(rv.Index(i))
		}
		return out
	default:
		return []any{v}
	}
}

// String formats the arguments for step descriptions.
func (a Args) String() string {
	if a.deferred != nil {
		return "(<deferred>)"
	}
	if len(a.values) == 0 {
		return ""
	}
	s := "("
	for i, v := range a.values {
		if i > 0 {
			s += ", "
		}
		s += formatLiteral(v)
	}
	return s + ")"
}

func formatLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", x)
	default:
		if IsCallable(v) {
			return "<func>"
		}
		return fmt.Sprint(v)
	}
}
