package chainz

import (
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// DefaultMembers is the registry used by Pipeline.Run. It starts with the
// built-in prelude; definitions added to it are visible to every pipeline
// run without an explicit registry.
var DefaultMembers = Builtins()

// Members is a registry of extension members: named functions that behave
// like methods on values whose Go type has no such method. Go strings,
// slices and numbers have no methods at all, so the prelude gives them the
// everyday ones (ToUpper, Split, Join, ...).
//
// A member function takes the receiver as its first parameter:
//
//	members := chainz.NewMembers()
//	members.Define(reflect.String, "Shout", func(s string) string {
//	    return strings.ToUpper(s) + "!"
//	})
//
// Members is safe for concurrent use.
type Members struct {
	byType map[reflect.Type]map[string]any
	byKind map[reflect.Kind]map[string]any
	mu     sync.RWMutex
}

// NewMembers creates an empty registry.
func NewMembers() *Members {
	return &Members{
		byType: make(map[reflect.Type]map[string]any),
		byKind: make(map[reflect.Kind]map[string]any),
	}
}

// Define registers fn as member name for every value of the given kind.
// Define panics if fn is not a function taking at least one parameter.
func (m *Members) Define(kind reflect.Kind, name string, fn any) *Members {
	mustMemberFunc(name, fn)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byKind[kind] == nil {
		m.byKind[kind] = make(map[string]any)
	}
	m.byKind[kind][name] = fn
	return m
}

// DefineType registers fn as member name for values of exactly typ.
// Type definitions take precedence over kind definitions.
func (m *Members) DefineType(typ reflect.Type, name string, fn any) *Members {
	mustMemberFunc(name, fn)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byType[typ] == nil {
		m.byType[typ] = make(map[string]any)
	}
	m.byType[typ][name] = fn
	return m
}

// Lookup returns member name bound to v as a func(...any) (any, error).
func (m *Members) Lookup(v reflect.Value, name string) (any, bool) {
	if !v.IsValid() {
		return nil, false
	}
	m.mu.RLock()
	fn, ok := m.byType[v.Type()][name]
	if !ok {
		fn, ok = m.byKind[v.Kind()][name]
	}
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	recv := valueOf(v)
	return func(args ...any) (any, error) {
		return Invoke(fn, append([]any{recv}, args...)...)
	}, true
}

// Names returns the sorted member names registered for kind.
func (m *Members) Names(kind reflect.Kind) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.byKind[kind]))
	for name := range m.byKind[kind] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Clone returns an independent copy of the registry.
func (m *Members) Clone() *Members {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c := NewMembers()
	for typ, defs := range m.byType {
		c.byType[typ] = make(map[string]any, len(defs))
		for name, fn := range defs {
			c.byType[typ][name] = fn
		}
	}
	for kind, defs := range m.byKind {
		c.byKind[kind] = make(map[string]any, len(defs))
		for name, fn := range defs {
			c.byKind[kind][name] = fn
		}
	}
	return c
}

func mustMemberFunc(name string, fn any) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() == 0 {
		panic(fmt.Sprintf("member %q must be a function taking the receiver as its first parameter", name))
	}
}

// Builtins returns a new registry holding the prelude.
func Builtins() *Members {
	m := NewMembers()

	m.Define(reflect.String, "ToUpper", strings.ToUpper).
		Define(reflect.String, "ToLower", strings.ToLower).
		Define(reflect.String, "TrimSpace", strings.TrimSpace).
		Define(reflect.String, "Trim", strings.Trim).
		Define(reflect.String, "Split", strings.Split).
		Define(reflect.String, "Fields", strings.Fields).
		Define(reflect.String, "Replace", strings.ReplaceAll).
		Define(reflect.String, "Repeat", strings.Repeat).
		Define(reflect.String, "Contains", strings.Contains).
		Define(reflect.String, "HasPrefix", strings.HasPrefix).
		Define(reflect.String, "HasSuffix", strings.HasSuffix).
		Define(reflect.String, "Index", strings.Index).
		Define(reflect.String, "Len", utf8.RuneCountInString).
		Define(reflect.String, "Slice", sliceString)

	for _, kind := range []reflect.Kind{reflect.Slice, reflect.Array} {
		m.Define(kind, "Join", joinElements).
			Define(kind, "Len", length).
			Define(kind, "First", first).
			Define(kind, "Last", last).
			Define(kind, "Reverse", reverse)
	}

	m.Define(reflect.Map, "Len", length).
		Define(reflect.Map, "Keys", keys)

	for _, kind := range []reflect.Kind{
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
	} {
		m.Define(kind, "String", func(v any) string { return fmt.Sprint(v) }).
			Define(kind, "Exponential", func(f float64) string {
				return strconv.FormatFloat(f, 'e', -1, 64)
			})
	}

	return m
}

// sliceString slices by rune. Negative positions count from the end and
// out-of-range positions are clamped.
func sliceString(s string, start, end int) string {
	runes := []rune(s)
	clamp := func(i int) int {
		if i < 0 {
			i += len(runes)
		}
		return max(0, min(i, len(runes)))
	}
	start, end = clamp(start), clamp(end)
	if start >= end {
		return ""
	}
	return string(runes[start:end])
}

func joinElements(v any, sep string) string {
	rv := reflect.ValueOf(v)
	parts := make([]string, rv.Len())
	for i := range parts {
		if e := valueOf(rv.Index(i)); e != nil {
			parts[i] = fmt.Sprint(e)
		}
	}
	return strings.Join(parts, sep)
}

func length(v any) int {
	return reflect.ValueOf(v).Len()
}

func first(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Len() == 0 {
		return nil
	}
	return valueOf(rv.Index(0))
}

func last(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Len() == 0 {
		return nil
	}
	return valueOf(rv.Index(rv.Len() - 1))
}

func reverse(v any) any {
	rv := reflect.ValueOf(v)
	out := reflect.MakeSlice(reflect.SliceOf(rv.Type().Elem()), rv.Len(), rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out.Index(rv.Len() - 1 - i).Set(rv.Index(i))
	}
	return out.Interface()
}

func keys(v any) []string {
	rv := reflect.ValueOf(v)
	out := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		out = append(out, fmt.Sprint(valueOf(k)))
	}
	slices.Sort(out)
	return out
}
