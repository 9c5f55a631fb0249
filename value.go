package chainz

import (
	"fmt"
	"math"
	"reflect"
	"unicode"
	"unicode/utf8"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// IsNullish reports whether v is absent: nil, or a nil pointer, map,
// slice, func, chan or interface. Zero numbers, empty strings and false
// are present values.
func IsNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// IsCallable reports whether v is a non-nil function value.
func IsCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Func && !rv.IsNil()
}

// Member reads the member named by key from v. Keys are strings, integer
// indexes or *Symbol values. Lookup never panics; a missing member, or any
// member of a nullish value, reports false.
//
// Lookup order:
//   - Object implementations answer for themselves
//   - map entries (the key is converted to the map's key type when safe)
//   - elements of slices, arrays and strings for integer keys
//   - exported struct fields, then methods
//   - extension members registered in members
//
// Field, method and extension names match exactly first, then with the
// first rune upper-cased, so "split" finds a method named Split.
func Member(v, key any, members *Members) (result any, ok bool) {
	if IsNullish(v) || key == nil {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			result, ok = nil, false
		}
	}()

	if obj, isObj := v.(Object); isObj {
		return obj.Member(key)
	}

	rv := reflect.ValueOf(v)
	switch k := key.(type) {
	case string:
		return memberByName(rv, k, members)
	case *Symbol:
		return mapEntry(rv, reflect.ValueOf(k))
	default:
		if i, isIndex := toIndex(key); isIndex {
			return memberByIndex(rv, i, key)
		}
	}
	return nil, false
}

func memberByName(rv reflect.Value, name string, members *Members) (any, bool) {
	if rv.Kind() == reflect.Map {
		if val, ok := mapEntry(rv, reflect.ValueOf(name)); ok {
			return val, true
		}
	}

	names := candidateNames(name)
	for _, n := range names {
		if val, ok := fieldOrMethod(rv, n); ok {
			return val, true
		}
	}
	if members != nil {
		for _, n := range names {
			if fn, ok := members.Lookup(rv, n); ok {
				return fn, true
			}
		}
	}
	return nil, false
}

// candidateNames returns name, plus its exported form when it differs.
func candidateNames(name string) []string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return []string{name}
	}
	exported := string(unicode.ToUpper(r)) + name[size:]
	if exported == name {
		return []string{name}
	}
	return []string{name, exported}
}

func fieldOrMethod(rv reflect.Value, name string) (any, bool) {
	s := rv
	for s.Kind() == reflect.Pointer || s.Kind() == reflect.Interface {
		if s.IsNil() {
			return nil, false
		}
		s = s.Elem()
	}
	if s.Kind() == reflect.Struct {
		if f := s.FieldByName(name); f.IsValid() && f.CanInterface() {
			return valueOf(f), true
		}
	}
	if m := rv.MethodByName(name); m.IsValid() {
		return m.Interface(), true
	}
	if s.CanAddr() {
		if m := s.Addr().MethodByName(name); m.IsValid() {
			return m.Interface(), true
		}
	}
	return nil, false
}

func memberByIndex(rv reflect.Value, i int, key any) (any, bool) {
	if rv.Kind() == reflect.Map {
		return mapEntry(rv, reflect.ValueOf(key))
	}
	rv = reflect.Indirect(rv)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if i < 0 || i >= rv.Len() {
			return nil, false
		}
		return valueOf(rv.Index(i)), true
	case reflect.String:
		runes := []rune(rv.String())
		if i < 0 || i >= len(runes) {
			return nil, false
		}
		return string(runes[i]), true
	default:
		return nil, false
	}
}

func mapEntry(rv reflect.Value, key reflect.Value) (any, bool) {
	if rv.Kind() != reflect.Map || rv.IsNil() {
		return nil, false
	}
	k, ok := convertKey(key, rv.Type().Key())
	if !ok {
		return nil, false
	}
	entry := rv.MapIndex(k)
	if !entry.IsValid() {
		return nil, false
	}
	return valueOf(entry), true
}

func convertKey(key reflect.Value, to reflect.Type) (reflect.Value, bool) {
	if key.Type().AssignableTo(to) {
		return key, true
	}
	if sameFamily(key.Kind(), to.Kind()) && key.Type().ConvertibleTo(to) {
		return key.Convert(to), true
	}
	return reflect.Value{}, false
}

func toIndex(key any) (int, bool) {
	rv := reflect.ValueOf(key)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		// Only integral floats, as produced by JSON decoding.
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

// Invoke calls fn with args. Arity is strict: a variadic function accepts at
// least its fixed parameters, any other function exactly its parameters.
// Arguments are converted when the conversion is lossless in kind (numbers
// to numbers, strings to string types, nil to nilable types).
//
// A trailing error result is returned as the error; of the remaining
// results none yields nil, one yields that value and several yield []any.
// A panic inside fn is recovered and returned as a *PanicError.
func Invoke(fn any, args ...any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &PanicError{Value: r}
		}
	}()

	if bound, ok := fn.(func(...any) (any, error)); ok {
		return bound(args...)
	}

	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, fmt.Errorf("%w: %T", ErrNotCallable, fn)
	}
	in, err := callArgs(rv.Type(), args)
	if err != nil {
		return nil, err
	}
	return shapeResults(rv.Call(in))
}

func callArgs(t reflect.Type, args []any) ([]reflect.Value, error) {
	n := t.NumIn()
	if t.IsVariadic() {
		if len(args) < n-1 {
			return nil, fmt.Errorf("%w: want at least %d, got %d", ErrArity, n-1, len(args))
		}
	} else if len(args) != n {
		return nil, fmt.Errorf("%w: want %d, got %d", ErrArity, n, len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		var pt reflect.Type
		if t.IsVariadic() && i >= n-1 {
			pt = t.In(n - 1).Elem()
		} else {
			pt = t.In(i)
		}
		v, err := convertArg(a, pt)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		in[i] = v
	}
	return in, nil
}

func convertArg(a any, to reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch to.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
			return reflect.Zero(to), nil
		default:
			return reflect.Value{}, fmt.Errorf("%w: nil for %s", ErrArgumentType, to)
		}
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(to) {
		return av, nil
	}
	if sameFamily(av.Kind(), to.Kind()) && av.Type().ConvertibleTo(to) {
		return av.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s for %s", ErrArgumentType, av.Type(), to)
}

func shapeResults(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type().Implements(errorType) {
		last := out[n-1]
		if !isNilValue(last) {
			return nil, last.Interface().(error)
		}
		out = out[:n-1]
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return valueOf(out[0]), nil
	default:
		vals := make([]any, len(out))
		for i, v := range out {
			vals[i] = valueOf(v)
		}
		return vals, nil
	}
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}

func valueOf(v reflect.Value) any {
	if !v.IsValid() || !v.CanInterface() {
		return nil
	}
	if v.Kind() == reflect.Interface && v.IsNil() {
		return nil
	}
	return v.Interface()
}

type family int

const (
	familyOther family = iota
	familyNumber
	familyString
)

func familyOf(k reflect.Kind) family {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return familyNumber
	case reflect.String:
		return familyString
	default:
		return familyOther
	}
}

func sameFamily(a, b reflect.Kind) bool {
	fa := familyOf(a)
	return fa != familyOther && fa == familyOf(b)
}
