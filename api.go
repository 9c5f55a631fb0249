package chainz

// Name is a type alias for runner and step names.
// Using this type encourages storing names as constants rather than
// using inline strings throughout your code.
type Name = string

// Func is the native shape of a function step. It receives the running
// value followed by the step's resolved arguments. A returned error, like
// a panic, faults the step and the running value becomes nil.
//
// Example:
//
//	sum := chainz.Func(func(current any, args ...any) (any, error) {
//	    total := current.(int)
//	    for _, a := range args {
//	        total += a.(int)
//	    }
//	    return total, nil
//	})
type Func func(current any, args ...any) (any, error)

// ArgsFunc computes a step's arguments from the running value at run time.
// A slice or array result is spread into the argument list; any other
// result is passed as the single argument.
type ArgsFunc func(current any) any

// Producer computes a fallback value lazily from the running value,
// which is always nullish when a Producer is invoked.
type Producer func(current any) any

// Object lets host types expose their own member model. Member lookups on
// an Object bypass reflection entirely.
type Object interface {
	Member(key any) (any, bool)
}

// Symbol is a unique property key that cannot collide with any string.
// Two symbols are equal only if they are the same pointer.
type Symbol struct {
	description string
}

// NewSymbol creates a new unique Symbol.
func NewSymbol(description string) *Symbol {
	return &Symbol{description: description}
}

// String returns the symbol's description for debugging.
func (s *Symbol) String() string {
	return "Symbol(" + s.description + ")"
}
