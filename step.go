package chainz

import (
	"fmt"
	"strconv"
	"unicode"
)

// Kind identifies the variant of a Step.
type Kind int

// Step kinds.
const (
	PropertyStep Kind = iota + 1
	FunctionStep
	NestedStep
	FallbackStep
)

func (k Kind) String() string {
	switch k {
	case PropertyStep:
		return "property"
	case FunctionStep:
		return "function"
	case NestedStep:
		return "nested"
	case FallbackStep:
		return "fallback"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Step is one recorded action of a pipeline. Which fields are meaningful
// depends on Kind:
//
//	PropertyStep  Key, Args
//	FunctionStep  Fn, Args
//	NestedStep    Nested
//	FallbackStep  Value
//
// Steps are values; a Pipeline never hands out a pointer into its list.
type Step struct {
	Key    any
	Value  any
	Fn     Func
	Nested *Pipeline
	Args   Args
	Kind   Kind
	label  string
}

// PropertyOf creates a property step reading or invoking key.
func PropertyOf(key any, args ...any) Step {
	return Step{Kind: PropertyStep, Key: key, Args: newArgs(args)}
}

// FunctionOf creates a function step calling fn with the running value
// followed by args.
func FunctionOf(fn Func, args ...any) Step {
	return Step{Kind: FunctionStep, Fn: fn, Args: newArgs(args)}
}

// NestedOf creates a step running p against the running value.
func NestedOf(p *Pipeline) Step {
	return Step{Kind: NestedStep, Nested: p}
}

// FallbackOf creates a step substituting value when the running value is
// nullish. A Producer, func() any or func(any) any value is evaluated
// lazily against the running value.
func FallbackOf(value any) Step {
	return Step{Kind: FallbackStep, Value: value}
}

// withLabel names a function step for descriptions.
func (s Step) withLabel(label string) Step {
	s.label = label
	return s
}

// String describes the step in expression form, e.g. `Split(" ")`,
// `["first name"]` or `fallback("x")`.
func (s Step) String() string {
	switch s.Kind {
	case PropertyStep:
		switch k := s.Key.(type) {
		case string:
			if !isMemberName(k) {
				return "[" + strconv.Quote(k) + "]" + s.Args.String()
			}
			return k + s.Args.String()
		default:
			return fmt.Sprintf("[%v]%s", k, s.Args.String())
		}
	case FunctionStep:
		label := s.label
		if label == "" {
			label = "func"
		}
		return label + s.Args.String()
	case NestedStep:
		return fmt.Sprintf("pipe(%s)", s.Nested.String())
	case FallbackStep:
		if _, lazy := fallbackProducer(s.Value); lazy {
			return "fallback(<producer>)"
		}
		return "fallback(" + formatLiteral(s.Value) + ")"
	default:
		return s.Kind.String()
	}
}

// isMemberName reports whether name can be written bare in an expression:
// an identifier that is not a protected name.
func isMemberName(name string) bool {
	if name == "" || IsProtected(name) {
		return false
	}
	for i, r := range name {
		if r != '_' && !unicode.IsLetter(r) && (i == 0 || !unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
