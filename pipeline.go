package chainz

import (
	"reflect"
	"runtime"
	"slices"
	"strings"
)

// protectedNames are the operations of a Pipeline. They can never be
// recorded as steps through the expression syntax; a member that really
// carries one of these names must be piped explicitly with Prop or Pipe.
var protectedNames = []string{
	"pipe",
	"fallback",
	"run",
	"call",
	"toFunction",
	"steps",
	"pipeline",
	"protectedNames",
	"protectedProperties",
}

// ProtectedNames returns the reserved operation names.
// The returned slice is a copy.
func ProtectedNames() []string {
	return slices.Clone(protectedNames)
}

// IsProtected reports whether name is reserved. The comparison ignores
// case, so the exported Go spelling of an operation (Run, Pipe) is
// reserved as well.
func IsProtected(name string) bool {
	for _, p := range protectedNames {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// Pipeline is an immutable, ordered list of steps executed against an
// input by Run. Every builder method returns a new Pipeline holding a copy
// of the receiver's steps plus one more; the receiver is never modified,
// so a Pipeline can be shared, extended and run from many goroutines.
//
// The nil *Pipeline is the empty pipeline.
//
// Example:
//
//	slug := chainz.New().
//	    Prop("TrimSpace").
//	    Prop("ToLower").
//	    Prop("Fields").
//	    Prop("Join", "-")
//
//	slug.Run("  Hello World ")       // "hello-world"
//	slug.Fallback("untitled").Run(nil) // "untitled"
type Pipeline struct {
	steps []Step
}

// New creates a pipeline, optionally pre-seeded with steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{steps: slices.Clone(steps)}
}

// Pipe creates a one-step pipeline; see (*Pipeline).Pipe.
func Pipe(action any, args ...any) (*Pipeline, error) {
	return New().Pipe(action, args...)
}

// MustPipe is like Pipe but panics if the action cannot be classified.
func MustPipe(action any, args ...any) *Pipeline {
	return New().MustPipe(action, args...)
}

func (p *Pipeline) list() []Step {
	if p == nil {
		return nil
	}
	return p.steps
}

func (p *Pipeline) extend(step Step) *Pipeline {
	prefix := p.list()
	steps := make([]Step, len(prefix), len(prefix)+1)
	copy(steps, prefix)
	return &Pipeline{steps: append(steps, step)}
}

// Pipe appends a step whose kind is decided by the action:
//
//   - a Func or any other Go function becomes a function step, called with
//     the running value followed by args
//   - a *Pipeline becomes a nested step; args are ignored
//   - a string, an integer or a *Symbol becomes a property step; an
//     integral float (1.0, as JSON decodes numbers) is an integer index
//
// Anything else returns an *InvalidStepKindError. A single args entry that
// is an ArgsFunc (or a func() any, func(any) any, func() []any or
// func(any) []any) is a deferred argument producer.
func (p *Pipeline) Pipe(action any, args ...any) (*Pipeline, error) {
	step, err := classify(action, args)
	if err != nil {
		return nil, err
	}
	return p.extend(step), nil
}

// MustPipe is like Pipe but panics if the action cannot be classified.
func (p *Pipeline) MustPipe(action any, args ...any) *Pipeline {
	next, err := p.Pipe(action, args...)
	if err != nil {
		panic(err)
	}
	return next
}

func classify(action any, args []any) (Step, error) {
	switch a := action.(type) {
	case nil:
	case *Pipeline:
		if a != nil {
			return NestedOf(a), nil
		}
	case Func:
		if a != nil {
			return FunctionOf(a, args...), nil
		}
	case string:
		return PropertyOf(a, args...), nil
	case *Symbol:
		if a != nil {
			return PropertyOf(a, args...), nil
		}
	default:
		if i, ok := toIndex(action); ok {
			switch action.(type) {
			case float32, float64:
				return PropertyOf(i, args...), nil
			}
			return PropertyOf(action, args...), nil
		}
		if IsCallable(action) {
			return FunctionOf(adaptFunc(action), args...).withLabel(funcName(action)), nil
		}
	}
	return Step{}, &InvalidStepKindError{Action: action}
}

// adaptFunc turns an arbitrary Go function into a Func, prepending the
// running value to its arguments.
func adaptFunc(fn any) Func {
	return func(current any, args ...any) (any, error) {
		return Invoke(fn, append([]any{current}, args...)...)
	}
}

func funcName(fn any) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return "func"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Prop appends a property step. Without args the member's value is used,
// or its result when it is callable; with args the member must be callable.
func (p *Pipeline) Prop(name string, args ...any) *Pipeline {
	return p.extend(PropertyOf(name, args...))
}

// Index appends a property step keyed by an integer, reading an element
// of a slice, array or string, or an integer-keyed map entry.
func (p *Pipeline) Index(i int, args ...any) *Pipeline {
	return p.extend(PropertyOf(i, args...))
}

// Func appends a function step.
func (p *Pipeline) Func(fn Func, args ...any) *Pipeline {
	return p.extend(FunctionOf(fn, args...))
}

// Then appends other as a nested step.
func (p *Pipeline) Then(other *Pipeline) *Pipeline {
	return p.extend(NestedOf(other))
}

// Fallback appends a fallback step. When the running value is nullish it
// is replaced by value, or by value's result if value is a Producer or a
// function taking zero or one argument. Zero values such as 0, "" and
// false are never replaced.
func (p *Pipeline) Fallback(value any) *Pipeline {
	return p.extend(FallbackOf(value))
}

// Call appends a step that invokes the running value with args when it is
// a function, and passes it through unchanged otherwise.
func (p *Pipeline) Call(args ...any) *Pipeline {
	return p.extend(FunctionOf(callCurrent, args...).withLabel("call"))
}

func callCurrent(current any, args ...any) (any, error) {
	if !IsCallable(current) {
		return current, nil
	}
	return Invoke(current, args...)
}

// Steps returns a copy of the recorded steps.
func (p *Pipeline) Steps() []Step {
	return slices.Clone(p.list())
}

// Len returns the number of steps.
func (p *Pipeline) Len() int {
	return len(p.list())
}

// IsEmpty returns true if the pipeline has no steps.
func (p *Pipeline) IsEmpty() bool {
	return p.Len() == 0
}

// Names returns a description of every step in order.
func (p *Pipeline) Names() []Name {
	steps := p.list()
	names := make([]Name, len(steps))
	for i, s := range steps {
		names[i] = s.String()
	}
	return names
}

// String describes the pipeline in expression form.
func (p *Pipeline) String() string {
	return strings.Join(p.Names(), ".")
}
