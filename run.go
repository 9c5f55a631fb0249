package chainz

import (
	"fmt"
	"reflect"
)

// outcome is the result of executing one step. Only value crosses to the
// next step; a non-nil err collapses value to nil.
type outcome struct {
	value       any
	err         error
	skipped     bool
	substituted bool
}

// observer wraps the execution of each step of a run. exec must be called
// exactly once and its outcome returned unchanged.
type observer interface {
	observeStep(index int, step Step, input any, exec func() outcome) outcome
}

type evaluator struct {
	members  *Members
	observer observer
}

// Run executes the pipeline against input and returns the final value.
// Run never panics: a step that fails sets the running value to nil, which
// skips every following step until a fallback replaces it.
//
// Steps are applied in order:
//
//   - a fallback replaces a nullish running value and otherwise does nothing
//   - any other step is skipped while the running value is nullish
//   - a function step calls its function with the running value and args
//   - a property step with args calls the member as a method; a missing or
//     non-callable member yields nil
//   - a property step without args yields the member, or its zero-argument
//     result when the member is callable
func (p *Pipeline) Run(input any) any {
	return p.RunWith(input, DefaultMembers)
}

// RunWith is like Run but resolves extension members from members.
func (p *Pipeline) RunWith(input any, members *Members) any {
	return evaluator{members: members}.run(p.list(), input)
}

// ToFunction returns Run as a plain function.
func (p *Pipeline) ToFunction() func(any) any {
	return func(input any) any {
		return p.Run(input)
	}
}

func (e evaluator) run(steps []Step, input any) any {
	output := input
	for i, step := range steps {
		current := output
		exec := func() outcome {
			o := e.execute(step, current)
			if o.err != nil {
				o.value = nil
			}
			return o
		}
		if e.observer != nil {
			output = e.observer.observeStep(i, step, current, exec).value
		} else {
			output = exec().value
		}
	}
	return output
}

func (e evaluator) execute(step Step, current any) outcome {
	if step.Kind == FallbackStep {
		if !IsNullish(current) {
			return outcome{value: current}
		}
		v, err := resolveFallback(step.Value, current)
		return outcome{value: v, err: err, substituted: err == nil}
	}

	if IsNullish(current) {
		return outcome{value: current, skipped: true}
	}

	switch step.Kind {
	case FunctionStep:
		return e.callFunction(step, current)
	case NestedStep:
		nested := evaluator{members: e.members}
		return outcome{value: nested.run(step.Nested.list(), current)}
	case PropertyStep:
		return e.readProperty(step, current)
	default:
		return outcome{err: fmt.Errorf("unknown step kind %v", step.Kind)}
	}
}

func (evaluator) callFunction(step Step, current any) outcome {
	if step.Fn == nil {
		return outcome{err: fmt.Errorf("%w: nil function", ErrNotCallable)}
	}
	args, err := step.Args.Resolve(current)
	if err != nil {
		return outcome{err: err}
	}
	v, err := callFunc(step.Fn, current, args)
	return outcome{value: v, err: err}
}

func callFunc(fn Func, current any, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, &PanicError{Value: r}
		}
	}()
	return fn(current, args...)
}

func (e evaluator) readProperty(step Step, current any) outcome {
	member, found := Member(current, step.Key, e.members)

	if step.Args.Present() {
		if !found || !IsCallable(member) {
			return outcome{err: fmt.Errorf("%w: member %v called with arguments", ErrNotCallable, step.Key)}
		}
		args, err := step.Args.Resolve(current)
		if err != nil {
			return outcome{err: err}
		}
		v, err := Invoke(member, args...)
		return outcome{value: v, err: err}
	}

	if IsCallable(member) {
		v, err := Invoke(member)
		return outcome{value: v, err: err}
	}
	return outcome{value: member}
}

func resolveFallback(value, current any) (any, error) {
	produce, lazy := fallbackProducer(value)
	if !lazy {
		return value, nil
	}
	return produce(current)
}

// fallbackProducer recognises fallback values that are evaluated lazily:
// functions taking no argument or exactly the running value.
func fallbackProducer(value any) (func(any) (any, error), bool) {
	if !IsCallable(value) {
		return nil, false
	}
	t := reflect.TypeOf(value)
	switch {
	case t.NumIn() == 0:
		return func(any) (any, error) { return Invoke(value) }, true
	case t.NumIn() == 1:
		return func(current any) (any, error) { return Invoke(value, current) }, true
	default:
		return nil, false
	}
}
