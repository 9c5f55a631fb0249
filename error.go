package chainz

import (
	"errors"
	"fmt"
	"time"
)

// Build errors. These are returned immediately by the builder methods.
var (
	ErrInvalidStepKind = errors.New("pipelines can only be built with functions or property accessors")
	ErrProtectedName   = errors.New("name is reserved by the pipeline")
	ErrSyntax          = errors.New("invalid pipeline expression")
)

// Run faults. These never escape Run; they are carried by step outcomes
// and surfaced to Runner hooks.
var (
	ErrNotCallable  = errors.New("value is not callable")
	ErrArity        = errors.New("wrong number of arguments")
	ErrArgumentType = errors.New("argument type mismatch")
	ErrPanic        = errors.New("panic during invocation")
)

// InvalidStepKindError reports the action that could not be classified
// as a function or a property key.
type InvalidStepKindError struct {
	Action any
}

func (e *InvalidStepKindError) Error() string {
	if e.Action == nil {
		return fmt.Sprintf("%v: got nil", ErrInvalidStepKind)
	}
	return fmt.Sprintf("%v: got %T", ErrInvalidStepKind, e.Action)
}

func (*InvalidStepKindError) Unwrap() error {
	return ErrInvalidStepKind
}

// SyntaxError describes a malformed pipeline expression.
type SyntaxError struct {
	Expr   string
	Msg    string
	Offset int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v at offset %d in %q: %s", ErrSyntax, e.Offset, e.Expr, e.Msg)
}

func (*SyntaxError) Unwrap() error {
	return ErrSyntax
}

// PanicError wraps a value recovered from a panicking call.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v: %v", ErrPanic, e.Value)
}

func (e *PanicError) Unwrap() []error {
	if err, ok := e.Value.(error); ok {
		return []error{ErrPanic, err}
	}
	return []error{ErrPanic}
}

// StepError provides context about a step that faulted during a run.
// The running value becomes nil when a StepError is produced; the error
// itself is only observable through Runner events.
type StepError struct {
	Timestamp time.Time
	Input     any
	Err       error
	Step      string
	Index     int
}

// Error implements the error interface, providing a detailed error message.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s) faulted: %v", e.Index, e.Step, e.Err)
}

// Unwrap returns the underlying error, supporting error wrapping patterns.
func (e *StepError) Unwrap() error {
	return e.Err
}
