package chainz

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for the Runner.
const (
	// Metrics.
	RunnerRunsTotal      = metricz.Key("runner.runs.total")
	RunnerStepsTotal     = metricz.Key("runner.steps.total")
	RunnerSkippedTotal   = metricz.Key("runner.steps.skipped")
	RunnerFaultsTotal    = metricz.Key("runner.faults.total")
	RunnerFallbacksTotal = metricz.Key("runner.fallbacks.total")
	RunnerNullishTotal   = metricz.Key("runner.nullish.total")
	RunnerDurationMs     = metricz.Key("runner.duration.ms")
	RunnerWorkersMax     = metricz.Key("runner.workers.max")

	// Spans.
	RunnerRunSpan  = tracez.Key("runner.run")
	RunnerStepSpan = tracez.Key("runner.step")

	// Tags.
	RunnerTagStepCount = tracez.Tag("runner.step_count")
	RunnerTagStepIndex = tracez.Tag("runner.step_index")
	RunnerTagStepName  = tracez.Tag("runner.step_name")
	RunnerTagStepKind  = tracez.Tag("runner.step_kind")
	RunnerTagSkipped   = tracez.Tag("runner.skipped")
	RunnerTagError     = tracez.Tag("runner.error")
	RunnerTagNullish   = tracez.Tag("runner.nullish")

	// Hook event keys.
	RunnerEventStep     = hookz.Key("runner.step")
	RunnerEventFault    = hookz.Key("runner.fault")
	RunnerEventFallback = hookz.Key("runner.fallback")
	RunnerEventComplete = hookz.Key("runner.complete")
)

// RunEvent describes a step or a whole run.
// Step events carry StepIndex, StepName and Kind; complete events carry
// TotalSteps and the fault and fallback counts of the run.
type RunEvent struct {
	Timestamp   time.Time     // When the event occurred
	Input       any           // Running value before the step, or the run input
	Output      any           // Running value after the step, or the run result
	Err         error         // *StepError when the step faulted
	Name        Name          // Runner name
	StepName    string        // Step description
	StepIndex   int           // Zero-based step index
	TotalSteps  int           // Steps in the pipeline
	Kind        Kind          // Step kind
	Duration    time.Duration // Step or run duration
	Faults      int           // Faulted steps in the run (complete only)
	Fallbacks   int           // Applied fallbacks in the run (complete only)
	Skipped     bool          // Step skipped on a nullish value
	Substituted bool          // Fallback replaced the value
}

// Runner executes a pipeline with metrics, tracing and lifecycle hooks.
// Its results are exactly those of Pipeline.Run; observation never alters
// the running value. Faults that Run swallows become visible here as
// RunnerEventFault events carrying a *StepError.
//
// # Observability
//
// Metrics:
//   - runner.runs.total: Counter of runs
//   - runner.steps.total: Counter of executed steps
//   - runner.steps.skipped: Counter of steps skipped on a nullish value
//   - runner.faults.total: Counter of faulted steps
//   - runner.fallbacks.total: Counter of fallbacks that replaced a value
//   - runner.nullish.total: Counter of runs ending with a nullish value
//   - runner.duration.ms: Gauge of the last run's duration
//   - runner.workers.max: Gauge of the RunAll worker limit
//
// Traces:
//   - runner.run: Parent span for a run
//   - runner.step: Child span for each step
//
// Events (via hooks):
//   - runner.step: Fired after every step
//   - runner.fault: Fired when a step faults
//   - runner.fallback: Fired when a fallback replaces a value
//   - runner.complete: Fired when a run finishes
//
// Example:
//
//	runner := chainz.NewRunner("slug", slug)
//	defer runner.Close()
//
//	runner.OnFault(func(ctx context.Context, e chainz.RunEvent) error {
//	    log.Printf("step %s faulted: %v", e.StepName, e.Err)
//	    return nil
//	})
//
//	out := runner.Run(ctx, "  Hello World ")
type Runner struct {
	clock    clockz.Clock
	pipeline *Pipeline
	members  *Members
	metrics  *metricz.Registry
	tracer   *tracez.Tracer
	hooks    *hookz.Hooks[RunEvent]
	name     Name
	workers  int
	mu       sync.RWMutex
}

// NewRunner creates a Runner for pipeline.
func NewRunner(name Name, pipeline *Pipeline) *Runner {
	metrics := metricz.New()
	metrics.Counter(RunnerRunsTotal)
	metrics.Counter(RunnerStepsTotal)
	metrics.Counter(RunnerSkippedTotal)
	metrics.Counter(RunnerFaultsTotal)
	metrics.Counter(RunnerFallbacksTotal)
	metrics.Counter(RunnerNullishTotal)
	metrics.Gauge(RunnerDurationMs)
	metrics.Gauge(RunnerWorkersMax).Set(1)

	return &Runner{
		workers:  1,
		name:     name,
		pipeline: pipeline,
		members:  DefaultMembers,
		clock:    clockz.RealClock,
		metrics:  metrics,
		tracer:   tracez.New(),
		hooks:    hookz.New[RunEvent](),
	}
}

// WithClock sets a custom clock for testing.
func (r *Runner) WithClock(clock clockz.Clock) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = clock
	return r
}

// WithMembers sets the extension member registry used by runs.
func (r *Runner) WithMembers(members *Members) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = members
	return r
}

// SetPipeline replaces the pipeline. Runs already in progress finish with
// the pipeline they started with.
func (r *Runner) SetPipeline(pipeline *Pipeline) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pipeline = pipeline
	return r
}

// Pipeline returns the current pipeline.
func (r *Runner) Pipeline() *Pipeline {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pipeline
}

// Name returns the name of this runner.
func (r *Runner) Name() Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

// Run executes the pipeline against input. The context carries tracing and
// hook state only; a run is synchronous and cannot be canceled.
func (r *Runner) Run(ctx context.Context, input any) any {
	r.mu.RLock()
	pipeline := r.pipeline
	members := r.members
	clock := r.clock
	r.mu.RUnlock()

	if ctx == nil {
		ctx = context.Background()
	}

	steps := pipeline.list()
	r.metrics.Counter(RunnerRunsTotal).Inc()
	start := clock.Now()

	ctx, span := r.tracer.StartSpan(ctx, RunnerRunSpan)
	span.SetTag(RunnerTagStepCount, strconv.Itoa(len(steps)))

	trace := &runTrace{runner: r, ctx: ctx, clock: clock, total: len(steps)}
	output := evaluator{members: members, observer: trace}.run(steps, input)

	elapsed := clock.Since(start)
	r.metrics.Gauge(RunnerDurationMs).Set(float64(elapsed.Milliseconds()))
	nullish := IsNullish(output)
	if nullish {
		r.metrics.Counter(RunnerNullishTotal).Inc()
	}
	span.SetTag(RunnerTagNullish, strconv.FormatBool(nullish))
	span.Finish()

	_ = r.hooks.Emit(ctx, RunnerEventComplete, RunEvent{ //nolint:errcheck
		Name:       r.name,
		Input:      input,
		Output:     output,
		TotalSteps: len(steps),
		Faults:     trace.faults,
		Fallbacks:  trace.fallbacks,
		Duration:   elapsed,
		Timestamp:  clock.Now(),
	})

	return output
}

// runTrace observes the steps of a single run.
type runTrace struct {
	ctx       context.Context
	clock     clockz.Clock
	runner    *Runner
	total     int
	faults    int
	fallbacks int
}

func (t *runTrace) observeStep(index int, step Step, input any, exec func() outcome) outcome {
	r := t.runner
	name := step.String()
	r.metrics.Counter(RunnerStepsTotal).Inc()

	_, span := r.tracer.StartSpan(t.ctx, RunnerStepSpan)
	span.SetTag(RunnerTagStepIndex, strconv.Itoa(index))
	span.SetTag(RunnerTagStepName, name)
	span.SetTag(RunnerTagStepKind, step.Kind.String())

	start := t.clock.Now()
	o := exec()
	elapsed := t.clock.Since(start)

	event := RunEvent{
		Name:        r.name,
		StepName:    name,
		StepIndex:   index,
		TotalSteps:  t.total,
		Kind:        step.Kind,
		Input:       input,
		Output:      o.value,
		Skipped:     o.skipped,
		Substituted: o.substituted,
		Duration:    elapsed,
		Timestamp:   t.clock.Now(),
	}

	span.SetTag(RunnerTagSkipped, strconv.FormatBool(o.skipped))
	if o.skipped {
		r.metrics.Counter(RunnerSkippedTotal).Inc()
	}

	if o.err != nil {
		t.faults++
		event.Err = &StepError{
			Timestamp: event.Timestamp,
			Input:     input,
			Err:       o.err,
			Step:      name,
			Index:     index,
		}
		span.SetTag(RunnerTagError, o.err.Error())
		r.metrics.Counter(RunnerFaultsTotal).Inc()
		_ = r.hooks.Emit(t.ctx, RunnerEventFault, event) //nolint:errcheck
	}

	if o.substituted {
		t.fallbacks++
		r.metrics.Counter(RunnerFallbacksTotal).Inc()
		_ = r.hooks.Emit(t.ctx, RunnerEventFallback, event) //nolint:errcheck
	}

	span.Finish()
	_ = r.hooks.Emit(t.ctx, RunnerEventStep, event) //nolint:errcheck
	return o
}

// Metrics returns the metrics registry for this runner.
func (r *Runner) Metrics() *metricz.Registry {
	return r.metrics
}

// Tracer returns the tracer for this runner.
func (r *Runner) Tracer() *tracez.Tracer {
	return r.tracer
}

// Close gracefully shuts down observability components.
func (r *Runner) Close() error {
	if r.tracer != nil {
		r.tracer.Close()
	}
	r.hooks.Close()
	return nil
}

// OnStep registers a handler called asynchronously after every step.
func (r *Runner) OnStep(handler func(context.Context, RunEvent) error) error {
	_, err := r.hooks.Hook(RunnerEventStep, handler)
	return err
}

// OnFault registers a handler called asynchronously when a step faults.
// The event's Err is a *StepError.
func (r *Runner) OnFault(handler func(context.Context, RunEvent) error) error {
	_, err := r.hooks.Hook(RunnerEventFault, handler)
	return err
}

// OnFallback registers a handler called asynchronously when a fallback
// replaces a nullish value.
func (r *Runner) OnFallback(handler func(context.Context, RunEvent) error) error {
	_, err := r.hooks.Hook(RunnerEventFallback, handler)
	return err
}

// OnComplete registers a handler called asynchronously when a run ends.
func (r *Runner) OnComplete(handler func(context.Context, RunEvent) error) error {
	_, err := r.hooks.Hook(RunnerEventComplete, handler)
	return err
}
