// Package chainz provides deferred, reusable pipelines of member accesses,
// method calls and function applications in Go.
//
// # Overview
//
// A Pipeline records steps now and runs them later against any input. The
// same pipeline can be run many times, extended into new pipelines and
// shared between goroutines: every builder method returns a new Pipeline
// and never modifies its receiver.
//
// Running is forgiving. A nil value anywhere in the chain skips the
// remaining steps, and a step that fails (an error, a panic, a missing
// method) turns the running value into nil instead of stopping the program.
// Fallback steps put a value back.
//
// # Steps
//
// Four kinds of step exist:
//
//   - Property: read a member of the running value (map entry, slice or
//     string index, struct field, method, or extension member). With
//     arguments the member is called as a method.
//   - Function: call a function with the running value and arguments.
//   - Nested: run another pipeline against the running value.
//   - Fallback: replace a nil running value; otherwise do nothing.
//
// Arguments are literal values or a single deferred producer computed from
// the running value at run time (see Deferred).
//
// # Usage Example
//
//	slug := chainz.New().
//	    Prop("TrimSpace").
//	    Prop("ToLower").
//	    Prop("Fields").
//	    Prop("Join", "-")
//
//	slug.Run("  Hello World ") // "hello-world"
//
//	title := chainz.New().Prop("Post").Prop("Title").Then(slug).Fallback("untitled")
//	title.Run(page)            // "my-first-post", or "untitled" when Post is nil
//
// The same pipeline in expression form:
//
//	slug := chainz.MustCompile(`TrimSpace.ToLower.Fields.Join("-")`)
//
// # Members
//
// Go strings, slices and numbers have no methods, so member lookups fall
// back to a registry of extension members. The built-in prelude covers the
// everyday ones (ToUpper, Split, Join, Len, ...); Members.Define adds more.
// Lookups also match names with the first letter upper-cased, so "split"
// finds Split.
//
// # Observability
//
// Pipeline.Run is silent. A Runner executes a pipeline with metrics
// (metricz), tracing spans (tracez) and asynchronous hooks (hookz) that
// report every step, fault and fallback; LogEvents forwards those events to
// a zerolog logger. Runner.RunAll evaluates a batch of inputs on a bounded
// number of workers.
//
// # Concurrency
//
// Pipelines are immutable and safe for concurrent use. Members and Runner
// guard their state with read-write mutexes. Values passed through a
// pipeline are not copied, so running a pipeline concurrently over shared
// mutable data is only as safe as the member functions it calls.
package chainz
