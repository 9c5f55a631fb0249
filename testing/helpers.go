// Package testing provides test utilities and helpers for chainz-based applications.
//
// This package includes mock step functions, assertion helpers, and chaos testing
// tools to make testing chainz pipelines easier and more comprehensive.
//
// Example usage:
//
//	func TestMyPipeline(t *testing.T) {
//		mock := testing.NewMockFunc(t, "lookup").WithReturn("found", nil)
//
//		p := chainz.New().Prop("TrimSpace").Func(mock.Func())
//
//		testing.AssertOutput(t, p, "  key ", "found")
//		testing.AssertCalled(t, mock, 1)
//		testing.AssertLastInput(t, mock, "key")
//	}
package testing

import (
	"crypto/rand"
	"errors"
	"fmt"
	mathrand "math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/chainz"
)

// MockFunc provides a configurable mock chainz.Func.
// It tracks calls, allows configuring return values, errors and panics, and
// provides assertion helpers for testing pipeline behavior.
type MockFunc struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	t           *testing.T
	name        string
	callCount   int64
	lastInput   any
	lastArgs    []any
	returnVal   any
	returnErr   error
	passThrough bool
	panicMsg    string
	mu          sync.RWMutex
	callHistory []MockCall
	maxHistory  int
}

// MockCall represents a single call to the mock function.
type MockCall struct {
	Input     any
	Args      []any
	Timestamp time.Time
}

// NewMockFunc creates a new mock function for testing.
// Until configured otherwise the mock returns its input unchanged.
func NewMockFunc(t *testing.T, name string) *MockFunc {
	return &MockFunc{
		t:           t,
		name:        name,
		passThrough: true,
		maxHistory:  100, // Keep last 100 calls by default
	}
}

// WithReturn configures the mock to return specific values.
// The mock will return these values for all subsequent calls.
func (m *MockFunc) WithReturn(val any, err error) *MockFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.returnVal = val
	m.returnErr = err
	m.passThrough = false
	return m
}

// WithPanic configures the mock to panic with a specific message.
// This is useful for testing that a faulting step degrades to nil.
func (m *MockFunc) WithPanic(msg string) *MockFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panicMsg = msg
	return m
}

// WithHistorySize configures how many calls to keep in history.
// Set to 0 to disable history tracking.
func (m *MockFunc) WithHistorySize(size int) *MockFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxHistory = size
	if size == 0 {
		m.callHistory = nil
	} else if len(m.callHistory) > size {
		m.callHistory = m.callHistory[len(m.callHistory)-size:]
	}
	return m
}

// Name returns the name of the mock.
func (m *MockFunc) Name() chainz.Name {
	return m.name
}

// Func returns the mock as a step function.
func (m *MockFunc) Func() chainz.Func {
	return m.call
}

func (m *MockFunc) call(current any, args ...any) (any, error) {
	atomic.AddInt64(&m.callCount, 1)

	m.mu.Lock()
	m.lastInput = current
	m.lastArgs = append([]any(nil), args...)
	if m.maxHistory > 0 {
		m.callHistory = append(m.callHistory, MockCall{
			Input:     current,
			Args:      m.lastArgs,
			Timestamp: time.Now(),
		})
		if len(m.callHistory) > m.maxHistory {
			m.callHistory = m.callHistory[1:] // Remove oldest
		}
	}
	returnVal := m.returnVal
	returnErr := m.returnErr
	passThrough := m.passThrough
	panicMsg := m.panicMsg
	m.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}
	if passThrough {
		return current, nil
	}
	return returnVal, returnErr
}

// CallCount returns the number of times the mock has been called.
func (m *MockFunc) CallCount() int {
	return int(atomic.LoadInt64(&m.callCount))
}

// LastInput returns the running value from the most recent call.
func (m *MockFunc) LastInput() any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastInput
}

// LastArgs returns the resolved arguments from the most recent call.
func (m *MockFunc) LastArgs() []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]any(nil), m.lastArgs...)
}

// CallHistory returns a copy of all recorded calls.
// Returns nil if history tracking is disabled.
func (m *MockFunc) CallHistory() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.maxHistory == 0 {
		return nil
	}
	history := make([]MockCall, len(m.callHistory))
	copy(history, m.callHistory)
	return history
}

// Reset clears all call tracking.
func (m *MockFunc) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreInt64(&m.callCount, 0)
	m.lastInput = nil
	m.lastArgs = nil
	m.callHistory = nil
}

// Assertion Helpers

// AssertCalled verifies that a mock was called exactly n times.
func AssertCalled(t *testing.T, mock *MockFunc, expectedCalls int) {
	t.Helper()
	actualCalls := mock.CallCount()
	if actualCalls != expectedCalls {
		t.Errorf("expected mock %s to be called %d times, but was called %d times",
			mock.name, expectedCalls, actualCalls)
	}
}

// AssertNotCalled verifies that a mock was never called, typically because
// a preceding step left a nullish value.
func AssertNotCalled(t *testing.T, mock *MockFunc) {
	t.Helper()
	AssertCalled(t, mock, 0)
}

// AssertLastInput verifies the running value of the most recent call.
func AssertLastInput(t *testing.T, mock *MockFunc, expected any) {
	t.Helper()
	if mock.CallCount() == 0 {
		t.Errorf("expected mock %s to be called with input %v, but it was never called",
			mock.name, expected)
		return
	}
	if diff := cmp.Diff(expected, mock.LastInput()); diff != "" {
		t.Errorf("mock %s input mismatch (-want +got):\n%s", mock.name, diff)
	}
}

// AssertLastArgs verifies the resolved arguments of the most recent call.
func AssertLastArgs(t *testing.T, mock *MockFunc, expected ...any) {
	t.Helper()
	if mock.CallCount() == 0 {
		t.Errorf("expected mock %s to be called with args %v, but it was never called",
			mock.name, expected)
		return
	}
	got := mock.LastArgs()
	if len(expected) == 0 && len(got) == 0 {
		return
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("mock %s args mismatch (-want +got):\n%s", mock.name, diff)
	}
}

// AssertOutput runs p against input and compares the result with expected.
func AssertOutput(t *testing.T, p *chainz.Pipeline, input, expected any) {
	t.Helper()
	got := p.Run(input)
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("pipeline %s output mismatch (-want +got):\n%s", p, diff)
	}
}

// AssertNullish runs p against input and verifies the result is nullish.
func AssertNullish(t *testing.T, p *chainz.Pipeline, input any) {
	t.Helper()
	if got := p.Run(input); !chainz.IsNullish(got) {
		t.Errorf("pipeline %s: expected nullish output, got %#v", p, got)
	}
}

// ChaosFunc introduces controlled faults into a pipeline.
// It wraps another step function and randomly fails, panics or returns nil
// based on configured rates.
type ChaosFunc struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	name        string
	wrapped     chainz.Func
	failureRate float64
	panicRate   float64
	nilRate     float64
	rng         *mathrand.Rand
	mu          sync.Mutex
	totalCalls  int64
	failedCalls int64
	panicCalls  int64
	nilCalls    int64
}

// ChaosConfig holds configuration for chaos testing.
type ChaosConfig struct {
	FailureRate float64 // Probability of returning an error (0.0 to 1.0)
	PanicRate   float64 // Probability of panicking (0.0 to 1.0)
	NilRate     float64 // Probability of returning nil without an error (0.0 to 1.0)
	Seed        int64   // Random seed for reproducible chaos (0 for random seed)
}

// NewChaosFunc creates a chaos function wrapping fn.
func NewChaosFunc(name string, fn chainz.Func, config ChaosConfig) *ChaosFunc {
	seed := config.Seed
	if seed == 0 {
		var seedBytes [8]byte
		if _, err := rand.Read(seedBytes[:]); err != nil {
			seed = time.Now().UnixNano()
		} else {
			for _, b := range seedBytes {
				seed = seed<<8 | int64(b)
			}
		}
	}

	return &ChaosFunc{
		name:        name,
		wrapped:     fn,
		failureRate: config.FailureRate,
		panicRate:   config.PanicRate,
		nilRate:     config.NilRate,
		rng:         mathrand.New(mathrand.NewSource(seed)), //nolint:gosec // G404: Test utility uses weak RNG for deterministic chaos scenarios
	}
}

// Name returns the name of the chaos function.
func (c *ChaosFunc) Name() chainz.Name {
	return c.name
}

// Func returns the chaos function as a step function.
func (c *ChaosFunc) Func() chainz.Func {
	return c.call
}

func (c *ChaosFunc) call(current any, args ...any) (any, error) {
	atomic.AddInt64(&c.totalCalls, 1)

	c.mu.Lock()
	injectPanic := c.rng.Float64() < c.panicRate
	injectFailure := c.rng.Float64() < c.failureRate
	injectNil := c.rng.Float64() < c.nilRate
	c.mu.Unlock()

	switch {
	case injectPanic:
		atomic.AddInt64(&c.panicCalls, 1)
		panic("chaos function induced panic")
	case injectFailure:
		atomic.AddInt64(&c.failedCalls, 1)
		return nil, errors.New("chaos function induced failure")
	case injectNil:
		atomic.AddInt64(&c.nilCalls, 1)
		return nil, nil
	}
	return c.wrapped(current, args...)
}

// Stats returns statistics about chaos injection.
func (c *ChaosFunc) Stats() ChaosStats {
	return ChaosStats{
		TotalCalls:  atomic.LoadInt64(&c.totalCalls),
		FailedCalls: atomic.LoadInt64(&c.failedCalls),
		PanicCalls:  atomic.LoadInt64(&c.panicCalls),
		NilCalls:    atomic.LoadInt64(&c.nilCalls),
	}
}

// ChaosStats holds statistics about chaos injection.
type ChaosStats struct {
	TotalCalls  int64
	FailedCalls int64
	PanicCalls  int64
	NilCalls    int64
}

// FaultRate returns the share of calls that faulted or produced nil.
func (s ChaosStats) FaultRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.FailedCalls+s.PanicCalls+s.NilCalls) / float64(s.TotalCalls)
}

// String returns a human-readable representation of the stats.
func (s ChaosStats) String() string {
	return fmt.Sprintf("ChaosStats{Total: %d, Failed: %d, Panics: %d, Nil: %d (%.1f%% faults)}",
		s.TotalCalls, s.FailedCalls, s.PanicCalls, s.NilCalls, s.FaultRate()*100)
}

// Helper Functions

// ParallelTest runs a test function in parallel with multiple goroutines.
// Useful for checking that a shared pipeline is safe to run concurrently.
func ParallelTest(t *testing.T, goroutines int, testFunc func(int)) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}

	wg.Wait()
}
