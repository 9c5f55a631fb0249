package chainz

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll(t *testing.T) {
	t.Run("Outputs Keep Input Order", func(t *testing.T) {
		runner := NewRunner("batch", New().Prop("TrimSpace").Prop("ToUpper").Fallback("none")).WithWorkers(4)
		defer runner.Close()

		inputs := []any{" a ", nil, "b", 7, " c"}
		outputs, err := runner.RunAll(context.Background(), inputs)
		require.NoError(t, err)
		assert.Equal(t, []any{"A", "none", "B", "none", "C"}, outputs)

		assert.Equal(t, float64(5), runner.Metrics().Counter(RunnerRunsTotal).Value())
		assert.Equal(t, float64(4), runner.Metrics().Gauge(RunnerWorkersMax).Value())
	})

	t.Run("Empty Input", func(t *testing.T) {
		runner := NewRunner("empty", New().Prop("ToUpper"))
		defer runner.Close()

		outputs, err := runner.RunAll(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, outputs)
	})

	t.Run("Worker Limit", func(t *testing.T) {
		var active, peak int64
		p := New().Func(func(current any, _ ...any) (any, error) {
			n := atomic.AddInt64(&active, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&active, -1)
			return current, nil
		})

		runner := NewRunner("limited", p).WithWorkers(2)
		defer runner.Close()

		inputs := make([]any, 10)
		for i := range inputs {
			inputs[i] = i
		}
		outputs, err := runner.RunAll(context.Background(), inputs)
		require.NoError(t, err)
		assert.Equal(t, inputs, outputs)
		assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
	})

	t.Run("Invalid Worker Count", func(t *testing.T) {
		runner := NewRunner("zero", New()).WithWorkers(0)
		defer runner.Close()
		assert.Equal(t, float64(1), runner.Metrics().Gauge(RunnerWorkersMax).Value())
	})

	t.Run("Canceled Context", func(t *testing.T) {
		runner := NewRunner("canceled", New().Prop("ToUpper"))
		defer runner.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		outputs, err := runner.RunAll(ctx, []any{"a", "b"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []any{nil, nil}, outputs)
		assert.Equal(t, float64(0), runner.Metrics().Counter(RunnerRunsTotal).Value())
	})
}
