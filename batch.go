package chainz

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WithWorkers sets how many inputs RunAll evaluates concurrently.
// Values below one mean one worker.
func (r *Runner) WithWorkers(workers int) *Runner {
	if workers <= 0 {
		workers = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers = workers
	r.metrics.Gauge(RunnerWorkersMax).Set(float64(workers))
	return r
}

// RunAll runs the pipeline against every input using at most the configured
// number of workers, and returns the outputs in input order. Every run is
// observed exactly like Run.
//
// Canceling ctx stops inputs that have not started yet; their outputs are
// nil and ctx's error is returned alongside the partial results.
func (r *Runner) RunAll(ctx context.Context, inputs []any) ([]any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	r.mu.RLock()
	workers := r.workers
	r.mu.RUnlock()

	outputs := make([]any, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, input := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outputs[i] = r.Run(ctx, input)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outputs, err
	}
	return outputs, ctx.Err()
}
