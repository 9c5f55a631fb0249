package chainz

import (
	"context"

	"github.com/rs/zerolog"
)

// LogEvents subscribes logger to the runner's events. Faults and applied
// fallbacks are logged at debug level, completed runs at trace level.
// Pipeline.Run itself never logs.
func LogEvents(r *Runner, logger zerolog.Logger) error {
	logger = logger.With().Str("runner", r.Name()).Logger()

	if err := r.OnFault(func(_ context.Context, e RunEvent) error {
		logger.Debug().
			Err(e.Err).
			Int("step_index", e.StepIndex).
			Str("step", e.StepName).
			Str("kind", e.Kind.String()).
			Msg("step faulted")
		return nil
	}); err != nil {
		return err
	}

	if err := r.OnFallback(func(_ context.Context, e RunEvent) error {
		logger.Debug().
			Int("step_index", e.StepIndex).
			Str("step", e.StepName).
			Interface("value", e.Output).
			Msg("fallback applied")
		return nil
	}); err != nil {
		return err
	}

	return r.OnComplete(func(_ context.Context, e RunEvent) error {
		logger.Trace().
			Int("steps", e.TotalSteps).
			Int("faults", e.Faults).
			Int("fallbacks", e.Fallbacks).
			Bool("nullish", IsNullish(e.Output)).
			Dur("duration", e.Duration).
			Msg("run complete")
		return nil
	})
}
