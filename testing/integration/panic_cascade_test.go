package integration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/chainz"
)

type account struct {
	Owner   *owner
	Balance int
}

type owner struct {
	Name string
}

func (o *owner) Initials() string {
	if o.Name == "" {
		panic("owner has no name")
	}
	return strings.ToUpper(o.Name[:1])
}

// TestPanicCascade checks that a panic raised at any layer of a run is
// contained in the step that raised it.
func TestPanicCascade(t *testing.T) {
	t.Run("Method panic degrades to nil", func(t *testing.T) {
		p := chainz.New().Prop("Owner").Prop("Initials")

		if got := p.Run(account{Owner: &owner{Name: "ada"}}); got != "A" {
			t.Errorf("expected A, got %v", got)
		}
		if got := p.Run(account{Owner: &owner{}}); got != nil {
			t.Errorf("expected nil after panic, got %v", got)
		}
		if got := p.Run(account{}); !chainz.IsNullish(got) {
			t.Errorf("expected nullish for missing owner, got %v", got)
		}
	})

	t.Run("Panic inside nested pipeline", func(t *testing.T) {
		inner := chainz.New().Func(func(any, ...any) (any, error) {
			panic("inner failure")
		})
		p := chainz.New().Prop("Balance").Then(inner).Fallback(-1)

		if got := p.Run(account{Balance: 10}); got != -1 {
			t.Errorf("expected fallback -1, got %v", got)
		}
	})

	t.Run("Panic inside deferred arguments", func(t *testing.T) {
		args := chainz.Deferred(func(any) any {
			panic("cannot compute args")
		})
		p := chainz.New().Prop("Repeat", args).Fallback("none")

		if got := p.Run("ab"); got != "none" {
			t.Errorf("expected none, got %v", got)
		}
	})

	t.Run("Panic inside fallback producer", func(t *testing.T) {
		p := chainz.New().
			Fallback(func() any { panic("no default") }).
			Fallback("second")

		if got := p.Run(nil); got != "second" {
			t.Errorf("expected second, got %v", got)
		}
	})

	t.Run("Runner reports every layer", func(t *testing.T) {
		p := chainz.New().
			Prop("Owner").
			Prop("Initials").
			Fallback("?").
			Prop("Repeat", "x").
			Fallback("!")

		runner := chainz.NewRunner("cascade", p)
		defer runner.Close()

		var mu sync.Mutex
		var faults []*chainz.StepError
		if err := runner.OnFault(func(_ context.Context, e chainz.RunEvent) error {
			var stepErr *chainz.StepError
			if errors.As(e.Err, &stepErr) {
				mu.Lock()
				faults = append(faults, stepErr)
				mu.Unlock()
			}
			return nil
		}); err != nil {
			t.Fatalf("failed to register hook: %v", err)
		}

		if got := runner.Run(context.Background(), account{Owner: &owner{}}); got != "!" {
			t.Errorf("expected !, got %v", got)
		}

		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			mu.Lock()
			n := len(faults)
			mu.Unlock()
			if n == 2 {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}

		mu.Lock()
		defer mu.Unlock()
		if len(faults) != 2 {
			t.Fatalf("expected 2 faults, got %d", len(faults))
		}
		indexes := map[int]bool{faults[0].Index: true, faults[1].Index: true}
		if !indexes[1] || !indexes[3] {
			t.Errorf("expected faults at steps 1 and 3, got %v", indexes)
		}
		for _, f := range faults {
			if f.Index == 1 && !errors.Is(f, chainz.ErrPanic) {
				t.Errorf("expected panic fault at step 1, got %v", f.Err)
			}
			if f.Index == 3 && !errors.Is(f, chainz.ErrArgumentType) {
				t.Errorf("expected argument type fault at step 3, got %v", f.Err)
			}
		}
	})
}
