package integration

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoobzio/chainz"
	chainztesting "github.com/zoobzio/chainz/testing"
)

// TestConcurrentPipelineSwap swaps a runner's pipeline while runs are in
// flight. Each run must finish with the pipeline it started with.
func TestConcurrentPipelineSwap(t *testing.T) {
	var slowCalls, fastCalls int32

	slow := chainz.New().Func(func(current any, _ ...any) (any, error) {
		atomic.AddInt32(&slowCalls, 1)
		time.Sleep(50 * time.Millisecond)
		return current.(int) * 2, nil
	})
	fast := chainz.New().Func(func(current any, _ ...any) (any, error) {
		atomic.AddInt32(&fastCalls, 1)
		return current.(int) * 10, nil
	})

	runner := chainz.NewRunner("swap", slow)
	defer runner.Close()

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = runner.Run(context.Background(), 5)
		}(i)
	}

	time.Sleep(25 * time.Millisecond)
	runner.SetPipeline(fast)
	after := runner.Run(context.Background(), 5)

	wg.Wait()

	for i, r := range results {
		if r != 10 && r != 50 {
			t.Errorf("unexpected result at index %d: %v", i, r)
		}
	}
	if after != 50 {
		t.Errorf("expected run after swap to use the new pipeline, got %v", after)
	}
	if atomic.LoadInt32(&slowCalls)+atomic.LoadInt32(&fastCalls) != 11 {
		t.Errorf("expected 11 calls, got %d slow and %d fast", slowCalls, fastCalls)
	}
	if runner.Pipeline() != fast {
		t.Error("expected runner to hold the new pipeline")
	}
}

// TestConcurrentExtension builds many pipelines from one shared base at the
// same time and runs each of them while the base keeps being used.
func TestConcurrentExtension(t *testing.T) {
	base := chainz.New().Prop("TrimSpace").Prop("ToLower")

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sep := fmt.Sprint(idx)
			p := base.Prop("Split", " ").Prop("Join", sep)
			want := "a" + sep + "b"
			if got := p.Run("  A B "); got != want {
				errs <- fmt.Errorf("pipeline %d: expected %q, got %v", idx, want, got)
			}
			if got := base.Run(" X "); got != "x" {
				errs <- fmt.Errorf("base changed under goroutine %d: got %v", idx, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if base.Len() != 2 {
		t.Errorf("expected base to keep 2 steps, got %d", base.Len())
	}
}

// TestConcurrentMemberDefinition registers extension members while
// pipelines resolve members from the same registry.
func TestConcurrentMemberDefinition(t *testing.T) {
	members := chainz.Builtins()
	p := chainz.New().Prop("ToUpper")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			members.Define(reflect.String, fmt.Sprintf("Member%d", idx), func(s string) string { return s })
		}(i)
		go func() {
			defer wg.Done()
			if got := p.RunWith("abc", members); got != "ABC" {
				t.Errorf("expected ABC, got %v", got)
			}
		}()
	}
	wg.Wait()
}

// TestConcurrentArgumentWrites runs one pipeline from many goroutines while
// its functions overwrite the argument slices they receive. Every run must
// still see the recorded arguments. Run with -race.
func TestConcurrentArgumentWrites(t *testing.T) {
	scribble := func(current any, args ...any) (any, error) {
		out := fmt.Sprintf("%v:%v", current, args[0])
		args[0] = current
		return out, nil
	}
	overwrite := func(args ...any) (any, error) {
		out := args[0]
		args[0] = nil
		return out, nil
	}

	byFunc := chainz.New().Func(scribble, "arg")
	byCall := chainz.New().Call("arg")

	chainztesting.ParallelTest(t, 50, func(id int) {
		for i := 0; i < 20; i++ {
			want := fmt.Sprintf("%d:arg", id)
			if got := byFunc.Run(id); got != want {
				t.Errorf("goroutine %d: expected %s, got %v", id, want, got)
			}
			if got := byCall.Run(overwrite); got != "arg" {
				t.Errorf("goroutine %d: expected arg, got %v", id, got)
			}
		}
	})

	if got := byFunc.Steps()[0].Args.Values(); len(got) != 1 || got[0] != "arg" {
		t.Errorf("recorded args changed: %v", got)
	}
	if got := byCall.Steps()[0].Args.Values(); len(got) != 1 || got[0] != "arg" {
		t.Errorf("recorded args changed: %v", got)
	}
}
