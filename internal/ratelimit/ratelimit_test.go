package ratelimit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		MaxRequests:       2,
		Window:            500 * time.Millisecond,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2.0,
		MaxRetries:        1,
	}
}

func TestConfigMaxConcurrent(t *testing.T) {
	t.Run("quarter of max requests", func(t *testing.T) {
		c := Config{MaxRequests: 20}
		if got := c.MaxConcurrent(); got != 5 {
			t.Errorf("expected 5, got %d", got)
		}
	})

	t.Run("capped at 10", func(t *testing.T) {
		c := Config{MaxRequests: 100}
		if got := c.MaxConcurrent(); got != 10 {
			t.Errorf("expected 10, got %d", got)
		}
	})

	t.Run("floored at 1 for small windows", func(t *testing.T) {
		c := Config{MaxRequests: 2}
		if got := c.MaxConcurrent(); got != 1 {
			t.Errorf("expected 1, got %d", got)
		}
	})
}

func TestConfigBackoff(t *testing.T) {
	c := Config{
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}

	t.Run("attempt 0 is initial", func(t *testing.T) {
		if got := c.Backoff(0); got != 100*time.Millisecond {
			t.Errorf("expected 100ms, got %v", got)
		}
	})

	t.Run("attempt 1 doubles", func(t *testing.T) {
		if got := c.Backoff(1); got != 200*time.Millisecond {
			t.Errorf("expected 200ms, got %v", got)
		}
	})

	t.Run("clamped at max", func(t *testing.T) {
		clamped := c
		clamped.MaxBackoff = 150 * time.Millisecond
		if got := clamped.Backoff(2); got != 150*time.Millisecond {
			t.Errorf("expected 150ms, got %v", got)
		}
	})
}

func TestLimiterExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds within window", func(t *testing.T) {
		l := New(testConfig())

		for i := 0; i < 2; i++ {
			if err := l.Execute(ctx, func(context.Context) error { return nil }); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
	})

	t.Run("delays call exceeding window", func(t *testing.T) {
		l := New(testConfig())
		start := time.Now()

		for i := 0; i < 3; i++ {
			if err := l.Execute(ctx, func(context.Context) error { return nil }); err != nil {
				t.Fatalf("call %d failed: %v", i, err)
			}
		}

		// Third call must wait until the window has elapsed since the oldest
		// counted call.
		if elapsed := time.Since(start); elapsed < 400*time.Millisecond {
			t.Errorf("expected third call to be delayed, elapsed %v", elapsed)
		}
	})

	t.Run("retries until success", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxRetries = 3
		l := New(cfg)

		var calls int32
		err := l.Execute(ctx, func(context.Context) error {
			if atomic.AddInt32(&calls, 1) < 3 {
				return errors.New("transient")
			}
			return nil
		})

		if err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 attempts, got %d", calls)
		}
	})

	t.Run("propagates error after max retries", func(t *testing.T) {
		l := New(testConfig())

		var calls int32
		wantErr := errors.New("permanent")
		err := l.Execute(ctx, func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return wantErr
		})

		if !errors.Is(err, wantErr) {
			t.Fatalf("expected permanent error, got %v", err)
		}
		// Initial attempt plus MaxRetries.
		if calls != 2 {
			t.Errorf("expected 2 attempts, got %d", calls)
		}
	})

	t.Run("failed calls are not recorded in the window", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxRetries = 0
		l := New(cfg)

		for i := 0; i < 5; i++ {
			l.Execute(ctx, func(context.Context) error { return errors.New("nope") })
		}

		start := time.Now()
		if err := l.Execute(ctx, func(context.Context) error { return nil }); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("expected no window delay after failures, waited %v", elapsed)
		}
	})

	t.Run("cancellation releases the slot", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxRequests = 2 // budget of 1 concurrent slot
		l := New(cfg)

		blocked, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		started := make(chan struct{})
		go func() {
			done <- l.Execute(blocked, func(c context.Context) error {
				close(started)
				<-c.Done()
				return c.Err()
			})
		}()

		<-started
		cancel()
		if err := <-done; err == nil {
			t.Fatal("expected error from cancelled call")
		}

		// The slot must be free for the next caller.
		next, cancelNext := context.WithTimeout(ctx, time.Second)
		defer cancelNext()
		if err := l.Execute(next, func(context.Context) error { return nil }); err != nil {
			t.Fatalf("expected slot to be released, got %v", err)
		}
	})
}

func TestDo(t *testing.T) {
	ctx := context.Background()
	l := New(testConfig())

	t.Run("returns value", func(t *testing.T) {
		v, err := Do(ctx, l, func(context.Context) (string, error) { return "ok", nil })
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v != "ok" {
			t.Errorf("expected 'ok', got %s", v)
		}
	})

	t.Run("returns zero value on error", func(t *testing.T) {
		v, err := Do(ctx, l, func(context.Context) (string, error) { return "partial", errors.New("failed") })
		if err == nil {
			t.Fatal("expected error")
		}
		if v != "" {
			t.Errorf("expected zero value, got %s", v)
		}
	})
}

func TestDoBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("results match input order", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxRequests = 40
		l := New(cfg)

		ops := make([]func(context.Context) (int, error), 10)
		for i := range ops {
			i := i
			ops[i] = func(context.Context) (int, error) { return i, nil }
		}

		results := DoBatch(ctx, l, ops, 3)
		if len(results) != 10 {
			t.Fatalf("expected 10 results, got %d", len(results))
		}
		for i, r := range results {
			if r.Err != nil {
				t.Fatalf("op %d failed: %v", i, r.Err)
			}
			if r.Value != i {
				t.Errorf("expected result %d at index %d, got %d", i, i, r.Value)
			}
		}
	})

	t.Run("one failure does not abort siblings", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxRequests = 40
		cfg.MaxRetries = 0
		l := New(cfg)

		wantErr := errors.New("boom")
		ops := []func(context.Context) (int, error){
			func(context.Context) (int, error) { return 1, nil },
			func(context.Context) (int, error) { return 0, wantErr },
			func(context.Context) (int, error) { return 3, nil },
		}

		results := DoBatch(ctx, l, ops, 3)

		if results[0].Err != nil || results[2].Err != nil {
			t.Error("expected sibling operations to succeed")
		}
		if !errors.Is(results[1].Err, wantErr) {
			t.Errorf("expected op 1 to fail with boom, got %v", results[1].Err)
		}
	})

	t.Run("pauses between chunks", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxRequests = 40
		l := New(cfg)

		ops := make([]func(context.Context) (int, error), 4)
		for i := range ops {
			ops[i] = func(context.Context) (int, error) { return 0, nil }
		}

		start := time.Now()
		DoBatch(ctx, l, ops, 2)
		if elapsed := time.Since(start); elapsed < interChunkPause {
			t.Errorf("expected inter-chunk pause, elapsed %v", elapsed)
		}
	})
}
