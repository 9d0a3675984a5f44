// package ratelimit implements sliding-window admission control for provider APIs.
//
// A [Limiter] combines three mechanisms: a rolling window of request
// timestamps capping throughput, a weighted semaphore bounding concurrent
// in-flight calls, and an exponential backoff retry loop around each
// operation. Every provider client owns one Limiter instance; all calls to
// that provider flow through it.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// interChunkPause is the fixed provider-friendliness margin inserted between
// batch chunks, beyond what the window algorithm enforces.
const interChunkPause = 100 * time.Millisecond

// Config tunes a [Limiter] for a single provider.
type Config struct {
	MaxRequests       int           // Maximum requests per window
	Window            time.Duration // Sliding window duration
	InitialBackoff    time.Duration // First retry delay
	MaxBackoff        time.Duration // Retry delay cap
	BackoffMultiplier float64       // Growth factor per attempt, > 1.0
	MaxRetries        int           // Retries after the initial attempt
}

// DefaultConfig returns a conservative general-purpose configuration.
func DefaultConfig() Config {
	return Config{
		MaxRequests:       100,
		Window:            time.Minute,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		MaxRetries:        3,
	}
}

// SpotifyConfig returns the tuning used for the Spotify Web API.
func SpotifyConfig() Config {
	return Config{
		MaxRequests:       100,
		Window:            time.Minute,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		MaxRetries:        3,
	}
}

// YouTubeConfig returns the tuning used for the YouTube Data API.
func YouTubeConfig() Config {
	return Config{
		MaxRequests:       100,
		Window:            100 * time.Second,
		InitialBackoff:    300 * time.Millisecond,
		MaxBackoff:        15 * time.Second,
		BackoffMultiplier: 1.5,
		MaxRetries:        3,
	}
}

// MaxConcurrent returns the concurrency budget for this configuration:
// max(1, min(MaxRequests/4, 10)). The floor guards against a zero budget
// when MaxRequests < 4, which would deadlock every caller.
func (c Config) MaxConcurrent() int {
	n := c.MaxRequests / 4
	if n > 10 {
		n = 10
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Backoff returns the delay before retrying the given zero-based attempt:
// min(InitialBackoff × BackoffMultiplier^attempt, MaxBackoff).
func (c Config) Backoff(attempt int) time.Duration {
	ms := float64(c.InitialBackoff.Milliseconds()) * math.Pow(c.BackoffMultiplier, float64(attempt))
	d := time.Duration(ms) * time.Millisecond
	if d > c.MaxBackoff {
		return c.MaxBackoff
	}
	return d
}

// Limiter enforces a provider's rate limit across concurrent callers.
//
// The timestamp tracker and the semaphore are shared by every call through
// one provider client; construct one Limiter per provider instance rather
// than a process-wide singleton so tests can isolate state.
type Limiter struct {
	config Config
	sem    *semaphore.Weighted

	mu       sync.Mutex
	requests []time.Time // admission timestamps, oldest first
}

// New creates a Limiter with the given configuration.
func New(config Config) *Limiter {
	return &Limiter{
		config: config,
		sem:    semaphore.NewWeighted(int64(config.MaxConcurrent())),
	}
}

// Config returns the limiter's configuration.
func (l *Limiter) Config() Config {
	return l.config
}

// windowWait purges timestamps older than the window and returns how long the
// caller must wait before admission, or zero if the window has capacity.
// Callers must not hold the lock while sleeping.
func (l *Limiter) windowWait(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := 0
	for i < len(l.requests) && now.Sub(l.requests[i]) > l.config.Window {
		i++
	}
	l.requests = l.requests[i:]

	if len(l.requests) >= l.config.MaxRequests {
		return l.config.Window - now.Sub(l.requests[0])
	}
	return 0
}

// record notes a successful request at the current time.
func (l *Limiter) record() {
	l.mu.Lock()
	l.requests = append(l.requests, time.Now())
	l.mu.Unlock()
}

// Execute runs op under admission control with exponential backoff retries.
//
// One concurrency slot is held for the entire retry loop, not released
// between attempts; this favors strict concurrency bounding over maximal
// throughput. The slot is released when Execute returns, including on
// context cancellation, so an abandoned call never leaks its slot.
func (l *Limiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	for attempt := 0; ; attempt++ {
		if wait := l.windowWait(time.Now()); wait > 0 {
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}

		err := op(ctx)
		if err == nil {
			l.record()
			return nil
		}

		if attempt >= l.config.MaxRetries {
			return err
		}

		if serr := sleep(ctx, l.config.Backoff(attempt)); serr != nil {
			return serr
		}
	}
}

// Result holds the outcome of one batched operation.
type Result[T any] struct {
	Value T
	Err   error
}

// Do runs a value-returning operation through the limiter.
func Do[T any](ctx context.Context, l *Limiter, op func(context.Context) (T, error)) (T, error) {
	var value T
	err := l.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// DoBatch partitions ops into chunks of batchSize and runs each chunk's
// operations concurrently through the limiter, pausing briefly between
// chunks. Results are returned in input order; each operation fails or
// succeeds independently of its siblings.
func DoBatch[T any](ctx context.Context, l *Limiter, ops []func(context.Context) (T, error), batchSize int) []Result[T] {
	if batchSize <= 0 {
		batchSize = 1
	}

	results := make([]Result[T], len(ops))

	for start := 0; start < len(ops); start += batchSize {
		end := start + batchSize
		if end > len(ops) {
			end = len(ops)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := Do(ctx, l, ops[i])
				results[i] = Result[T]{Value: v, Err: err}
			}(i)
		}
		wg.Wait()

		if end < len(ops) {
			if err := sleep(ctx, interChunkPause); err != nil {
				for i := end; i < len(ops); i++ {
					results[i] = Result[T]{Err: err}
				}
				return results
			}
		}
	}

	return results
}

// sleep suspends the calling goroutine for d, returning early if ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
