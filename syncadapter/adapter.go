package syncadapter

import (
	"context"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTimeout is returned when a callback does not finish within the timeout.
var ErrTimeout = stderrors.New("callback timed out")

// PanicError carries a recovered callback panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("callback panicked: %v", e.Value)
}

// Limiter bounds the number of concurrently blocked calls.
type Limiter struct {
	sem *semaphore.Weighted
	n   int64
}

// NewLimiter allows n calls in flight. n <= 0 returns nil, which means unbounded.
func NewLimiter(n int64) *Limiter {
	if n <= 0 {
		return nil
	}
	return &Limiter{sem: semaphore.NewWeighted(n), n: n}
}

// Capacity is the number of calls the limiter admits at once.
func (l *Limiter) Capacity() int64 {
	if l == nil {
		return 0
	}
	return l.n
}

type config struct {
	limiter *Limiter
	onError func(error)
	timeout time.Duration
}

// Option configures a single call.
type Option func(*config)

// WithTimeout bounds how long the caller blocks. Zero or negative waits forever.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithLimiter makes the call take a slot from l before starting.
func WithLimiter(l *Limiter) Option {
	return func(c *config) {
		c.limiter = l
	}
}

// WithErrorHandler observes failures folded away by Resolve.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) {
		c.onError = fn
	}
}

type outcome[T any] struct {
	err   error
	value T
}

// Call runs fn on its own goroutine and blocks until it returns, the timeout
// fires or ctx is done.
func Call[T any](ctx context.Context, fn func(context.Context) (T, error), opts ...Option) (T, error) {
	var zero T
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.limiter != nil {
		if err := cfg.limiter.sem.Acquire(ctx, 1); err != nil {
			return zero, err
		}
		defer cfg.limiter.sem.Release(1)
	}

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome[T]{err: &PanicError{Value: p, Stack: debug.Stack()}}
			}
		}()
		v, err := fn(ctx)
		done <- outcome[T]{value: v, err: err}
	}()

	var timeout <-chan time.Time
	if cfg.timeout > 0 {
		timer := time.NewTimer(cfg.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-done:
		return out.value, out.err
	case <-timeout:
		return zero, ErrTimeout
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Resolve is Call for engine callbacks: any failure becomes "no result".
func Resolve[T any](ctx context.Context, fn func(context.Context) (T, error), opts ...Option) (T, bool) {
	v, err := Call(ctx, fn, opts...)
	if err != nil {
		cfg := config{}
		for _, opt := range opts {
			opt(&cfg)
		}
		if cfg.onError != nil {
			cfg.onError(err)
		}
		var zero T
		return zero, false
	}
	return v, true
}
