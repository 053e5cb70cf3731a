package syncadapter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_ReturnsValue(t *testing.T) {
	v, err := Call(context.Background(), func(ctx context.Context) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", v)
}

func TestCall_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Call(context.Background(), func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCall_RecoversPanic(t *testing.T) {
	_, err := Call(context.Background(), func(ctx context.Context) (int, error) {
		panic("resolver exploded")
	})
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "resolver exploded", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestCall_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	_, err := Call(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, nil
	}, WithTimeout(20*time.Millisecond))

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCall_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Call(ctx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return 1, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_FoldsFailures(t *testing.T) {
	var seen []error
	handler := WithErrorHandler(func(err error) { seen = append(seen, err) })

	v, ok := Resolve(context.Background(), func(ctx context.Context) (string, error) {
		return "ignored", errors.New("not readable")
	}, handler)
	assert.False(t, ok)
	assert.Empty(t, v)

	_, ok = Resolve(context.Background(), func(ctx context.Context) (string, error) {
		panic("again")
	}, handler)
	assert.False(t, ok)

	v, ok = Resolve(context.Background(), func(ctx context.Context) (string, error) {
		return "fine", nil
	}, handler)
	assert.True(t, ok)
	assert.Equal(t, "fine", v)

	require.Len(t, seen, 2)
}

func TestCall_ConcurrentCallsAreIndependent(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]int, 32)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := Call(context.Background(), func(ctx context.Context) (int, error) {
				time.Sleep(time.Duration(i%4) * time.Millisecond)
				return i * i, nil
			})
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	for i, v := range results {
		assert.Equal(t, i*i, v)
	}
}

func TestLimiter_BoundsInFlight(t *testing.T) {
	lim := NewLimiter(2)
	require.NotNil(t, lim)
	assert.Equal(t, int64(2), lim.Capacity())

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Call(context.Background(), func(ctx context.Context) (int, error) {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
				return 0, nil
			}, WithLimiter(lim))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestNewLimiter_Unbounded(t *testing.T) {
	assert.Nil(t, NewLimiter(0))
	assert.Equal(t, int64(0), NewLimiter(-1).Capacity())
}
