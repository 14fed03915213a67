// Package gate implements the process-wide single-writer serialization
// primitive: one holder at a time, FIFO-fair waiters, a bounded wait
// expressed as a TTL in milliseconds.
package gate

import (
	"context"
	"fmt"
	"time"
)

// ErrTimeout is returned by Acquire when ttl elapses before the gate is
// granted.
var ErrTimeout = fmt.Errorf("gate: acquire timed out")

// Gate is a mutual-exclusion primitive with a timed, FIFO-ordered
// acquire. The zero value is not usable; construct with New.
//
// The implementation is a size-1 buffered channel used as a token: the
// channel starts holding one token, Acquire receives it (blocking until
// available or ttl elapses), Release sends it back. Because Go channels
// release waiting receivers in FIFO order, this gives fair ordering
// without a separate wait queue.
type Gate struct {
	tokens chan struct{}
}

// New constructs an unlocked Gate.
func New() *Gate {
	g := &Gate{tokens: make(chan struct{}, 1)}
	g.tokens <- struct{}{}
	return g
}

// Release is a function that must be called exactly once to release the
// gate. Calling it a second time is a programmer error; this
// implementation accepts at most one real release and silently no-ops on
// further calls rather than panicking.
type Release func()

// Acquire blocks until the gate is available or ttlMillis elapses,
// whichever comes first. ttlMillis must be a positive number of whole
// milliseconds; a non-positive value is rejected as a caller error.
func (g *Gate) Acquire(ttlMillis int64) (Release, error) {
	if ttlMillis <= 0 {
		return nil, fmt.Errorf("gate: ttl must be positive, got %d", ttlMillis)
	}

	timer := time.NewTimer(time.Duration(ttlMillis) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-g.tokens:
		released := false
		return func() {
			if released {
				return
			}
			released = true
			g.tokens <- struct{}{}
		}, nil
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// AcquireContext behaves like Acquire but also respects ctx cancellation,
// for callers (e.g. HTTP handlers) that want request cancellation to
// unblock a pending acquire in addition to the TTL.
func (g *Gate) AcquireContext(ctx context.Context, ttlMillis int64) (Release, error) {
	if ttlMillis <= 0 {
		return nil, fmt.Errorf("gate: ttl must be positive, got %d", ttlMillis)
	}

	timer := time.NewTimer(time.Duration(ttlMillis) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-g.tokens:
		released := false
		return func() {
			if released {
				return
			}
			released = true
			g.tokens <- struct{}{}
		}, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
