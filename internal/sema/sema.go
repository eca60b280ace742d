// Package sema provides a counting semaphore with timed waits.
package sema

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/semaphore"
)

// Semaphore is a counting semaphore that starts at zero.
// Signal increments the count, Wait blocks until it can decrement it.
type Semaphore struct {
	w *semaphore.Weighted
}

// New creates a semaphore that can hold up to max pending signals.
// If max <= 0, the capacity is effectively unbounded.
func New(max int64) *Semaphore {
	if max <= 0 {
		max = math.MaxInt32
	}
	w := semaphore.NewWeighted(max)
	// Drain the full capacity so the count starts at zero.
	_ = w.Acquire(context.Background(), max)
	return &Semaphore{w: w}
}

// Signal increments the count, waking one waiter.
// Signalling past the capacity panics.
func (s *Semaphore) Signal() {
	s.w.Release(1)
}

// Wait blocks until a signal is available or ctx is done.
func (s *Semaphore) Wait(ctx context.Context) error {
	return s.w.Acquire(ctx, 1)
}

// TryWait consumes a pending signal without blocking.
func (s *Semaphore) TryWait() bool {
	return s.w.TryAcquire(1)
}

// WaitFor waits at most d for a signal and reports whether one was consumed.
func (s *Semaphore) WaitFor(d time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.w.Acquire(ctx, 1) == nil
}

// WaitUntil waits until deadline for a signal and reports whether one was consumed.
func (s *Semaphore) WaitUntil(deadline time.Time) bool {
	return s.WaitFor(time.Until(deadline))
}
