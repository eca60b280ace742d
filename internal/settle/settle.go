// Package settle implements the credit-then-settle counter that decides which
// participant releases a shared resource.
//
// The owner counts its hand-outs privately and publishes the total once,
// when it stops handing out. Every consumer retires one hand-out. Retires
// may arrive before or after the publish, so the counter can go negative.
// Exactly one call, the one that brings the counter back to zero after
// the publish, observes settled == true and must release the resource.
package settle

import "sync/atomic"

// Counter is a signed in-flight counter. The zero value is ready to use.
//
// A Counter may live in memory that is not managed by the Go runtime; it
// has no pointers and is valid at any 4-byte aligned address.
type Counter struct {
	flying atomic.Int32
}

// Publish credits n outstanding hand-outs. It reports whether all of them
// were already retired, in which case the caller owns the release.
func (c *Counter) Publish(n int32) (settled bool) {
	prev := c.flying.Add(n) - n
	return prev == -n
}

// Retire settles one hand-out. It reports whether this was the last
// outstanding one after the owner published, in which case the caller
// owns the release.
func (c *Counter) Retire() (settled bool) {
	prev := c.flying.Add(-1) + 1
	return prev == 1
}

// Load returns the current counter value.
func (c *Counter) Load() int32 {
	return c.flying.Load()
}

// Reset zeroes the counter for a new tenancy. It must only be called by the
// party that observed settled == true, before handing the resource out again.
func (c *Counter) Reset() {
	c.flying.Store(0)
}
