// Package spin provides the busy-wait primitives used on short critical sections.
//
// # Backoff
//
// Wait escalates from spinning on the processor, to yielding the goroutine,
// to sleeping. The number of pause iterations in a spinning step is
// calibrated once per process against the monotonic clock:
//
//	var w spin.Wait
//	for !ready.Load() {
//	    w.Once()
//	}
//
// # Lock
//
// Lock is a compare-and-swap lock that waits with Wait. It implements
// sync.Locker and is meant for critical sections that never block or do I/O.
package spin
