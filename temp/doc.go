// Package temp provides per-thread transient arenas backed by pooled blocks.
//
// # Allocation
//
// An Arena bump-allocates from the block it currently owns. Allocate must
// only be called by the arena's owning goroutine and never synchronises.
// When the current block is full the arena flushes it and rents another one
// from its blockpool.Pool.
//
//	a := temp.NewArena(pool)
//	defer a.Close() // thread exit
//
//	buf, err := a.Allocate(256)
//	...
//	go func() {
//	    defer buf.Free() // any goroutine
//	    ...
//	}()
//
// # Release Protocol
//
// Allocate never touches shared state; it only counts hand-outs privately.
// The count is published to the block's in-flight counter when the arena
// flushes the block (on replenish and on Close). Free retires one hand-out.
// Frees may arrive before or after the publish. The call that brings the
// counter to zero after the publish, whether the flush itself or the last
// Free, returns the block to its pool. No lock is involved.
//
// # Limits
//
// A request larger than blockpool.Capacity after alignment fails with
// ErrTooLarge. Block memory is invisible to the garbage collector, so New
// and NewSlice reject types that contain Go pointers.
//
// Freeing an allocation twice, or using it after Free, is undefined.
package temp
