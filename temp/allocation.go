package temp

import "github.com/hupe1980/kls/blockpool"

// Allocation is a handle to arena memory. It carries the block it was cut
// from, so it can be freed from any goroutine.
type Allocation struct {
	blk *blockpool.Block
	buf []byte
}

// Bytes returns the allocated memory. Its capacity equals its length.
func (al Allocation) Bytes() []byte { return al.buf }

// Len returns the requested size.
func (al Allocation) Len() int { return len(al.buf) }

// IsZero reports whether al is the zero Allocation.
func (al Allocation) IsZero() bool { return al.blk == nil }

// Free is a shorthand for Free(al).
func (al Allocation) Free() { Free(al) }

// Free releases an allocation. It may be called from any goroutine, once per
// allocation. Freeing the zero Allocation is a no-op.
func Free(al Allocation) {
	if al.blk == nil {
		return
	}
	if al.blk.Flying().Retire() {
		al.blk.Release()
	}
}
