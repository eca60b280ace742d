package temp

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/kls/blockpool"
	"github.com/hupe1980/kls/internal/mem"
)

// Stats counts arena activity since creation.
type Stats struct {
	Allocations  uint64 // cumulative Allocate calls served
	BytesServed  uint64 // cumulative aligned bytes
	BlocksRented uint64
	Flushes      uint64
	Released     uint64 // flushes that returned the block immediately
	Offset       int    // bump offset within the current block
	Pending      int32  // allocations served from the current block
}

// Arena is a bump allocator over one rented block at a time.
// It is owned by a single goroutine; only Free may be called elsewhere.
type Arena struct {
	pool   *blockpool.Pool
	logger *slog.Logger

	current *blockpool.Block
	head    int
	count   int32
	closed  bool
	stats   Stats
}

// Option configures an Arena.
type Option func(*Arena)

// WithLogger sets the arena logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Arena) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewArena creates an arena drawing blocks from pool. No block is rented
// until the first allocation.
func NewArena(pool *blockpool.Pool, opts ...Option) *Arena {
	a := &Arena{
		pool:   pool,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate returns size bytes, aligned to mem.MaxAlign. The contents are
// uninitialised. A zero size yields the zero Allocation.
func (a *Arena) Allocate(size int) (Allocation, error) {
	if a.closed {
		return Allocation{}, ErrClosed
	}
	if size < 0 {
		return Allocation{}, &AllocationError{Size: size, Limit: blockpool.Capacity, cause: ErrInvalidSize}
	}
	if size == 0 {
		return Allocation{}, nil
	}

	aligned := int(mem.AlignUp(uintptr(size), mem.MaxAlign))
	if aligned > blockpool.Capacity {
		return Allocation{}, &AllocationError{Size: size, Limit: blockpool.Capacity, cause: ErrTooLarge}
	}

	for {
		if a.current != nil {
			if end := a.head + aligned; end <= blockpool.Capacity {
				buf := a.current.Payload()[a.head : a.head+size : a.head+size]
				a.head = end
				a.count++
				a.stats.Allocations++
				a.stats.BytesServed += uint64(aligned)
				return Allocation{blk: a.current, buf: buf}, nil
			}
		}
		if err := a.replenish(); err != nil {
			return Allocation{}, err
		}
	}
}

// Remaining returns the number of bytes left in the current block.
func (a *Arena) Remaining() int {
	if a.current == nil {
		return 0
	}
	return blockpool.Capacity - a.head
}

// Stats returns the arena counters.
func (a *Arena) Stats() Stats {
	s := a.stats
	s.Offset = a.head
	s.Pending = a.count
	return s
}

// Pool returns the pool the arena rents from.
func (a *Arena) Pool() *blockpool.Pool { return a.pool }

// Close flushes the current block and discards the cursor. Outstanding
// allocations stay valid until freed. Close is idempotent.
func (a *Arena) Close() {
	if a.closed {
		return
	}
	a.flush()
	a.closed = true
}

func (a *Arena) replenish() error {
	a.flush()

	b, err := a.pool.Rent()
	if err != nil {
		return fmt.Errorf("temp: replenish: %w", err)
	}
	a.current = b
	a.head = 0
	a.count = 0
	a.stats.BlocksRented++
	return nil
}

// flush publishes the allocation count of the current block. If every
// allocation was already freed, the block goes back to the pool right away;
// otherwise the last Free returns it.
func (a *Arena) flush() {
	b := a.current
	if b == nil {
		return
	}
	n := a.count

	a.current = nil
	a.head = 0
	a.count = 0
	a.stats.Flushes++

	// b must not be touched after Publish unless this call settled it.
	id := b.ID()
	if b.Flying().Publish(n) {
		a.stats.Released++
		b.Release()
		a.logger.Debug("block settled on flush", "block", id, "allocations", n)
		return
	}
	a.logger.Debug("block flushed", "block", id, "allocations", n)
}
