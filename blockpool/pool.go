package blockpool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/kls/internal/mem"
	"github.com/hupe1980/kls/internal/mmap"
	"github.com/hupe1980/kls/internal/resource"
	"github.com/hupe1980/kls/internal/spin"
)

// Stats is a snapshot of pool activity.
//
//   - Blocks: blocks currently reserved (rented + idle)
//   - Idle: blocks waiting for reuse
//   - Rented: blocks currently held by arenas
//   - Rents/Returns: cumulative counts
//   - Exhausted: cumulative Rent failures due to the memory limit
type Stats struct {
	Blocks        uint64
	Idle          uint64
	Rented        uint64
	Rents         uint64
	Returns       uint64
	Exhausted     uint64
	BytesReserved int64
}

type atomicStats struct {
	Blocks    atomic.Uint64
	Rented    atomic.Uint64
	Rents     atomic.Uint64
	Returns   atomic.Uint64
	Exhausted atomic.Uint64
}

// Pool hands out and recycles fixed-size blocks.
type Pool struct {
	opts   options
	rc     *resource.Controller
	logger *slog.Logger
	warn   *rate.Limiter
	heap   atomic.Bool

	mu     spin.Lock
	idle   []*Block
	closed bool

	nextID atomic.Uint64
	stats  atomicStats
}

// New creates a pool.
func New(opts ...Option) *Pool {
	o := options{
		maxIdle:   DefaultMaxIdle,
		logger:    slog.New(slog.DiscardHandler),
		warnEvery: time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Pool{
		opts:   o,
		rc:     resource.NewController(o.resourceConfig()),
		logger: o.logger,
		warn:   rate.NewLimiter(rate.Every(o.warnEvery), 1),
		idle:   make([]*Block, 0, o.maxIdle),
	}
	p.heap.Store(o.heap)
	return p
}

// Rent returns a block for exclusive use by the caller. The block's
// in-flight counter is zero and its payload is uninitialised.
func (p *Pool) Rent() (*Block, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	var b *Block
	if n := len(p.idle); n > 0 {
		b = p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
	}
	p.mu.Unlock()

	if b == nil {
		var err error
		if b, err = p.allocate(); err != nil {
			return nil, err
		}
	}

	if !b.state.CompareAndSwap(stateIdle, stateRented) {
		panic("blockpool: rented block is not idle")
	}
	b.Flying().Reset()

	p.stats.Rents.Add(1)
	p.stats.Rented.Add(1)
	return b, nil
}

// Return hands a rented block back. Each rented block must be returned
// exactly once; a second return panics.
func (p *Pool) Return(b *Block) {
	if b.pool != p {
		panic("blockpool: block returned to a foreign pool")
	}
	if !b.state.CompareAndSwap(stateRented, stateIdle) {
		panic(fmt.Sprintf("blockpool: block %d returned twice", b.id))
	}

	p.stats.Returns.Add(1)
	p.stats.Rented.Add(^uint64(0))

	// Decommit before the block becomes visible to Rent.
	if p.opts.decommit && b.mapping != nil {
		if err := b.mapping.Advise(mmap.AccessDontNeed); err != nil {
			p.logger.Debug("decommit failed", "block", b.id, "error", err)
		}
	}

	p.mu.Lock()
	if !p.closed && len(p.idle) < p.opts.maxIdle {
		p.idle = append(p.idle, b)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if err := p.release(b); err != nil {
		p.logger.Warn("release block failed", "error", err)
	}
}

// Stats returns the current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()

	return Stats{
		Blocks:        p.stats.Blocks.Load(),
		Idle:          uint64(idle),
		Rented:        p.stats.Rented.Load(),
		Rents:         p.stats.Rents.Load(),
		Returns:       p.stats.Returns.Load(),
		Exhausted:     p.stats.Exhausted.Load(),
		BytesReserved: p.rc.MemoryUsage(),
	}
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (p *Pool) MemoryLimit() int64 {
	return p.rc.MemoryLimit()
}

// Close releases all idle blocks. Blocks still rented are released when
// they are returned. Rent fails with ErrClosed afterwards.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, b := range idle {
		if err := p.release(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pool) allocate() (*Block, error) {
	if err := p.rc.TryAcquireMemory(BlockSize); err != nil {
		p.stats.Exhausted.Add(1)
		if p.warn.Allow() {
			p.logger.Warn("block pool exhausted",
				"limit", p.rc.MemoryLimit(),
				"rented", p.stats.Rented.Load(),
			)
		}
		return nil, fmt.Errorf("%w: %w", ErrPoolExhausted, err)
	}

	id := p.nextID.Add(1)

	if !p.heap.Load() {
		m, err := mmap.MapAnon(BlockSize)
		switch {
		case err == nil:
			p.stats.Blocks.Add(1)
			p.logger.Debug("block mapped", "block", id)
			return newBlock(id, m.Bytes(), m, p), nil
		case errors.Is(err, errors.ErrUnsupported):
			p.heap.Store(true)
			p.logger.Info("anonymous mappings unsupported, using heap blocks")
		default:
			p.rc.ReleaseMemory(BlockSize)
			return nil, fmt.Errorf("blockpool: map block: %w", err)
		}
	}

	p.stats.Blocks.Add(1)
	p.logger.Debug("block allocated on heap", "block", id)
	return newBlock(id, mem.AllocAligned(BlockSize), nil, p), nil
}

func (p *Pool) release(b *Block) error {
	err := b.free()
	p.rc.ReleaseMemory(BlockSize)
	p.stats.Blocks.Add(^uint64(0))
	p.logger.Debug("block released", "block", b.id, "mapped", b.mapping != nil)
	if err != nil {
		return fmt.Errorf("blockpool: unmap block %d: %w", b.id, err)
	}
	return nil
}
