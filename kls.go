package kls

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/kls/blockpool"
	"github.com/hupe1980/kls/temp"
	"github.com/hupe1980/kls/tss"
)

// Key identifies a slot. Keys of deleted slots are reused.
type Key = tss.Key

// InvalidKey is never returned by CreateSlot.
const InvalidKey = tss.InvalidKey

// Allocation is a handle to arena memory. See Free.
type Allocation = temp.Allocation

// Stats is a snapshot of a Runtime.
type Stats struct {
	Slots   tss.Stats
	Blocks  blockpool.Stats
	Threads int64 // attached threads that have not exited
}

// Runtime owns a slot registry and the block pool feeding thread arenas.
// It is safe for concurrent use.
type Runtime struct {
	opts     options
	registry *tss.Registry
	pool     *blockpool.Pool
	ownsPool bool
	logger   *Logger
	metrics  MetricsCollector

	nextThread atomic.Uint64
	threads    atomic.Int64
}

// New creates a Runtime.
func New(optFns ...Option) *Runtime {
	opts := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		maxIdleBlocks:    blockpool.DefaultMaxIdle,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	rt := &Runtime{
		opts:     opts,
		logger:   opts.logger,
		metrics:  opts.metricsCollector,
		registry: tss.NewRegistry(tss.WithLogger(opts.logger.With("component", "tss"))),
		pool:     opts.pool,
	}
	if rt.pool == nil {
		rt.pool = blockpool.New(opts.poolOptions()...)
		rt.ownsPool = true
	}
	return rt
}

var defaultRuntime = sync.OnceValue(func() *Runtime { return New() })

// Default returns the process-wide Runtime, creating it on first use.
// It is never closed.
func Default() *Runtime {
	return defaultRuntime()
}

// CreateSlot allocates a key whose orphaned values are passed to
// cleanup(value, user). cleanup may be nil.
func (rt *Runtime) CreateSlot(cleanup func(value, user any), user any) Key {
	key := rt.registry.Create(tss.Cleanup{Fn: cleanup, User: user})
	rt.metrics.RecordSlotCreate()
	return key
}

// DeleteSlot retires key and runs its cleanup on the value every live
// thread holds under it. The cleanups run on the calling goroutine after
// the registry lock is released. No thread may Get or Set key concurrently.
func (rt *Runtime) DeleteSlot(key Key) error {
	start := time.Now()
	err := rt.registry.Delete(key)
	rt.observeDelete(key, time.Since(start), err)
	return err
}

func (rt *Runtime) observeDelete(key Key, elapsed time.Duration, err error) {
	rt.metrics.RecordSlotDelete(elapsed, err)
	rt.logger.LogSlotDelete(key, err)
}

// Registry returns the underlying slot registry.
func (rt *Runtime) Registry() *tss.Registry { return rt.registry }

// Pool returns the block pool used by thread arenas.
func (rt *Runtime) Pool() *blockpool.Pool { return rt.pool }

// Stats returns a snapshot of the runtime.
func (rt *Runtime) Stats() Stats {
	return Stats{
		Slots:   rt.registry.Stats(),
		Blocks:  rt.pool.Stats(),
		Threads: rt.threads.Load(),
	}
}

// Close releases the idle blocks of a pool created by New. Threads still
// running keep their blocks until they exit and their allocations are freed.
func (rt *Runtime) Close() error {
	if !rt.ownsPool {
		return nil
	}
	return rt.pool.Close()
}

// CreateSlot creates a slot on the Default runtime.
func CreateSlot(cleanup func(value, user any), user any) Key {
	return Default().CreateSlot(cleanup, user)
}

// DeleteSlot deletes a slot of the Default runtime.
func DeleteSlot(key Key) error {
	return Default().DeleteSlot(key)
}

// Go runs fn on a new Thread of the Default runtime.
func Go(fn func(t *Thread)) *Thread {
	return Default().Go(fn)
}

// Free releases an allocation. It may be called from any goroutine, once
// per allocation. Freeing the zero Allocation is a no-op.
func Free(al Allocation) {
	temp.Free(al)
}
