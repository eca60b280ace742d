package kls

import (
	"context"
	"runtime"
	"time"

	"github.com/hupe1980/kls/internal/sema"
	"github.com/hupe1980/kls/temp"
	"github.com/hupe1980/kls/tss"
)

// Thread owns one slot context and one arena. The slot context and the
// arena are created on first use.
type Thread struct {
	id     uint64
	rt     *Runtime
	logger *Logger

	slots  *tss.Context
	arena  *temp.Arena
	exited bool
	done   *sema.Semaphore
}

func (rt *Runtime) newThread() *Thread {
	id := rt.nextThread.Add(1)
	rt.threads.Add(1)
	rt.metrics.RecordThreadStart()
	return &Thread{
		id:     id,
		rt:     rt,
		logger: rt.logger.WithThread(id),
		done:   sema.New(1),
	}
}

// Attach creates a Thread owned by the calling goroutine. The caller must
// call Exit when done; it should also hold runtime.LockOSThread if values
// are tied to the OS thread.
func (rt *Runtime) Attach() *Thread {
	return rt.newThread()
}

// Go runs fn on a new goroutine locked to its OS thread and exits the
// Thread when fn returns, even if it panics. The returned Thread may only
// be used for ID and Wait.
func (rt *Runtime) Go(fn func(t *Thread)) *Thread {
	t := rt.newThread()
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer t.Exit()

		fn(t)
	}()
	return t
}

// ID returns a runtime-unique thread number.
func (t *Thread) ID() uint64 { return t.id }

// Runtime returns the runtime the thread belongs to.
func (t *Thread) Runtime() *Runtime { return t.rt }

// GetSlotValue returns the thread's value under key, or nil.
func (t *Thread) GetSlotValue(key Key) any {
	if t.slots == nil {
		return nil
	}
	return t.slots.Get(key)
}

// SetSlotValue stores value under key. Setting nil unsets the key without
// running its cleanup. Replacing a value does not clean up the old one.
// It panics after Exit.
func (t *Thread) SetSlotValue(key Key, value any) {
	if t.slots == nil {
		if value == nil {
			return
		}
		t.mustBeRunning()
		t.slots = t.rt.registry.Attach()
	}
	t.slots.Set(key, value)
}

// Slots returns the thread's slot context, attaching it on first use.
// It panics after Exit.
func (t *Thread) Slots() *tss.Context {
	if t.slots == nil {
		t.mustBeRunning()
		t.slots = t.rt.registry.Attach()
	}
	return t.slots
}

// Allocate returns size bytes of arena memory aligned to 16 bytes. The
// memory is uninitialised and must be released with Free, from any
// goroutine.
func (t *Thread) Allocate(size int) (Allocation, error) {
	a, err := t.Arena()
	if err != nil {
		return Allocation{}, err
	}
	al, err := a.Allocate(size)
	t.observeAllocation(size, err)
	return al, err
}

func (t *Thread) observeAllocation(size int, err error) {
	t.rt.metrics.RecordAllocation(size, err)
	if err != nil {
		t.logger.LogAllocationFailure(size, err)
	}
}

// Arena returns the thread's arena, creating it on first use.
func (t *Thread) Arena() (*temp.Arena, error) {
	if t.exited {
		return nil, ErrThreadExited
	}
	if t.arena == nil {
		t.arena = temp.NewArena(t.rt.pool, temp.WithLogger(t.logger.Logger))
	}
	return t.arena, nil
}

// Exit runs the thread-exit sequence: cleanups of all slot values first,
// since they may free arena memory, then the arena flush. Allocations
// still outstanding stay valid until freed. Exit is idempotent.
func (t *Thread) Exit() {
	if t.exited {
		return
	}
	start := time.Now()

	slots := 0
	if t.slots != nil {
		slots = t.slots.Close()
	}
	var blocks uint64
	if t.arena != nil {
		t.arena.Close()
		blocks = t.arena.Stats().BlocksRented
	}
	t.exited = true

	elapsed := time.Since(start)
	t.rt.threads.Add(-1)
	t.rt.metrics.RecordThreadExit(elapsed)
	t.logger.LogThreadExit(slots, blocks, elapsed)

	t.done.Signal()
}

// Wait blocks until the thread exited or ctx is done.
// It may be called from any goroutine, any number of times.
func (t *Thread) Wait(ctx context.Context) error {
	if err := t.done.Wait(ctx); err != nil {
		return err
	}
	t.done.Signal()
	return nil
}

func (t *Thread) mustBeRunning() {
	if t.exited {
		panic(ErrThreadExited)
	}
}
