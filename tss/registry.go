package tss

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/kls/internal/conv"
	"github.com/hupe1980/kls/internal/spin"
)

// Key identifies a slot.
type Key uint32

// InvalidKey is never returned by Create. Deleting it is a no-op.
const InvalidKey Key = math.MaxUint32

// Cleanup is invoked with an orphaned value and the user data given at Create.
type Cleanup struct {
	Fn   func(value, user any)
	User any
}

// Valid reports whether the cleanup has a callback.
func (c Cleanup) Valid() bool { return c.Fn != nil }

func (c Cleanup) run(value any) { c.Fn(value, c.User) }

// Stats is a snapshot of registry bookkeeping.
type Stats struct {
	ActiveKeys uint64
	FreeKeys   int
	Contexts   int
}

// Registry maps keys to cleanups and tracks the live contexts.
//
// The registry lock guards the cleanup table, the key recycle stack and the
// context list as one unit. Cleanups never run while it is held.
type Registry struct {
	logger *slog.Logger

	mu       spin.Lock
	cleanups []Cleanup
	free     []Key
	active   *roaring.Bitmap
	head     *Context
	tail     *Context
	contexts int
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		logger: o.logger,
		active: roaring.New(),
	}
}

// Create allocates a key bound to cleanup. Recently deleted keys are reused first.
func (r *Registry) Create(cleanup Cleanup) Key {
	r.mu.Lock()
	defer r.mu.Unlock()

	var key Key
	if n := len(r.free); n > 0 {
		key = r.free[n-1]
		r.free = r.free[:n-1]
		r.cleanups[key] = cleanup
	} else {
		k, err := conv.ToUint32(len(r.cleanups))
		if err != nil || Key(k) == InvalidKey {
			panic("tss: key space exhausted")
		}
		key = Key(k)
		r.cleanups = append(r.cleanups, cleanup)
	}
	r.active.Add(uint32(key))
	return key
}

// Delete retires key. Every value stored under key in a live context is
// removed and passed to the key's cleanup after the registry lock has been
// released. The key becomes reusable once all cleanups returned.
//
// Deleting InvalidKey is a no-op; deleting an inactive key returns ErrUnknownKey.
func (r *Registry) Delete(key Key) error {
	if key == InvalidKey {
		return nil
	}

	r.mu.Lock()
	if !r.active.Contains(uint32(key)) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownKey, key)
	}
	r.active.Remove(uint32(key))

	cleanup := r.cleanups[key]
	r.cleanups[key] = Cleanup{}

	var orphans []any
	for c := r.head; c != nil; c = c.next {
		if int(key) < len(c.storage) && c.storage[key] != nil {
			if cleanup.Valid() {
				orphans = append(orphans, c.storage[key])
			}
			c.storage[key] = nil
		}
	}
	r.mu.Unlock()

	for _, v := range orphans {
		cleanup.run(v)
	}

	r.mu.Lock()
	r.free = append(r.free, key)
	r.mu.Unlock()

	r.logger.Debug("slot deleted", "key", key, "orphans", len(orphans))
	return nil
}

// Active reports whether key is currently allocated.
func (r *Registry) Active(key Key) bool {
	if key == InvalidKey {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active.Contains(uint32(key))
}

// Attach creates a context for the calling thread and registers it.
// The context must be closed when the thread is done with it.
func (r *Registry) Attach() *Context {
	c := &Context{reg: r}
	r.register(c)
	return c
}

// Stats returns a snapshot of the registry bookkeeping.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		ActiveKeys: r.active.GetCardinality(),
		FreeKeys:   len(r.free),
		Contexts:   r.contexts,
	}
}

func (r *Registry) register(c *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.head == nil {
		r.head = c
	} else {
		c.prev = r.tail
		r.tail.next = c
	}
	r.tail = c
	r.contexts++
}

func (r *Registry) unregister(c *Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.next != nil {
		c.next.prev = c.prev
	} else {
		r.tail = c.prev
	}
	if c.prev != nil {
		c.prev.next = c.next
	} else {
		r.head = c.next
	}
	c.prev, c.next = nil, nil
	r.contexts--
}
