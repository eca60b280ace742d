package tss

// Slot is a typed handle owning one registry key. Each thread sees its own
// *T under the slot. Values are passed to the destroy function when they are
// replaced, cleared, orphaned by Close, or orphaned by their thread's exit.
//
// A Slot must not be copied; use Move to transfer ownership of the key.
type Slot[T any] struct {
	reg     *Registry
	key     Key
	destroy func(*T)
}

// NewSlot creates a slot in r. destroy may be nil.
func NewSlot[T any](r *Registry, destroy func(*T)) *Slot[T] {
	s := &Slot[T]{reg: r, destroy: destroy}
	s.key = r.Create(Cleanup{Fn: func(v, _ any) {
		if p, ok := v.(*T); ok && p != nil && destroy != nil {
			destroy(p)
		}
	}})
	return s
}

// Key returns the underlying registry key, or InvalidKey after Move or Close.
func (s *Slot[T]) Key() Key { return s.key }

// Valid reports whether the slot still owns a key.
func (s *Slot[T]) Valid() bool { return s.key != InvalidKey }

// Get returns the calling thread's value, or nil.
func (s *Slot[T]) Get(c *Context) *T {
	p, _ := c.Get(s.key).(*T)
	return p
}

// Has reports whether the calling thread holds a value.
func (s *Slot[T]) Has(c *Context) bool {
	return s.Get(c) != nil
}

// Emplace destroys the calling thread's current value, if any, and installs
// a new one initialised to v.
func (s *Slot[T]) Emplace(c *Context, v T) *T {
	s.mustOwnKey()
	if old := s.Get(c); old != nil {
		s.destroyValue(old)
	}
	p := new(T)
	*p = v
	c.Set(s.key, p)
	return p
}

// GetOrInit returns the calling thread's value, installing init() first if
// the thread holds none.
func (s *Slot[T]) GetOrInit(c *Context, init func() T) *T {
	if p := s.Get(c); p != nil {
		return p
	}
	return s.Emplace(c, init())
}

// Clear removes and destroys the calling thread's value. The key survives.
func (s *Slot[T]) Clear(c *Context) {
	if p := s.Get(c); p != nil {
		c.Set(s.key, nil)
		s.destroyValue(p)
	}
}

// Reset replaces the calling thread's value with p, destroying the old one.
// Passing the current value is a no-op.
func (s *Slot[T]) Reset(c *Context, p *T) {
	s.mustOwnKey()
	old := s.Get(c)
	if old == p {
		return
	}
	if old != nil {
		s.destroyValue(old)
	}
	if p == nil {
		c.Set(s.key, nil)
		return
	}
	c.Set(s.key, p)
}

// Release removes the calling thread's value without destroying it and
// returns it to the caller.
func (s *Slot[T]) Release(c *Context) *T {
	p := s.Get(c)
	if p != nil {
		c.Set(s.key, nil)
	}
	return p
}

// Move transfers the key to a new handle. The receiver no longer owns a key;
// closing it is a no-op.
func (s *Slot[T]) Move() *Slot[T] {
	n := &Slot[T]{reg: s.reg, key: s.key, destroy: s.destroy}
	s.key = InvalidKey
	return n
}

// Close deletes the key, destroying the value every live thread holds under it.
func (s *Slot[T]) Close() error {
	if s.key == InvalidKey {
		return nil
	}
	key := s.key
	s.key = InvalidKey
	return s.reg.Delete(key)
}

func (s *Slot[T]) destroyValue(p *T) {
	if s.destroy != nil {
		s.destroy(p)
	}
}

func (s *Slot[T]) mustOwnKey() {
	if s.key == InvalidKey {
		panic("tss: use of closed or moved slot")
	}
}
