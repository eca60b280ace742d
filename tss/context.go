package tss

// Context is one thread's slot storage. Get and Set must only be called by
// the owning goroutine.
type Context struct {
	reg        *Registry
	prev, next *Context
	storage    []any
	closed     bool
}

// Registry returns the registry the context is attached to.
func (c *Context) Registry() *Registry { return c.reg }

// Get returns the value stored under key, or nil if none is set.
func (c *Context) Get(key Key) any {
	if int64(key) < int64(len(c.storage)) {
		return c.storage[key]
	}
	return nil
}

// Set stores value under key. Setting nil unsets the key without running
// its cleanup. Set panics on a closed context.
func (c *Context) Set(key Key, value any) {
	if c.closed {
		panic("tss: set on closed context")
	}
	if int64(key) >= int64(len(c.storage)) {
		if value == nil {
			return
		}
		c.grow(key)
	}
	c.storage[key] = value
}

// grow publishes a larger storage array. The copy and the swap happen under
// the registry lock so a concurrent Delete never scans or clears a stale array.
func (c *Context) grow(key Key) {
	n := int(key) + 1
	if m := 2 * len(c.storage); m > n {
		n = m
	}
	next := make([]any, n)

	c.reg.mu.Lock()
	copy(next, c.storage)
	c.storage = next
	c.reg.mu.Unlock()
}

// Len returns the number of non-nil values held by the context. It takes
// the registry lock, since Delete may clear values of a live context.
func (c *Context) Len() int {
	c.reg.mu.Lock()
	defer c.reg.mu.Unlock()

	n := 0
	for _, v := range c.storage {
		if v != nil {
			n++
		}
	}
	return n
}

type orphan struct {
	cleanup Cleanup
	value   any
}

// Close runs the cleanups of all values held by the context and unregisters
// it. Cleanups may set new values on the closing context; those are cleaned
// up as well until a pass finds no values. Close returns the number of
// values it drained; closing a closed context drains nothing.
func (c *Context) Close() int {
	if c.closed {
		return 0
	}

	r := c.reg
	passes, drained := 0, 0
	for {
		passes++

		r.mu.Lock()
		storage := c.storage
		c.storage = nil
		var (
			found   int
			orphans []orphan
		)
		for k, v := range storage {
			if v == nil {
				continue
			}
			found++
			if k >= len(r.cleanups) {
				continue
			}
			if cl := r.cleanups[k]; cl.Valid() {
				orphans = append(orphans, orphan{cleanup: cl, value: v})
			}
		}
		r.mu.Unlock()

		if found == 0 {
			break
		}
		drained += found
		for _, o := range orphans {
			o.cleanup.run(o.value)
		}
	}

	r.unregister(c)
	c.closed = true
	r.logger.Debug("context closed", "passes", passes, "values", drained)
	return drained
}
