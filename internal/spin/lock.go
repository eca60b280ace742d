package spin

import "sync/atomic"

// noCopy may be embedded into structs which must not be copied
// after the first use. See go vet -copylocks.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Lock is a non-reentrant spin lock backed by Wait.
//
// A Lock must not be copied after first use. Locking twice from the same
// goroutine deadlocks.
type Lock struct {
	_      noCopy
	locked atomic.Bool
}

// Lock acquires the lock, spinning with an escalating backoff while it is held elsewhere.
func (l *Lock) Lock() {
	for {
		if l.locked.CompareAndSwap(false, true) {
			return
		}
		l.waitForUnlock()
	}
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *Lock) TryLock() bool {
	return l.locked.CompareAndSwap(false, true)
}

// Unlock releases the lock.
func (l *Lock) Unlock() {
	l.locked.Store(false)
}

func (l *Lock) waitForUnlock() {
	var w Wait
	for l.locked.Load() {
		w.Once()
	}
}
