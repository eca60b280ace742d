package kls

import (
	"math"
	"time"
	"unsafe"

	"github.com/hupe1980/kls/temp"
	"github.com/hupe1980/kls/tss"
)

// Slot is a typed slot handle. Each Thread sees its own *T.
// A Slot must not be copied; use Move to transfer it.
type Slot[T any] struct {
	rt *Runtime
	s  *tss.Slot[T]
}

// NewSlot creates a slot in rt. destroy is called with every value the slot
// drops: replaced by Emplace, cleared, or orphaned by Close or thread exit.
// destroy may be nil.
func NewSlot[T any](rt *Runtime, destroy func(*T)) *Slot[T] {
	s := &Slot[T]{rt: rt, s: tss.NewSlot(rt.registry, destroy)}
	rt.metrics.RecordSlotCreate()
	return s
}

// Key returns the slot key, or InvalidKey after Move or Close.
func (s *Slot[T]) Key() Key { return s.s.Key() }

// Get returns t's value, or nil.
func (s *Slot[T]) Get(t *Thread) *T {
	s.check(t)
	if t.slots == nil {
		return nil
	}
	return s.s.Get(t.slots)
}

// Has reports whether t holds a value.
func (s *Slot[T]) Has(t *Thread) bool {
	return s.Get(t) != nil
}

// Emplace destroys t's current value, if any, and installs v.
func (s *Slot[T]) Emplace(t *Thread, v T) *T {
	s.check(t)
	return s.s.Emplace(t.Slots(), v)
}

// GetOrInit returns t's value, installing init() if there is none.
func (s *Slot[T]) GetOrInit(t *Thread, init func() T) *T {
	s.check(t)
	return s.s.GetOrInit(t.Slots(), init)
}

// Clear destroys t's value. The slot stays usable.
func (s *Slot[T]) Clear(t *Thread) {
	s.check(t)
	if t.slots == nil {
		return
	}
	s.s.Clear(t.slots)
}

// Reset replaces t's value with p, destroying the old one. A nil p clears it.
func (s *Slot[T]) Reset(t *Thread, p *T) {
	s.check(t)
	if t.slots == nil && p == nil {
		return
	}
	s.s.Reset(t.Slots(), p)
}

// Release unsets t's value without destroying it and returns it.
func (s *Slot[T]) Release(t *Thread) *T {
	s.check(t)
	if t.slots == nil {
		return nil
	}
	return s.s.Release(t.slots)
}

// Move transfers the key to a new handle and invalidates s.
func (s *Slot[T]) Move() *Slot[T] {
	return &Slot[T]{rt: s.rt, s: s.s.Move()}
}

// Close deletes the key, destroying the value every live thread holds.
// Close on a moved-from or closed slot is a no-op.
func (s *Slot[T]) Close() error {
	if !s.s.Valid() {
		return nil
	}
	key := s.s.Key()
	start := time.Now()
	err := s.s.Close()
	s.rt.observeDelete(key, time.Since(start), err)
	return err
}

func (s *Slot[T]) check(t *Thread) {
	if t.rt != s.rt {
		panic("kls: slot used with a thread of another runtime")
	}
}

// Alloc allocates a zeroed T in t's arena. T must not contain Go pointers.
func Alloc[T any](t *Thread) (temp.Object[T], error) {
	a, err := t.Arena()
	if err != nil {
		return temp.Object[T]{}, err
	}
	obj, err := temp.New[T](a)
	t.observeAllocation(sizeOf[T](1), err)
	return obj, err
}

// AllocSlice allocates n zeroed elements of T in t's arena. T must not
// contain Go pointers.
func AllocSlice[T any](t *Thread, n int) (temp.Span[T], error) {
	a, err := t.Arena()
	if err != nil {
		return temp.Span[T]{}, err
	}
	span, err := temp.NewSlice[T](a, n)
	t.observeAllocation(sizeOf[T](n), err)
	return span, err
}

// sizeOf reports the byte size of n elements of T, saturating on overflow.
func sizeOf[T any](n int) int {
	var zero T
	elem := int(unsafe.Sizeof(zero))
	if elem != 0 && n > math.MaxInt/elem {
		return math.MaxInt
	}
	return n * elem
}
