package tss

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestContext_SetGetRoundtrip(t *testing.T) {
	r := NewRegistry()
	keys := make([]Key, 10)
	for i := range keys {
		keys[i] = r.Create(Cleanup{})
	}

	c := r.Attach()
	defer c.Close()

	// Set out of order to force growth.
	for i := len(keys) - 1; i >= 0; i-- {
		c.Set(keys[i], i)
	}
	for i, k := range keys {
		assert.Equal(t, i, c.Get(k))
	}
	assert.Equal(t, 10, c.Len())

	c.Set(keys[3], nil)
	assert.Nil(t, c.Get(keys[3]))
	assert.Equal(t, 9, c.Len())
	assert.Same(t, r, c.Registry())
}

func TestContext_SetNilOutOfRange(t *testing.T) {
	r := NewRegistry()
	c := r.Attach()
	defer c.Close()

	c.Set(500, nil)
	assert.Nil(t, c.Get(500))
	assert.Equal(t, 0, c.Len())
}

func TestContext_CloseRunsCleanupsOnce(t *testing.T) {
	r := NewRegistry()

	var a, b atomic.Int64
	ka := r.Create(countingCleanup(&a))
	kb := r.Create(countingCleanup(&b))

	c := r.Attach()
	c.Set(ka, 1)
	c.Set(kb, 2)
	assert.Equal(t, 2, c.Close())
	assert.Equal(t, 0, c.Close())

	assert.Equal(t, int64(1), a.Load())
	assert.Equal(t, int64(1), b.Load())
	assert.Equal(t, 0, r.Stats().Contexts)
	assert.Nil(t, c.Get(ka))
}

func TestContext_CloseDrainsToFixpoint(t *testing.T) {
	r := NewRegistry()

	var c *Context
	var cleanedA, cleanedB, cleanedC atomic.Int64

	kc := r.Create(countingCleanup(&cleanedC))
	kb := r.Create(Cleanup{Fn: func(any, any) {
		cleanedB.Add(1)
		// Installed during the second pass, drained in the third.
		c.Set(kc, "from-b")
	}})
	ka := r.Create(Cleanup{Fn: func(any, any) {
		cleanedA.Add(1)
		c.Set(kb, "from-a")
	}})

	c = r.Attach()
	c.Set(ka, "a")
	assert.Equal(t, 3, c.Close())

	assert.Equal(t, int64(1), cleanedA.Load())
	assert.Equal(t, int64(1), cleanedB.Load())
	assert.Equal(t, int64(1), cleanedC.Load())
}

func TestContext_SetAfterClosePanics(t *testing.T) {
	r := NewRegistry()
	k := r.Create(Cleanup{})

	c := r.Attach()
	c.Close()
	assert.Panics(t, func() { c.Set(k, 1) })
}

func TestContext_UnregisterAnyOrder(t *testing.T) {
	r := NewRegistry()
	k := r.Create(Cleanup{})

	ctxs := make([]*Context, 5)
	for i := range ctxs {
		ctxs[i] = r.Attach()
		ctxs[i].Set(k, i)
	}

	// Close middle, head, tail, then the rest.
	for _, i := range []int{2, 0, 4, 1, 3} {
		ctxs[i].Close()
		require.NoError(t, r.Delete(r.Create(Cleanup{})))
	}
	assert.Equal(t, 0, r.Stats().Contexts)

	// The list is consistent: a new context is the only one scanned.
	var cleaned atomic.Int64
	k2 := r.Create(countingCleanup(&cleaned))
	c := r.Attach()
	c.Set(k2, 1)
	require.NoError(t, r.Delete(k2))
	assert.Equal(t, int64(1), cleaned.Load())
	c.Close()
	require.NoError(t, r.Delete(k))
}

func TestContext_CloseRacesDelete(t *testing.T) {
	r := NewRegistry()

	for i := 0; i < 2000; i++ {
		var cleaned atomic.Int64
		k := r.Create(countingCleanup(&cleaned))

		c := r.Attach()
		c.Set(k, i)

		var g errgroup.Group
		g.Go(func() error {
			c.Close()
			return nil
		})
		g.Go(func() error { return r.Delete(k) })
		require.NoError(t, g.Wait())

		require.Equal(t, int64(1), cleaned.Load(), "iteration %d", i)
	}

	st := r.Stats()
	assert.Equal(t, 0, st.Contexts)
	assert.Equal(t, uint64(0), st.ActiveKeys)
}

func TestContext_LenWhileDeleting(t *testing.T) {
	r := NewRegistry()
	c := r.Attach()
	defer c.Close()

	keys := make([]Key, 64)
	for i := range keys {
		keys[i] = r.Create(Cleanup{})
		c.Set(keys[i], i)
	}

	var g errgroup.Group
	g.Go(func() error {
		for _, k := range keys {
			if err := r.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	for i := 0; i < 100; i++ {
		assert.LessOrEqual(t, c.Len(), len(keys))
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 0, c.Len())
}
