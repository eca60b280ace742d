package tss

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func countingCleanup(n *atomic.Int64) Cleanup {
	return Cleanup{Fn: func(any, any) { n.Add(1) }}
}

func TestRegistry_CreateDistinctKeys(t *testing.T) {
	r := NewRegistry()

	seen := make(map[Key]bool)
	for i := 0; i < 100; i++ {
		k := r.Create(Cleanup{})
		require.NotEqual(t, InvalidKey, k)
		require.False(t, seen[k], "key %d handed out twice", k)
		seen[k] = true
		assert.True(t, r.Active(k))
	}
	assert.Equal(t, uint64(100), r.Stats().ActiveKeys)
}

func TestRegistry_FreshContextReadsNil(t *testing.T) {
	r := NewRegistry()
	k := r.Create(Cleanup{})

	c := r.Attach()
	defer c.Close()

	assert.Nil(t, c.Get(k))
	assert.Nil(t, c.Get(k+1000))

	c.Set(k, "v")
	assert.Equal(t, "v", c.Get(k))

	other := r.Attach()
	defer other.Close()
	assert.Nil(t, other.Get(k))
}

func TestRegistry_DeleteCleansEveryContext(t *testing.T) {
	r := NewRegistry()

	var (
		cleaned atomic.Int64
		sum     atomic.Int64
	)
	k := r.Create(Cleanup{Fn: func(v, user any) {
		cleaned.Add(1)
		sum.Add(int64(v.(int)))
		assert.Equal(t, "user-data", user)
	}, User: "user-data"})

	const threads = 8
	var ready, done sync.WaitGroup
	release := make(chan struct{})

	for i := 0; i < threads; i++ {
		ready.Add(1)
		done.Add(1)
		go func(i int) {
			defer done.Done()
			c := r.Attach()
			if i%2 == 0 {
				c.Set(k, i+1)
			}
			ready.Done()

			<-release
			assert.Nil(t, c.Get(k))
			c.Close()
		}(i)
	}

	ready.Wait()
	require.NoError(t, r.Delete(k))
	assert.Equal(t, int64(threads/2), cleaned.Load())
	assert.Equal(t, int64(1+3+5+7), sum.Load())

	close(release)
	done.Wait()

	// Thread exit after the delete must not run the cleanup again.
	assert.Equal(t, int64(threads/2), cleaned.Load())
	assert.Equal(t, 0, r.Stats().Contexts)
}

func TestRegistry_KeyRecycledOnlyAfterCleanups(t *testing.T) {
	r := NewRegistry()

	var k Key
	var reentered Key = InvalidKey
	k = r.Create(Cleanup{Fn: func(any, any) {
		// Cleanups run without the registry lock and may use the registry.
		assert.False(t, r.Active(k))
		reentered = r.Create(Cleanup{})
	}})

	c := r.Attach()
	defer c.Close()
	c.Set(k, 1)

	require.NoError(t, r.Delete(k))
	require.NotEqual(t, InvalidKey, reentered)
	assert.NotEqual(t, k, reentered)

	// Now the key is back in the recycle pool.
	assert.Equal(t, k, r.Create(Cleanup{}))
}

func TestRegistry_DeleteUnknownKey(t *testing.T) {
	r := NewRegistry()
	assert.NoError(t, r.Delete(InvalidKey))
	assert.ErrorIs(t, r.Delete(3), ErrUnknownKey)

	k := r.Create(Cleanup{})
	require.NoError(t, r.Delete(k))
	assert.ErrorIs(t, r.Delete(k), ErrUnknownKey)
}

func TestRegistry_CreateRemoveCreate(t *testing.T) {
	r := NewRegistry()

	var first, second atomic.Int64
	k1 := r.Create(countingCleanup(&first))
	require.NoError(t, r.Delete(k1))

	k2 := r.Create(countingCleanup(&second))

	c := r.Attach()
	c.Set(k2, "x")
	c.Close()

	assert.Equal(t, int64(0), first.Load())
	assert.Equal(t, int64(1), second.Load())

	st := r.Stats()
	assert.Equal(t, uint64(1), st.ActiveKeys)
	assert.Equal(t, 0, st.FreeKeys)
}

func TestRegistry_NilCleanup(t *testing.T) {
	r := NewRegistry()
	k := r.Create(Cleanup{})

	c := r.Attach()
	c.Set(k, 42)
	require.NoError(t, r.Delete(k))
	assert.Nil(t, c.Get(k))
	c.Close()
}

func TestRegistry_ConcurrentChurn(t *testing.T) {
	r := NewRegistry()

	var cleaned atomic.Int64
	var g errgroup.Group

	for w := 0; w < 8; w++ {
		g.Go(func() error {
			c := r.Attach()
			for i := 0; i < 200; i++ {
				k := r.Create(countingCleanup(&cleaned))
				c.Set(k, i)
				if got := c.Get(k); got != i {
					t.Errorf("Get(%d) = %v, want %d", k, got, i)
				}
				if err := r.Delete(k); err != nil {
					return err
				}
			}
			c.Close()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(8*200), cleaned.Load())
	st := r.Stats()
	assert.Equal(t, uint64(0), st.ActiveKeys)
	assert.Equal(t, 0, st.Contexts)
}

func BenchmarkContext_GetSet(b *testing.B) {
	r := NewRegistry()
	k := r.Create(Cleanup{})
	c := r.Attach()
	defer c.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Set(k, k)
		_ = c.Get(k)
	}
}
