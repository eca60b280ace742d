package temp

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/kls/blockpool"
	"github.com/hupe1980/kls/internal/mem"
)

func newPool(t *testing.T, opts ...blockpool.Option) *blockpool.Pool {
	t.Helper()
	p := blockpool.New(append([]blockpool.Option{blockpool.WithHeap()}, opts...)...)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestArena_AllocateAligned(t *testing.T) {
	a := NewArena(newPool(t))
	defer a.Close()

	sizes := []int{1, 7, 16, 17, 100, 4096}
	var prev Allocation
	for _, size := range sizes {
		al, err := a.Allocate(size)
		require.NoError(t, err)
		assert.Equal(t, size, al.Len())
		assert.Equal(t, size, cap(al.Bytes()))
		assert.True(t, mem.IsAligned(addrOf(al), mem.MaxAlign), "size %d", size)

		if !prev.IsZero() {
			assert.GreaterOrEqual(t, addrOf(al)-addrOf(prev), mem.AlignUp(uintptr(prev.Len()), mem.MaxAlign))
		}
		prev = al
	}

	st := a.Stats()
	assert.Equal(t, uint64(len(sizes)), st.Allocations)
	assert.Equal(t, int32(len(sizes)), st.Pending)
	assert.Equal(t, uint64(1), st.BlocksRented)
	assert.Equal(t, 16+16+16+32+112+4096, st.Offset)
}

func TestArena_ZeroAndInvalidSize(t *testing.T) {
	p := newPool(t)
	a := NewArena(p)
	defer a.Close()

	al, err := a.Allocate(0)
	require.NoError(t, err)
	assert.True(t, al.IsZero())
	al.Free()

	_, err = a.Allocate(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.Equal(t, uint64(0), p.Stats().Rents)
}

func TestArena_TooLarge(t *testing.T) {
	p := newPool(t)
	a := NewArena(p)

	_, err := a.Allocate(blockpool.Capacity + 1)
	require.ErrorIs(t, err, ErrTooLarge)
	var aerr *AllocationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, blockpool.Capacity+1, aerr.Size)
	assert.Equal(t, blockpool.Capacity, aerr.Limit)

	// Exactly the capacity fits.
	full, err := a.Allocate(blockpool.Capacity)
	require.NoError(t, err)
	assert.Equal(t, 0, a.Remaining())

	small, err := a.Allocate(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), a.Stats().BlocksRented)

	a.Close()
	full.Free()
	small.Free()

	st := p.Stats()
	assert.Equal(t, uint64(0), st.Rented)
	assert.Equal(t, uint64(2), st.Returns)
}

func TestArena_BlockCapacityNeverExceeded(t *testing.T) {
	p := newPool(t)
	a := NewArena(p)

	const size = 1000 // aligned to 1008
	perBlock := blockpool.Capacity / 1008

	var allocs []Allocation
	for i := 0; i < perBlock+1; i++ {
		al, err := a.Allocate(size)
		require.NoError(t, err)
		allocs = append(allocs, al)

		st := a.Stats()
		assert.LessOrEqual(t, st.Offset, blockpool.Capacity)
	}
	st := a.Stats()
	assert.Equal(t, uint64(2), st.BlocksRented)
	assert.Equal(t, int32(1), st.Pending)
	assert.Equal(t, uint64(1), st.Flushes)

	a.Close()
	for _, al := range allocs {
		al.Free()
	}
	assert.Equal(t, uint64(0), p.Stats().Rented)
}

// The owner allocates three objects and exits without freeing; three other
// goroutines free them afterwards. The third free returns the block.
func TestArena_FreeAfterFlush(t *testing.T) {
	p := newPool(t)
	a := NewArena(p)

	allocs := make([]Allocation, 3)
	for i := range allocs {
		al, err := a.Allocate(64)
		require.NoError(t, err)
		allocs[i] = al
	}
	blk := allocs[0].blk

	a.Close()
	assert.Equal(t, int32(3), blk.Flying().Load())
	assert.Equal(t, uint64(1), p.Stats().Rented)

	for i, want := range []int32{2, 1, 0} {
		done := make(chan struct{})
		go func(al Allocation) {
			defer close(done)
			Free(al)
		}(allocs[i])
		<-done

		assert.Equal(t, want, blk.Flying().Load())
	}

	st := p.Stats()
	assert.Equal(t, uint64(0), st.Rented)
	assert.Equal(t, uint64(1), st.Returns)
	assert.Equal(t, uint64(0), a.Stats().Released)
}

// All three objects are freed by other goroutines before the owner flushes;
// the flush observes -3 and returns the block itself.
func TestArena_FreeBeforeFlush(t *testing.T) {
	p := newPool(t)
	a := NewArena(p)

	allocs := make([]Allocation, 3)
	for i := range allocs {
		al, err := a.Allocate(64)
		require.NoError(t, err)
		allocs[i] = al
	}
	blk := allocs[0].blk

	for i, want := range []int32{-1, -2, -3} {
		done := make(chan struct{})
		go func(al Allocation) {
			defer close(done)
			al.Free()
		}(allocs[i])
		<-done

		assert.Equal(t, want, blk.Flying().Load())
	}
	assert.Equal(t, uint64(1), p.Stats().Rented)

	a.Close()
	assert.Equal(t, uint64(1), a.Stats().Released)

	st := p.Stats()
	assert.Equal(t, uint64(0), st.Rented)
	assert.Equal(t, uint64(1), st.Returns)
}

func TestArena_EmptyFlushReleases(t *testing.T) {
	p := newPool(t)
	a := NewArena(p)

	al, err := a.Allocate(blockpool.Capacity)
	require.NoError(t, err)
	al.Free()

	// Rents a new block and flushes the first one, which settles at once.
	_, err = a.Allocate(blockpool.Capacity)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.Stats().Released)
	assert.Equal(t, uint64(1), p.Stats().Rented)
}

func TestArena_ReplenishFailure(t *testing.T) {
	p := newPool(t, blockpool.WithMemoryLimit(blockpool.BlockSize))
	a := NewArena(p)
	defer a.Close()

	first, err := a.Allocate(blockpool.Capacity)
	require.NoError(t, err)

	_, err = a.Allocate(16)
	require.ErrorIs(t, err, blockpool.ErrPoolExhausted)
	assert.Equal(t, 0, a.Remaining())

	// The failed replenish flushed the first block; freeing it makes room.
	first.Free()
	_, err = a.Allocate(16)
	require.NoError(t, err)
}

func TestArena_Closed(t *testing.T) {
	a := NewArena(newPool(t))
	a.Close()
	a.Close()

	_, err := a.Allocate(8)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestArena_CrossThreadFrees(t *testing.T) {
	p := newPool(t, blockpool.WithMaxIdle(2))
	a := NewArena(p)

	work := make(chan Allocation, 64)
	var g errgroup.Group
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			for al := range work {
				al.Bytes()[0] = 0xFF
				al.Free()
			}
			return nil
		})
	}

	const n = 500
	for i := 0; i < n; i++ {
		al, err := a.Allocate(32 << 10)
		require.NoError(t, err)
		al.Bytes()[0] = byte(i)
		work <- al
	}
	a.Close()
	close(work)
	require.NoError(t, g.Wait())

	st := p.Stats()
	assert.Equal(t, uint64(0), st.Rented)
	assert.Equal(t, st.Rents, st.Returns)
	assert.Equal(t, a.Stats().BlocksRented, st.Rents)
}

func TestArena_ManyOwners(t *testing.T) {
	p := newPool(t)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		live []Allocation
	)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := NewArena(p)
			defer a.Close()
			for i := 0; i < 100; i++ {
				al, err := a.Allocate(100 << 10)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				live = append(live, al)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// Free everything from the test goroutine after all owners exited.
	for _, al := range live {
		al.Free()
	}
	st := p.Stats()
	assert.Equal(t, uint64(0), st.Rented)
	assert.Equal(t, st.Rents, st.Returns)
}

func BenchmarkArena_Allocate(b *testing.B) {
	p := blockpool.New(blockpool.WithHeap())
	defer p.Close()
	a := NewArena(p)
	defer a.Close()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		al, err := a.Allocate(64)
		if err != nil {
			b.Fatal(err)
		}
		al.Free()
	}
}
