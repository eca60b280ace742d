package spin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_TryLock(t *testing.T) {
	var l Lock
	require.True(t, l.TryLock())
	assert.False(t, l.TryLock())
	l.Unlock()
	assert.True(t, l.TryLock())
	l.Unlock()
}

func TestLock_MutualExclusion(t *testing.T) {
	var (
		l       Lock
		wg      sync.WaitGroup
		counter int
	)

	const (
		workers = 8
		iters   = 2000
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				l.Lock()
				counter++
				l.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers*iters, counter)
}

func TestLock_Locker(t *testing.T) {
	var l Lock
	var locker sync.Locker = &l
	locker.Lock()
	assert.False(t, l.TryLock())
	locker.Unlock()
}

func BenchmarkLock_Uncontended(b *testing.B) {
	var l Lock
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		l.Lock()
		l.Unlock()
	}
}
