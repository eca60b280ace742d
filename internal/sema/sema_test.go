package sema

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemaphore_StartsEmpty(t *testing.T) {
	s := New(4)
	assert.False(t, s.TryWait())
	assert.False(t, s.WaitFor(5*time.Millisecond))
}

func TestSemaphore_SignalWait(t *testing.T) {
	s := New(4)
	s.Signal()
	s.Signal()

	require.NoError(t, s.Wait(context.Background()))
	assert.True(t, s.TryWait())
	assert.False(t, s.TryWait())
}

func TestSemaphore_WakesWaiter(t *testing.T) {
	s := New(0)
	done := make(chan struct{})

	go func() {
		defer close(done)
		assert.True(t, s.WaitUntil(time.Now().Add(5*time.Second)))
	}()

	s.Signal()
	<-done
}

func TestSemaphore_ContextCancel(t *testing.T) {
	s := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.Canceled)
}

func TestSemaphore_OverSignalPanics(t *testing.T) {
	s := New(1)
	s.Signal()
	assert.Panics(t, func() { s.Signal() })
}
