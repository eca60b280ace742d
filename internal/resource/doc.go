// Package resource tracks and limits the memory reserved for blocks.
//
// Memory tracking uses a weighted semaphore for the hard limit and an atomic
// counter for usage. TryAcquireMemory is non-blocking and fails fast with
// ErrMemoryLimitExceeded; AcquireMemory waits until memory is released or
// the context is done:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 256 << 20,
//	})
//
//	if err := rc.TryAcquireMemory(4 << 20); err != nil {
//	    // ErrMemoryLimitExceeded - caller decides retry/backoff
//	}
//	defer rc.ReleaseMemory(4 << 20)
//
// # Nil Safety
//
// All methods handle a nil Controller gracefully - they become no-ops.
// This allows optional limiting without nil checks everywhere.
package resource
