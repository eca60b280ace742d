package blockpool

import (
	"log/slog"
	"time"

	"github.com/hupe1980/kls/internal/resource"
)

// DefaultMaxIdle is the default number of idle blocks kept for reuse.
const DefaultMaxIdle = 16

type options struct {
	maxIdle     int
	heap        bool
	decommit    bool
	memoryLimit int64
	logger      *slog.Logger
	warnEvery   time.Duration
}

// Option configures a Pool.
type Option func(*options)

// WithMaxIdle sets how many returned blocks are kept for reuse. Blocks
// returned beyond that are released to the operating system.
// Negative values are treated as 0.
func WithMaxIdle(n int) Option {
	return func(o *options) {
		if n < 0 {
			n = 0
		}
		o.maxIdle = n
	}
}

// WithHeap keeps blocks on the Go heap instead of anonymous mappings.
func WithHeap() Option {
	return func(o *options) {
		o.heap = true
	}
}

// WithDecommit tells the kernel it may reclaim the pages of idle mapped blocks.
func WithDecommit() Option {
	return func(o *options) {
		o.decommit = true
	}
}

// WithMemoryLimit caps the memory reserved by the pool, idle blocks included.
// A limit of 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithWarnInterval sets the minimum interval between exhaustion warnings.
func WithWarnInterval(d time.Duration) Option {
	return func(o *options) {
		o.warnEvery = d
	}
}

// resourceConfig derives the controller configuration.
func (o *options) resourceConfig() resource.Config {
	return resource.Config{MemoryLimitBytes: o.memoryLimit}
}
