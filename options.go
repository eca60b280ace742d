package kls

import (
	"github.com/hupe1980/kls/blockpool"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	pool             *blockpool.Pool
	memoryLimit      int64
	maxIdleBlocks    int
	heapBlocks       bool
}

// Option configures a Runtime.
type Option func(*options)

// WithLogger sets the logger. Defaults to NoopLogger.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetricsCollector sets the metrics collector. Defaults to NoopMetricsCollector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithBlockPool shares an existing pool between runtimes. The pool is not
// closed by Runtime.Close, and WithMemoryLimit, WithMaxIdleBlocks and
// WithHeapBlocks are ignored.
func WithBlockPool(p *blockpool.Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithMemoryLimit caps the memory reserved for arena blocks.
// A limit of 0 means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithMaxIdleBlocks sets how many returned blocks are kept for reuse.
func WithMaxIdleBlocks(n int) Option {
	return func(o *options) {
		o.maxIdleBlocks = n
	}
}

// WithHeapBlocks keeps arena blocks on the Go heap instead of anonymous mappings.
func WithHeapBlocks() Option {
	return func(o *options) {
		o.heapBlocks = true
	}
}

func (o *options) poolOptions() []blockpool.Option {
	opts := []blockpool.Option{
		blockpool.WithLogger(o.logger.With("component", "blockpool")),
		blockpool.WithMaxIdle(o.maxIdleBlocks),
		blockpool.WithMemoryLimit(o.memoryLimit),
	}
	if o.heapBlocks {
		opts = append(opts, blockpool.WithHeap())
	}
	return opts
}
