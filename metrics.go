package kls

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting runtime metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordSlotCreate is called after a key was created.
	RecordSlotCreate()

	// RecordSlotDelete is called after each key deletion.
	// err is nil if the key was active.
	RecordSlotDelete(duration time.Duration, err error)

	// RecordThreadStart is called when a Thread is attached or started.
	RecordThreadStart()

	// RecordThreadExit is called after a Thread drained its slots and
	// flushed its arena.
	RecordThreadExit(duration time.Duration)

	// RecordAllocation is called after each arena allocation on a Thread.
	RecordAllocation(size int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSlotCreate()                     {}
func (NoopMetricsCollector) RecordSlotDelete(time.Duration, error) {}
func (NoopMetricsCollector) RecordThreadStart()                    {}
func (NoopMetricsCollector) RecordThreadExit(time.Duration)        {}
func (NoopMetricsCollector) RecordAllocation(int, error)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	SlotCreates      atomic.Int64
	SlotDeletes      atomic.Int64
	SlotDeleteErrors atomic.Int64
	ThreadStarts     atomic.Int64
	ThreadExits      atomic.Int64
	ExitTotalNanos   atomic.Int64
	Allocations      atomic.Int64
	AllocatedBytes   atomic.Int64
	AllocationErrors atomic.Int64
}

// RecordSlotCreate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSlotCreate() {
	b.SlotCreates.Add(1)
}

// RecordSlotDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSlotDelete(_ time.Duration, err error) {
	b.SlotDeletes.Add(1)
	if err != nil {
		b.SlotDeleteErrors.Add(1)
	}
}

// RecordThreadStart implements MetricsCollector.
func (b *BasicMetricsCollector) RecordThreadStart() {
	b.ThreadStarts.Add(1)
}

// RecordThreadExit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordThreadExit(duration time.Duration) {
	b.ThreadExits.Add(1)
	b.ExitTotalNanos.Add(duration.Nanoseconds())
}

// RecordAllocation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAllocation(size int, err error) {
	if err != nil {
		b.AllocationErrors.Add(1)
		return
	}
	b.Allocations.Add(1)
	b.AllocatedBytes.Add(int64(size))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SlotCreates:      b.SlotCreates.Load(),
		SlotDeletes:      b.SlotDeletes.Load(),
		SlotDeleteErrors: b.SlotDeleteErrors.Load(),
		ThreadStarts:     b.ThreadStarts.Load(),
		ThreadExits:      b.ThreadExits.Load(),
		ExitAvgNanos:     b.getAvgExitNanos(),
		Allocations:      b.Allocations.Load(),
		AllocatedBytes:   b.AllocatedBytes.Load(),
		AllocationErrors: b.AllocationErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgExitNanos() int64 {
	count := b.ThreadExits.Load()
	if count == 0 {
		return 0
	}
	return b.ExitTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SlotCreates      int64
	SlotDeletes      int64
	SlotDeleteErrors int64
	ThreadStarts     int64
	ThreadExits      int64
	ExitAvgNanos     int64
	Allocations      int64
	AllocatedBytes   int64
	AllocationErrors int64
}
