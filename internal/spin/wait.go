package spin

import (
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// YieldThreshold is the step count after which Once stops pure spinning.
	YieldThreshold = 10
	// Sleep0EveryHowManyYields makes every n-th yield a time.Sleep(0).
	Sleep0EveryHowManyYields = 5
	// DefaultSleep1Threshold is the step count after which Once sleeps for 1ms.
	DefaultSleep1Threshold = 20

	minNsPerNormalizedYield              = 37
	nsPerOptimalMaxSpinIterationDuration = 272
	calibrationWindow                    = 10 * time.Millisecond
	defaultMaxSpinWaitsPerSpinIteration  = 7
)

var (
	calibrateOnce sync.Once
	maxSpins      uint32
	singleCPU     = runtime.NumCPU() == 1
	pauseSink     atomic.Uint32
)

// SpinCountBeforeWait is the number of Once steps callers should spin before
// falling back to a blocking primitive.
func SpinCountBeforeWait() int {
	if singleCPU {
		return 1
	}
	return 35
}

// OptimalMaxSpinWaitsPerSpinIteration returns the calibrated upper bound of
// pause iterations performed by a single spinning step.
func OptimalMaxSpinWaitsPerSpinIteration() uint32 {
	calibrateOnce.Do(func() {
		maxSpins = calibrate(calibrationWindow)
	})
	return maxSpins
}

// calibrate measures the cost of a pause iteration against the monotonic
// clock and converts the 272ns spin budget into an iteration count.
func calibrate(window time.Duration) uint32 {
	res := clockResolution()
	if res <= 0 || res > window/10 {
		return defaultMaxSpinWaitsPerSpinIteration
	}

	var yields uint64
	start := time.Now()
	var elapsed time.Duration
	for {
		for i := 0; i < 1000; i++ {
			pause()
		}
		yields += 1000
		elapsed = time.Since(start)
		if elapsed >= window {
			break
		}
	}

	nsPerYield := float64(elapsed.Nanoseconds()) / float64(yields)
	if nsPerYield < 1 {
		nsPerYield = 1
	}

	perNormalized := math.Round(minNsPerNormalizedYield / nsPerYield)
	if perNormalized < 1 {
		perNormalized = 1
	}

	optimal := math.Round(nsPerOptimalMaxSpinIterationDuration / (perNormalized * nsPerYield))
	if optimal < 1 {
		optimal = 1
	}
	return uint32(optimal)
}

func clockResolution() time.Duration {
	start := time.Now()
	for {
		if d := time.Since(start); d > 0 {
			return d
		}
	}
}

func pause() {
	pauseSink.Load()
}

// Wait is an escalating backoff: spin, then yield, then sleep.
// The zero value is ready to use. A Wait must not be shared between goroutines.
type Wait struct {
	count uint32
}

// Count returns the number of steps taken since the last Reset.
func (w *Wait) Count() uint32 { return w.count }

// WillYield reports whether the next step gives up the processor instead of spinning.
func (w *Wait) WillYield() bool {
	return w.count >= YieldThreshold || singleCPU
}

// Once performs one backoff step with the default sleep threshold.
func (w *Wait) Once() {
	w.once(DefaultSleep1Threshold)
}

// OnceWithThreshold performs one backoff step, sleeping 1ms once the step count
// reaches threshold. Thresholds below YieldThreshold are raised to it.
func (w *Wait) OnceWithThreshold(threshold uint32) {
	if threshold < YieldThreshold {
		threshold = YieldThreshold
	}
	w.once(threshold)
}

// Reset restarts the escalation from pure spinning.
func (w *Wait) Reset() { w.count = 0 }

func (w *Wait) once(threshold uint32) {
	if (w.count >= YieldThreshold && (w.count >= threshold || (w.count-YieldThreshold)%2 == 0)) || singleCPU {
		if w.count >= threshold {
			time.Sleep(time.Millisecond)
		} else {
			yieldsSoFar := w.count
			if w.count >= YieldThreshold {
				yieldsSoFar = (w.count - YieldThreshold) / 2
			}
			if yieldsSoFar%Sleep0EveryHowManyYields == Sleep0EveryHowManyYields-1 {
				time.Sleep(0)
			} else {
				runtime.Gosched()
			}
		}
	} else {
		n := OptimalMaxSpinWaitsPerSpinIteration()
		if w.count <= 30 && uint32(1)<<w.count < n {
			n = uint32(1) << w.count
		}
		for i := uint32(0); i < n; i++ {
			pause()
		}
	}

	if w.count == math.MaxInt32 {
		w.count = YieldThreshold
	} else {
		w.count++
	}
}
