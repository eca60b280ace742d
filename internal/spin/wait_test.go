package spin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWait_Escalation(t *testing.T) {
	var w Wait
	assert.Equal(t, uint32(0), w.Count())

	for i := 0; i < YieldThreshold; i++ {
		w.Once()
	}
	assert.Equal(t, uint32(YieldThreshold), w.Count())
	assert.True(t, w.WillYield())

	w.Reset()
	assert.Equal(t, uint32(0), w.Count())
	if !singleCPU {
		assert.False(t, w.WillYield())
	}
}

func TestWait_SleepsAfterThreshold(t *testing.T) {
	var w Wait
	for i := 0; i < DefaultSleep1Threshold; i++ {
		w.Once()
	}

	start := time.Now()
	w.Once()
	assert.GreaterOrEqual(t, time.Since(start), time.Millisecond)
}

func TestWait_ThresholdClamped(t *testing.T) {
	var w Wait
	// A threshold below YieldThreshold must not cause sleeping during the spin phase.
	start := time.Now()
	for i := 0; i < YieldThreshold-1; i++ {
		w.OnceWithThreshold(1)
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestCalibrate(t *testing.T) {
	n := calibrate(time.Millisecond)
	assert.GreaterOrEqual(t, n, uint32(1))

	assert.GreaterOrEqual(t, OptimalMaxSpinWaitsPerSpinIteration(), uint32(1))
	assert.Equal(t, OptimalMaxSpinWaitsPerSpinIteration(), OptimalMaxSpinWaitsPerSpinIteration())
}

func TestSpinCountBeforeWait(t *testing.T) {
	if singleCPU {
		assert.Equal(t, 1, SpinCountBeforeWait())
	} else {
		assert.Equal(t, 35, SpinCountBeforeWait())
	}
}
