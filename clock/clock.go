// Package clock provides the cycle counters pollers timestamp their activations with.
//
// A Source returns a monotonically increasing counter. The counter unit is opaque
// ("cycles"); converting to microseconds needs a cycles-per-microsecond ratio, either
// known up front (Monotonic, Step) or measured with Calibrate (TSC).
package clock

import (
	"sync/atomic"
	"time"
)

// Source is a monotonic cycle counter.
type Source interface {
	Now() uint64
}

// Ratioed is implemented by sources whose cycles-per-microsecond ratio is known
// without calibration.
type Ratioed interface {
	CyclesPerMicrosecond() float64
}

// Ratio returns the known ratio of src, or false if src must be calibrated.
func Ratio(src Source) (float64, bool) {
	if r, ok := src.(Ratioed); ok {
		return r.CyclesPerMicrosecond(), true
	}
	return 0, false
}

var processStart = time.Now()

type monotonic struct{}

// Monotonic returns a source counting nanoseconds since process start on Go's
// monotonic clock. One cycle is one nanosecond.
func Monotonic() Source { return monotonic{} }

func (monotonic) Now() uint64 { return uint64(time.Since(processStart)) }

func (monotonic) CyclesPerMicrosecond() float64 { return 1000 }

// StepClock advances by a fixed step on every read. Safe for concurrent use.
type StepClock struct {
	now  atomic.Uint64
	step uint64
}

// Step returns a deterministic source starting at start and advancing by step per
// Now call. Its ratio is one cycle per microsecond.
func Step(start, step uint64) *StepClock {
	c := &StepClock{step: step}
	c.now.Store(start)
	return c
}

func (c *StepClock) Now() uint64 { return c.now.Add(c.step) }

func (c *StepClock) CyclesPerMicrosecond() float64 { return 1 }
