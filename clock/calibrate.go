package clock

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultCalibrationWindow is how long Calibrate sleeps between counter reads.
	DefaultCalibrationWindow = 200 * time.Millisecond

	fallbackCyclesPerUs = 2500.0
	minCyclesPerUs      = 100.0
	maxCyclesPerUs      = 10000.0
)

// ErrImplausibleFrequency is returned when calibration lands outside (100, 10000] MHz.
var ErrImplausibleFrequency = errors.New("implausible counter frequency")

// Calibrate measures src's cycles per microsecond against the wall monotonic clock.
// A window too short to measure yields the 2500 cycles/µs fallback.
func Calibrate(src Source, window time.Duration) (float64, error) {
	start := time.Now()
	startCycles := src.Now()
	time.Sleep(window)
	endCycles := src.Now()
	elapsed := time.Since(start)

	return checkRatio(endCycles-startCycles, elapsed)
}

func checkRatio(cycles uint64, elapsed time.Duration) (float64, error) {
	cyclesPerUs := fallbackCyclesPerUs
	if elapsed > time.Microsecond {
		cyclesPerUs = float64(cycles) * 1000 / float64(elapsed.Nanoseconds())
	}
	if cyclesPerUs <= minCyclesPerUs || cyclesPerUs > maxCyclesPerUs {
		return 0, fmt.Errorf("%w: %.2f MHz", ErrImplausibleFrequency, cyclesPerUs)
	}
	return cyclesPerUs, nil
}

// Resolve returns src's known ratio, calibrating only when none is known.
func Resolve(src Source, window time.Duration) (float64, error) {
	if r, ok := Ratio(src); ok {
		return r, nil
	}
	return Calibrate(src, window)
}
