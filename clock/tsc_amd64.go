//go:build amd64

package clock

// rdtsc reads the CPU's time-stamp counter.
// Implemented in tsc_amd64.s
func rdtsc() uint64

type tsc struct{}

// TSC returns the hardware time-stamp counter. Its ratio must be calibrated.
func TSC() Source { return tsc{} }

func (tsc) Now() uint64 { return rdtsc() }
