// Package aggregate turns per-poller reservoirs into global p50/p99 latency.
//
// Strategies read reservoirs while pollers may still be writing them. They rely on
// the atomic seen counter for bounds and accept torn slot values.
package aggregate

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Source is a poller reservoir as seen by the aggregator.
type Source interface {
	Seen() uint64
	Cap() int
	CopyInto(dst []uint64) int
}

// Result holds latencies in microseconds. A result over zero samples carries the
// zero sentinel in both fields, never NaN.
type Result struct {
	P50       float64
	P99       float64
	Samples   int
	Truncated bool
}

// Valid reports whether any sample contributed to the result.
func (r Result) Valid() bool { return r.Samples > 0 }

// Strategy computes a Result over all sources. Implementations reuse internal
// buffers and are not safe for concurrent use.
type Strategy interface {
	Name() string
	Aggregate(srcs []Source, cyclesPerUs float64) Result
}

// P50Index returns floor(0.50 n), clamped into [0, n).
func P50Index(n int) int {
	if n <= 1 {
		return 0
	}
	return clampIndex(int(math.Floor(0.50*float64(n))), n)
}

// P99Index returns ceil(0.99 n) - 1, clamped into [0, n).
func P99Index(n int) int {
	if n <= 1 {
		return 0
	}
	return clampIndex(int(math.Ceil(0.99*float64(n)))-1, n)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// perPoller is how many samples may be taken from src: min(seen, K, limit).
// A non-positive limit means no per-poller limit beyond K.
func perPoller(src Source, limit int) int {
	n := src.Cap()
	if seen := src.Seen(); seen < uint64(n) {
		n = int(seen)
	}
	if limit > 0 && limit < n {
		n = limit
	}
	return n
}

func micros(cycles uint64, cyclesPerUs float64) float64 {
	return float64(cycles) / cyclesPerUs
}

// Options configure the strategy built by ByName.
type Options struct {
	// SampleCap bounds the samples taken from one poller.
	SampleCap int
	// Budget bounds the exhaustive merge buffer. Zero means pollers × SampleCap.
	Budget int
	// Pollers is the number of pollers drawn by the sampled strategy.
	Pollers int
	// Seed feeds the sampled strategy's poller selection.
	Seed uint64
	// RelativeAccuracy of the sketch strategy.
	RelativeAccuracy float64
	Logger           *zap.SugaredLogger
}

const (
	NameExhaustive = "exhaustive"
	NameSampled    = "sampled"
	NameSketch     = "sketch"
)

// ByName builds the strategy called name.
func ByName(name string, o Options) (Strategy, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	switch name {
	case NameExhaustive:
		return &Exhaustive{SampleCap: o.SampleCap, Budget: o.Budget, Logger: log}, nil
	case NameSampled:
		return NewSampled(o.Pollers, o.SampleCap, o.Seed), nil
	case NameSketch:
		sk, err := NewSketch(o.SampleCap, o.RelativeAccuracy)
		if err != nil {
			return nil, err
		}
		sk.Logger = log
		return sk, nil
	}
	return nil, fmt.Errorf("unknown aggregation strategy %q (want %s, %s or %s)",
		name, NameExhaustive, NameSampled, NameSketch)
}
