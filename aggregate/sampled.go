package aggregate

import (
	"math/rand/v2"

	"golang.org/x/exp/slices"
)

// DefaultSampledPollers is how many pollers the sampled strategy draws per report.
const DefaultSampledPollers = 32

// Sampled draws pollers uniformly with replacement, takes p50/p99 of each drawn
// poller separately, and reports the largest of each. The result is an upper-bound
// heuristic for large poller counts, not a percentile of the union.
type Sampled struct {
	Pollers   int
	SampleCap int

	rng *rand.Rand
	buf []uint64
}

// NewSampled returns a sampled strategy drawing pollers per report with at most
// sampleCap samples each.
func NewSampled(pollers, sampleCap int, seed uint64) *Sampled {
	if pollers <= 0 {
		pollers = DefaultSampledPollers
	}
	return &Sampled{
		Pollers:   pollers,
		SampleCap: sampleCap,
		rng:       rand.New(rand.NewPCG(seed, seed+1)),
	}
}

func (s *Sampled) Name() string { return NameSampled }

func (s *Sampled) Aggregate(srcs []Source, cyclesPerUs float64) Result {
	if len(srcs) == 0 || cyclesPerUs <= 0 {
		return Result{}
	}

	var maxP50, maxP99 uint64
	total := 0
	draws := min(s.Pollers, len(srcs))
	for i := 0; i < draws; i++ {
		src := srcs[s.rng.IntN(len(srcs))]
		want := perPoller(src, s.SampleCap)
		if want == 0 {
			continue
		}
		if cap(s.buf) < want {
			s.buf = make([]uint64, want)
		}
		n := src.CopyInto(s.buf[:want])
		if n == 0 {
			continue
		}

		samples := s.buf[:n]
		slices.Sort(samples)
		maxP50 = max(maxP50, samples[P50Index(n)])
		maxP99 = max(maxP99, samples[P99Index(n)])
		total += n
	}

	if total == 0 {
		return Result{}
	}
	return Result{
		P50:     micros(maxP50, cyclesPerUs),
		P99:     micros(maxP99, cyclesPerUs),
		Samples: total,
	}
}
