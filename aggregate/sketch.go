package aggregate

import (
	"fmt"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/DataDog/sketches-go/ddsketch/mapping"
	"github.com/DataDog/sketches-go/ddsketch/store"
	"go.uber.org/zap"
)

// DefaultRelativeAccuracy keeps reported quantiles within ±1% of the true value.
const DefaultRelativeAccuracy = 0.01

// Sketch builds a DDSketch per poller and merges them. Quantiles carry a relative
// error bound instead of being exact over a bounded buffer.
type Sketch struct {
	SampleCap int
	Logger    *zap.SugaredLogger

	mapping mapping.IndexMapping
	buf     []uint64
}

// NewSketch returns a sketch strategy with the given relative accuracy
// (0 selects DefaultRelativeAccuracy).
func NewSketch(sampleCap int, relativeAccuracy float64) (*Sketch, error) {
	if relativeAccuracy <= 0 {
		relativeAccuracy = DefaultRelativeAccuracy
	}
	m, err := mapping.NewLogarithmicMapping(relativeAccuracy)
	if err != nil {
		return nil, fmt.Errorf("sketch mapping: %w", err)
	}
	return &Sketch{SampleCap: sampleCap, Logger: zap.NewNop().Sugar(), mapping: m}, nil
}

func (s *Sketch) newSketch() *ddsketch.DDSketch {
	return ddsketch.NewDDSketch(s.mapping, store.NewDenseStore(), store.NewDenseStore())
}

func (s *Sketch) Name() string { return NameSketch }

func (s *Sketch) log() *zap.SugaredLogger {
	if s.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.Logger
}

func (s *Sketch) Aggregate(srcs []Source, cyclesPerUs float64) Result {
	if len(srcs) == 0 || cyclesPerUs <= 0 {
		return Result{}
	}

	merged := s.newSketch()
	total := 0
	for _, src := range srcs {
		want := perPoller(src, s.SampleCap)
		if want == 0 {
			continue
		}
		if cap(s.buf) < want {
			s.buf = make([]uint64, want)
		}
		n := src.CopyInto(s.buf[:want])

		per := s.newSketch()
		dropped := 0
		for _, v := range s.buf[:n] {
			if err := per.Add(micros(v, cyclesPerUs)); err != nil {
				dropped++
				continue
			}
			total++
		}
		if dropped > 0 {
			s.log().Debugf("sketch: %d of %d samples outside the trackable range", dropped, n)
		}
		if err := merged.MergeWith(per); err != nil {
			s.log().Debugf("sketch: merging poller sketch: %v", err)
			total -= n - dropped
		}
	}

	if total == 0 || merged.GetCount() == 0 {
		return Result{}
	}
	p50, err50 := merged.GetValueAtQuantile(0.50)
	p99, err99 := merged.GetValueAtQuantile(0.99)
	if err50 != nil || err99 != nil {
		return Result{}
	}
	return Result{P50: p50, P99: p99, Samples: total}
}
