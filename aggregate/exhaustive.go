package aggregate

import (
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
)

// Exhaustive merges samples from every poller into one buffer and takes exact
// percentiles over the merged set.
type Exhaustive struct {
	// SampleCap bounds the samples taken per poller (0 = up to K).
	SampleCap int
	// Budget bounds the merge buffer (0 = pollers × per-poller bound).
	Budget int
	Logger *zap.SugaredLogger

	buf []uint64
}

func (e *Exhaustive) Name() string { return NameExhaustive }

func (e *Exhaustive) budget(srcs []Source) int {
	if e.Budget > 0 {
		return e.Budget
	}
	total := 0
	for _, src := range srcs {
		if e.SampleCap > 0 {
			total += min(e.SampleCap, src.Cap())
		} else {
			total += src.Cap()
		}
	}
	return total
}

func (e *Exhaustive) Aggregate(srcs []Source, cyclesPerUs float64) Result {
	if len(srcs) == 0 || cyclesPerUs <= 0 {
		return Result{}
	}

	budget := e.budget(srcs)
	if cap(e.buf) < budget {
		e.buf = make([]uint64, budget)
	}
	buf := e.buf[:budget]

	total := 0
	truncated := false
	for _, src := range srcs {
		want := perPoller(src, e.SampleCap)
		if want == 0 {
			continue
		}
		if room := budget - total; want > room {
			want = room
			truncated = true
		}
		total += src.CopyInto(buf[total : total+want])
		if truncated {
			break
		}
	}
	if truncated && e.Logger != nil {
		e.Logger.Warnf("latency sample buffer full (%d samples), remaining samples discarded", budget)
	}
	if total == 0 {
		return Result{Truncated: truncated}
	}

	merged := buf[:total]
	slices.Sort(merged)
	return Result{
		P50:       micros(merged[P50Index(total)], cyclesPerUs),
		P99:       micros(merged[P99Index(total)], cyclesPerUs),
		Samples:   total,
		Truncated: truncated,
	}
}
