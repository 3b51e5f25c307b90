package aggregate

import (
	"github.com/HdrHistogram/hdrhistogram-go"
)

// HDR histogram range: 1µs to 60s, 3 significant figures
const (
	histMin    = 1
	histMax    = 60_000_000
	histSigFig = 3
)

// Histogram records up to sampleCap samples per source, in microseconds, into an
// HDR histogram for percentiles beyond p50/p99.
func Histogram(srcs []Source, sampleCap int, cyclesPerUs float64) *hdrhistogram.Histogram {
	h := hdrhistogram.New(histMin, histMax, histSigFig)
	if cyclesPerUs <= 0 {
		return h
	}

	var buf []uint64
	for _, src := range srcs {
		want := perPoller(src, sampleCap)
		if want == 0 {
			continue
		}
		if cap(buf) < want {
			buf = make([]uint64, want)
		}
		n := src.CopyInto(buf[:want])
		for _, v := range buf[:n] {
			us := int64(micros(v, cyclesPerUs))
			if us < histMin {
				us = histMin
			}
			if us > histMax {
				us = histMax
			}
			h.RecordValue(us)
		}
	}
	return h
}
