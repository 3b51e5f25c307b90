// Package reservoir holds the fixed-capacity latency sample store each poller owns.
//
// A Reservoir has exactly one writer, its poller. Readers (the aggregator) may copy
// samples while the writer is active: the seen counter is atomic, the slots are not.
// A reader racing the writer past capacity can observe a slot mid-overwrite; such
// torn values are tolerated and never corrected.
package reservoir

import (
	"math/rand/v2"
	"sync/atomic"
)

// Reservoir stores up to K samples. Once full, every new sample overwrites a
// uniformly chosen existing slot.
type Reservoir struct {
	samples []uint64
	seen    atomic.Uint64
	rng     *rand.Rand
}

// New pre-allocates a reservoir of k slots. seed feeds the replacement generator.
func New(k int, seed uint64) *Reservoir {
	return &Reservoir{
		samples: make([]uint64, k),
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Record stores sample. Only the owning poller may call it.
func (r *Reservoir) Record(sample uint64) {
	n := r.seen.Add(1) - 1
	k := uint64(len(r.samples))
	if n < k {
		r.samples[n] = sample
		return
	}
	if k > 0 {
		r.samples[r.rng.Uint64N(k)] = sample
	}
}

// Seen returns the total number of Record calls.
func (r *Reservoir) Seen() uint64 {
	return r.seen.Load()
}

// Cap returns K.
func (r *Reservoir) Cap() int {
	return len(r.samples)
}

// Len returns min(Seen, K), the number of valid slots.
func (r *Reservoir) Len() int {
	seen := r.seen.Load()
	if seen < uint64(len(r.samples)) {
		return int(seen)
	}
	return len(r.samples)
}

// CopyInto copies the leading min(Seen, K, len(dst)) slots into dst and returns
// the count copied.
func (r *Reservoir) CopyInto(dst []uint64) int {
	n := min(r.Len(), len(dst))
	return copy(dst[:n], r.samples[:n])
}
