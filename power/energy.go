package power

import "time"

// Averages over windows this short are reported as unavailable.
const minElapsed = time.Millisecond

// Snapshot is one reading of a zone.
type Snapshot struct {
	Value uint64
	Max   uint64
}

// Delta returns the energy consumed between two readings, allowing for at most one
// wrap. A counter that went backwards with an unknown wrap point yields end.
func Delta(start, end, maxUJ uint64) uint64 {
	if end >= start {
		return end - start
	}
	if maxUJ == 0 {
		return end
	}
	return maxUJ - start + end
}

// Average converts deltaUJ over elapsed into watts. ok is false when elapsed is
// too short to give a meaningful figure.
func Average(deltaUJ uint64, elapsed time.Duration) (watts float64, ok bool) {
	if elapsed <= minElapsed {
		return 0, false
	}
	return float64(deltaUJ) / 1e6 / elapsed.Seconds(), true
}
