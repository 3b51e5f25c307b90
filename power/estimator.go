package power

import (
	"time"

	"go.uber.org/zap"
)

// Estimator measures average power between one Start and one Finish.
type Estimator struct {
	zones []EnergyZone
	log   *zap.SugaredLogger

	start     []Snapshot
	startTime time.Time
	ok        bool
}

// NewEstimator returns an estimator over zones. With no zones every result is
// unavailable.
func NewEstimator(zones []EnergyZone, log *zap.SugaredLogger) *Estimator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Estimator{zones: zones, log: log}
}

// Available reports whether Start captured every zone.
func (e *Estimator) Available() bool { return e.ok }

// Start snapshots every zone.
func (e *Estimator) Start(now time.Time) {
	e.startTime = now
	e.start = e.start[:0]
	e.ok = len(e.zones) > 0
	for _, z := range e.zones {
		v, err := z.Energy()
		if err != nil {
			e.log.Warnf("energy zone %s unreadable at start, power unavailable: %v", z.Name(), err)
			e.ok = false
			return
		}
		e.start = append(e.start, Snapshot{Value: v, Max: z.MaxEnergy()})
	}
}

// Finish reads every zone again and returns the average power since Start.
func (e *Estimator) Finish(now time.Time) (float64, bool) {
	if !e.ok {
		return 0, false
	}
	var total uint64
	for i, z := range e.zones {
		v, err := z.Energy()
		if err != nil {
			e.log.Warnf("energy zone %s unreadable at end, power unavailable: %v", z.Name(), err)
			return 0, false
		}
		total += Delta(e.start[i].Value, v, e.start[i].Max)
	}
	watts, ok := Average(total, now.Sub(e.startTime))
	if !ok {
		e.log.Warnf("run too short for a power average (%v)", now.Sub(e.startTime))
	}
	return watts, ok
}

// Meter measures power over consecutive intervals.
type Meter struct {
	zones []EnergyZone
	log   *zap.SugaredLogger

	last   []Snapshot
	primed []bool
	lastAt time.Time
}

func NewMeter(zones []EnergyZone, log *zap.SugaredLogger) *Meter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Meter{
		zones:  zones,
		log:    log,
		last:   make([]Snapshot, len(zones)),
		primed: make([]bool, len(zones)),
	}
}

// Start primes the per-zone readings.
func (m *Meter) Start(now time.Time) {
	m.lastAt = now
	for i, z := range m.zones {
		v, err := z.Energy()
		if err != nil {
			m.log.Debugf("energy zone %s unreadable: %v", z.Name(), err)
			m.primed[i] = false
			continue
		}
		m.last[i] = Snapshot{Value: v, Max: z.MaxEnergy()}
		m.primed[i] = true
	}
}

// Tick returns the average power since the previous Tick (or Start). Zones that
// fail to read are left out of this interval only.
func (m *Meter) Tick(now time.Time) (float64, bool) {
	elapsed := now.Sub(m.lastAt)
	m.lastAt = now

	var total uint64
	contributed := 0
	for i, z := range m.zones {
		v, err := z.Energy()
		if err != nil {
			m.log.Debugf("energy zone %s unreadable: %v", z.Name(), err)
			continue
		}
		if m.primed[i] {
			total += Delta(m.last[i].Value, v, m.last[i].Max)
			contributed++
		}
		m.last[i] = Snapshot{Value: v, Max: z.MaxEnergy()}
		m.primed[i] = true
	}
	if contributed == 0 {
		return 0, false
	}
	return Average(total, elapsed)
}
