// Package poller implements the worker loop whose activation-to-activation gaps are
// the scheduling latency being measured.
package poller

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"poll-simul/clock"
	"poll-simul/reservoir"
)

// Config selects the poller variant. Variants differ only in these parameters.
type Config struct {
	// TicksPerCycle is the number of clock reads performed as busy work per activation.
	TicksPerCycle int
	// SlotsPerWorker is the number of logical pollers one worker serves round-robin.
	// Zero lets the coordinator spread pollers evenly over workers.
	SlotsPerWorker int
	// PinnedCore pins the worker's OS thread to a CPU when set.
	PinnedCore *int
}

// Stopper is the cooperative stop condition polled by every worker.
type Stopper interface {
	Stopped() bool
}

// Placer moves an OS thread into a resource group.
type Placer interface {
	Place(tid int) error
}

// State of a worker.
type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

var ErrNoSlots = errors.New("poller: worker has no slots")

type slot struct {
	lastTS uint64
	res    *reservoir.Reservoir
}

// Worker drives one or more poller slots from a single OS thread.
type Worker struct {
	id     int
	cfg    Config
	clock  clock.Source
	slots  []slot
	placer Placer
	yield  func()
	log    *zap.SugaredLogger
	state  atomic.Int32
	spun   uint64 // last busy-work read, kept so the reads stay observable
}

// Option configures a Worker.
type Option func(*Worker)

// WithPlacer places the worker thread into a resource group at startup.
func WithPlacer(p Placer) Option { return func(w *Worker) { w.placer = p } }

// WithLogger sets the logger used for startup warnings.
func WithLogger(l *zap.SugaredLogger) Option { return func(w *Worker) { w.log = l } }

// WithYield replaces the processor yield performed after every round of slots.
func WithYield(f func()) Option { return func(w *Worker) { w.yield = f } }

// New builds worker id over the given reservoirs, one slot per reservoir.
func New(id int, cfg Config, src clock.Source, reservoirs []*reservoir.Reservoir, opts ...Option) *Worker {
	w := &Worker{
		id:    id,
		cfg:   cfg,
		clock: src,
		slots: make([]slot, len(reservoirs)),
		yield: osYield,
		log:   zap.NewNop().Sugar(),
	}
	for i, r := range reservoirs {
		w.slots[i].res = r
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State reports the worker's lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Run executes the poll loop until stop reports true. It occupies the calling
// goroutine's OS thread for its whole duration.
func (w *Worker) Run(stop Stopper) error {
	if len(w.slots) == 0 {
		return ErrNoSlots
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	w.setup()
	w.state.Store(int32(Running))
	defer w.state.Store(int32(Stopped))

	start := w.clock.Now()
	for i := range w.slots {
		w.slots[i].lastTS = start
	}

	offset := 0
	for !stop.Stopped() {
		s := &w.slots[offset]
		now := w.clock.Now()
		s.res.Record(now - s.lastTS)
		s.lastTS = now

		if w.spin(stop) {
			break
		}

		offset++
		if offset == len(w.slots) {
			offset = 0
			w.yield()
		}
	}
	return nil
}

// spin performs the busy-work ticks, reporting whether stop fired meanwhile.
func (w *Worker) spin(stop Stopper) bool {
	for tick := 0; tick < w.cfg.TicksPerCycle; tick++ {
		if stop.Stopped() {
			return true
		}
		w.spun = w.clock.Now()
	}
	return stop.Stopped()
}

func (w *Worker) setup() {
	if w.cfg.PinnedCore != nil {
		if err := pin(*w.cfg.PinnedCore); err != nil {
			w.log.Warnf("worker %d: pinning to core %d failed: %v", w.id, *w.cfg.PinnedCore, err)
		}
	}
	if w.placer != nil {
		if err := w.placer.Place(threadID()); err != nil {
			w.log.Warnf("worker %d: resource group placement failed: %v", w.id, err)
		}
	}
}
