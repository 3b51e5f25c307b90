package run

import (
	"errors"
	"fmt"
	"math"
	"time"

	"poll-simul/aggregate"
	"poll-simul/poller"
	"poll-simul/report"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Mode selects when reports are produced.
type Mode int

const (
	// ModeFinal prints one report after all workers stopped.
	ModeFinal Mode = iota
	// ModePeriodic prints a report every Interval while workers run.
	ModePeriodic
)

func (m Mode) String() string {
	switch m {
	case ModeFinal:
		return "final"
	case ModePeriodic:
		return "periodic"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode accepts "final" or "periodic".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "final":
		return ModeFinal, nil
	case "periodic":
		return ModePeriodic, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q (want final or periodic)", ErrInvalidConfig, s)
}

// Config describes one measurement run.
type Config struct {
	TotalCores     int
	ActiveCores    int
	PollersPerCore int
	// Duration of the run; 0 runs until the context is cancelled.
	Duration time.Duration
	// Labels are echoed verbatim at the start of each report line.
	Labels []int

	Poller poller.Config
	// PinWorkers pins worker i to core i mod ActiveCores.
	PinWorkers bool
	ReservoirK int
	// Seed feeds the reservoirs' replacement generators.
	Seed uint64

	Strategy  aggregate.Strategy
	Mode      Mode
	Interval  time.Duration
	Separator string
}

// Pollers is the number of logical pollers in the run.
func (c Config) Pollers() int {
	return c.TotalCores * c.PollersPerCore
}

// Validate rejects configurations the run cannot start with.
func (c Config) Validate() error {
	switch {
	case c.TotalCores <= 0:
		return fmt.Errorf("%w: total cores must be positive, got %d", ErrInvalidConfig, c.TotalCores)
	case c.ActiveCores <= 0 || c.ActiveCores > c.TotalCores:
		return fmt.Errorf("%w: active cores must be in [1, %d], got %d", ErrInvalidConfig, c.TotalCores, c.ActiveCores)
	case c.PollersPerCore <= 0:
		return fmt.Errorf("%w: pollers per core must be positive, got %d", ErrInvalidConfig, c.PollersPerCore)
	case c.Duration < 0:
		return fmt.Errorf("%w: duration must not be negative, got %v", ErrInvalidConfig, c.Duration)
	case c.ReservoirK <= 0:
		return fmt.Errorf("%w: reservoir capacity must be positive, got %d", ErrInvalidConfig, c.ReservoirK)
	case c.Poller.TicksPerCycle < 0:
		return fmt.Errorf("%w: ticks per cycle must not be negative, got %d", ErrInvalidConfig, c.Poller.TicksPerCycle)
	case c.Poller.SlotsPerWorker < 0:
		return fmt.Errorf("%w: slots per worker must not be negative, got %d", ErrInvalidConfig, c.Poller.SlotsPerWorker)
	case len(c.Labels) > report.MaxLabels:
		return fmt.Errorf("%w: at most %d labels, got %d", ErrInvalidConfig, report.MaxLabels, len(c.Labels))
	case c.Strategy == nil:
		return fmt.Errorf("%w: no aggregation strategy", ErrInvalidConfig)
	case c.Mode != ModeFinal && c.Mode != ModePeriodic:
		return fmt.Errorf("%w: unknown mode %v", ErrInvalidConfig, c.Mode)
	case c.Mode == ModePeriodic && c.Interval <= 0:
		return fmt.Errorf("%w: periodic mode needs a positive interval, got %v", ErrInvalidConfig, c.Interval)
	}

	if c.TotalCores > math.MaxInt/c.PollersPerCore {
		return fmt.Errorf("%w: %d cores × %d pollers overflows", ErrInvalidConfig, c.TotalCores, c.PollersPerCore)
	}
	// reservoirs are K uint64 slots per poller
	if n := c.Pollers(); c.ReservoirK > math.MaxInt/8/n {
		return fmt.Errorf("%w: %d pollers × %d samples overflows the reservoir allocation",
			ErrInvalidConfig, n, c.ReservoirK)
	}
	return nil
}

// Layout returns the number of poller slots served by each worker.
func (c Config) Layout() []int {
	n := c.Pollers()
	if s := c.Poller.SlotsPerWorker; s > 0 {
		workers := (n + s - 1) / s
		slots := make([]int, workers)
		for i := range slots {
			slots[i] = s
		}
		slots[workers-1] = n - s*(workers-1)
		return slots
	}

	workers := min(c.ActiveCores, n)
	base, rem := n/workers, n%workers
	slots := make([]int, workers)
	for i := range slots {
		slots[i] = base
		if i < rem {
			slots[i]++
		}
	}
	return slots
}
