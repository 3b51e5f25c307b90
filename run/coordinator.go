// Package run sequences a measurement: start the pollers, wait for the stop
// condition, read energy, join the pollers, aggregate and print.
package run

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"poll-simul/aggregate"
	"poll-simul/clock"
	"poll-simul/display"
	"poll-simul/poller"
	"poll-simul/power"
	"poll-simul/report"
	"poll-simul/reservoir"
	"poll-simul/sink"
)

// Samples taken per poller for the live view's histogram.
const liveSampleCap = 5000

// State of a run.
type State int32

const (
	Init State = iota
	Running
	Stopping
	Done
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Deps are the collaborators of a run.
type Deps struct {
	Clock       clock.Source
	CyclesPerUs float64
	// Energy zones summed into the power figure; empty means unavailable.
	Energy []power.EnergyZone
	Placer poller.Placer
	// Output receives report lines (default io.Discard).
	Output  io.Writer
	Sinks   sink.Sink
	Display *display.Display
	Logger  *zap.SugaredLogger
}

// Coordinator owns the stop condition, the reservoirs and the workers of one run.
type Coordinator struct {
	cfg   Config
	deps  Deps
	log   *zap.SugaredLogger
	out   *report.Writer
	stop  *Stop
	state atomic.Int32

	reservoirs []*reservoir.Reservoir
	sources    []aggregate.Source
	workers    []*poller.Worker

	startedAt time.Time
	last      report.Report
}

// New validates cfg and allocates every reservoir and worker up front.
func New(cfg Config, deps Deps) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		return nil, fmt.Errorf("%w: no clock source", ErrInvalidConfig)
	}
	if !(deps.CyclesPerUs > 0) {
		return nil, fmt.Errorf("%w: cycles per microsecond must be positive, got %v", ErrInvalidConfig, deps.CyclesPerUs)
	}
	if deps.Output == nil {
		deps.Output = io.Discard
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop().Sugar()
	}

	c := &Coordinator{
		cfg:  cfg,
		deps: deps,
		log:  deps.Logger,
		out:  report.NewWriter(deps.Output, cfg.Separator),
		stop: NewStop(),
	}

	n := cfg.Pollers()
	c.reservoirs = make([]*reservoir.Reservoir, n)
	c.sources = make([]aggregate.Source, n)
	for i := range c.reservoirs {
		c.reservoirs[i] = reservoir.New(cfg.ReservoirK, cfg.Seed+uint64(i))
		c.sources[i] = c.reservoirs[i]
	}

	opts := []poller.Option{poller.WithLogger(c.log)}
	if deps.Placer != nil {
		opts = append(opts, poller.WithPlacer(deps.Placer))
	}
	next := 0
	for i, slots := range cfg.Layout() {
		pcfg := cfg.Poller
		if cfg.PinWorkers {
			core := i % cfg.ActiveCores
			pcfg.PinnedCore = &core
		}
		c.workers = append(c.workers, poller.New(i, pcfg, deps.Clock, c.reservoirs[next:next+slots], opts...))
		next += slots
	}
	return c, nil
}

// State reports the lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Stop requests the run to end, as an interrupt would.
func (c *Coordinator) Stop() {
	c.stop.Set()
}

// Workers is the number of OS-thread workers in the run.
func (c *Coordinator) Workers() int {
	return len(c.workers)
}

// Run executes the measurement until ctx is cancelled, the configured duration
// elapses or Stop is called. It returns the last report produced.
func (c *Coordinator) Run(ctx context.Context) (report.Report, error) {
	if !c.state.CompareAndSwap(int32(Init), int32(Running)) {
		return report.Report{}, fmt.Errorf("run already started (state %v)", c.State())
	}
	defer c.state.Store(int32(Done))

	c.log.Infof("Starting %d pollers on %d workers (%s mode, %s aggregation, K=%d)",
		len(c.reservoirs), len(c.workers), c.cfg.Mode, c.cfg.Strategy.Name(), c.cfg.ReservoirK)

	if len(c.deps.Energy) == 0 {
		c.log.Warnf("No energy telemetry available, power reported as 0.00")
	}
	estimator := power.NewEstimator(c.deps.Energy, c.log)
	c.startedAt = time.Now()
	if c.cfg.Mode == ModeFinal {
		estimator.Start(c.startedAt)
	}

	var g errgroup.Group
	for _, w := range c.workers {
		g.Go(func() error {
			err := w.Run(c.stop)
			if err != nil {
				c.stop.Set()
			}
			return err
		})
	}

	go c.trigger(ctx)

	reporterDone := make(chan struct{})
	if c.cfg.Mode == ModePeriodic {
		go func() {
			defer close(reporterDone)
			c.reportPeriodically()
		}()
	} else {
		close(reporterDone)
	}

	<-c.stop.Done()
	c.state.Store(int32(Stopping))
	stoppedAt := time.Now()
	var watts float64
	var powerOK bool
	if c.cfg.Mode == ModeFinal {
		// energy is read before the join barrier
		watts, powerOK = estimator.Finish(stoppedAt)
	}
	<-reporterDone

	if err := g.Wait(); err != nil {
		return report.Report{}, fmt.Errorf("worker: %w", err)
	}
	c.log.Debugf("All workers joined %v after stop", time.Since(stoppedAt))

	if c.cfg.Mode == ModePeriodic {
		return c.last, nil
	}

	res := c.cfg.Strategy.Aggregate(c.sources, c.deps.CyclesPerUs)
	r := c.newReport(watts, powerOK, res, stoppedAt)
	c.emit(r)
	return r, nil
}

// trigger maps cancellation and the deadline onto the stop condition.
func (c *Coordinator) trigger(ctx context.Context) {
	var deadline <-chan time.Time
	if c.cfg.Duration > 0 {
		timer := time.NewTimer(c.cfg.Duration)
		defer timer.Stop()
		deadline = timer.C
	}
	select {
	case <-ctx.Done():
		c.log.Infof("Interrupted, stopping")
	case <-deadline:
		c.log.Debugf("Run duration %v elapsed", c.cfg.Duration)
	case <-c.stop.Done():
	}
	c.stop.Set()
}

func (c *Coordinator) reportPeriodically() {
	meter := power.NewMeter(c.deps.Energy, c.log)
	meter.Start(time.Now())

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	warmup := true
	for {
		select {
		case <-c.stop.Done():
			return
		case now := <-ticker.C:
			if c.stop.Stopped() {
				return
			}
			watts, ok := meter.Tick(now)
			res := c.cfg.Strategy.Aggregate(c.sources, c.deps.CyclesPerUs)
			if warmup {
				warmup = false
				continue
			}

			r := c.newReport(watts, ok, res, now)
			c.emit(r)
			c.last = r
			if c.deps.Display != nil {
				c.deps.Display.Render(display.Frame{
					Report:  r,
					Hist:    aggregate.Histogram(c.sources, liveSampleCap, c.deps.CyclesPerUs),
					Uptime:  now.Sub(c.startedAt),
					Pollers: len(c.reservoirs),
				})
			}
		}
	}
}

func (c *Coordinator) newReport(watts float64, powerOK bool, res aggregate.Result, at time.Time) report.Report {
	if !powerOK {
		watts = math.NaN()
	}
	if !res.Valid() {
		c.log.Warnf("No latency samples collected, latency reported as 0.00")
	}
	return report.Report{
		Labels:     append([]int(nil), c.cfg.Labels...),
		PowerWatts: watts,
		P50Us:      res.P50,
		P99Us:      res.P99,
		Samples:    res.Samples,
		Time:       at,
	}
}

func (c *Coordinator) emit(r report.Report) {
	if err := c.out.Write(r); err != nil {
		c.log.Warnf("Writing report: %v", err)
	}
	if c.deps.Sinks != nil {
		c.deps.Sinks.Publish(r)
	}
}
