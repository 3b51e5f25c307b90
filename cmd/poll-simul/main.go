// poll-simul: scheduling latency and power harness for many lightweight pollers
//
// Spreads total_cores × pollers-per-core busy-polling loops over the active
// cores, records the gap between consecutive activations of every poller and
// reports average package power with the p50/p99 of those gaps:
//
//	label1,label2,label3,avg_power_watts,p50_latency_us,p99_latency_us
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poll-simul/aggregate"
	"poll-simul/cgroup"
	"poll-simul/clock"
	"poll-simul/display"
	"poll-simul/poller"
	"poll-simul/power"
	"poll-simul/report"
	"poll-simul/run"
	"poll-simul/sink"
)

var (
	activeCores    = flag.Int("active", 0, "cores that run workers (default: total_cores)")
	pollersPerCore = flag.Int("pollers-per-core", 3, "logical pollers per core")
	ticks          = flag.Int("ticks", 10, "busy-work clock reads per poller activation")
	slots          = flag.Int("slots", 0, "pollers served by one worker (0 = spread over active cores)")
	pin            = flag.Bool("pin", false, "pin worker i to core i mod active")
	reservoirK     = flag.Int("k", 100_000, "latency samples kept per poller")
	strategyName   = flag.String("strategy", aggregate.NameExhaustive, "aggregation: exhaustive, sampled or sketch")
	sampleCap      = flag.Int("sample-cap", 50_000, "samples taken per poller when aggregating")
	budget         = flag.Int("budget", 0, "exhaustive merge buffer size (0 = pollers × sample-cap)")
	samplePollers  = flag.Int("sample-pollers", aggregate.DefaultSampledPollers, "pollers drawn per report by the sampled strategy")
	seed           = flag.Uint64("seed", 0, "random seed (0 = time based)")
	modeName       = flag.String("mode", "final", "report mode: final or periodic")
	interval       = flag.Duration("i", time.Second, "report interval in periodic mode")
	sep            = flag.String("sep", "", "field separator (default \",\" final, \" \" periodic)")
	clockName      = flag.String("clock", "tsc", "cycle source: tsc or mono")
	calibrate      = flag.Duration("calibrate", clock.DefaultCalibrationWindow, "cycle counter calibration window")
	raplBase       = flag.String("rapl", power.DefaultBase, "powercap sysfs directory")
	raplZone       = flag.Int("rapl-zone", -1, "RAPL package index (-1 = sum of all packages)")
	cgroupName     = flag.String("cgroup", "poller_test", "cgroup for worker threads (empty disables placement)")
	cgroupRoot     = flag.String("cgroup-root", cgroup.DefaultRoot, "cgroup v2 mount point")
	pushURL        = flag.String("push", "", "websocket URL receiving every report as JSON")
	metricsAddr    = flag.String("metrics", "", "serve Prometheus metrics on this address")
	live           = flag.Bool("live", false, "live view on stderr in periodic mode")
	batch          = flag.Bool("batch", false, "batch mode (no screen clearing)")
	verbose        = flag.Bool("v", false, "debug logging")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] <total_cores> <seconds> [label1 [label2 [label3]]]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "seconds = 0 runs until interrupted.\n\nFlags:\n")
	flag.PrintDefaults()
}

func newLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if *verbose {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	return logger.Sugar()
}

func parseArgs(args []string) (total int, duration time.Duration, labels []int, err error) {
	if len(args) < 2 || len(args) > 2+report.MaxLabels {
		return 0, 0, nil, fmt.Errorf("expected <total_cores> <seconds> and up to %d labels, got %d arguments",
			report.MaxLabels, len(args))
	}
	total, err = strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("total_cores: %w", err)
	}
	secs, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, nil, fmt.Errorf("seconds: %w", err)
	}
	for i, a := range args[2:] {
		l, err := strconv.Atoi(a)
		if err != nil {
			return 0, 0, nil, fmt.Errorf("label%d: %w", i+1, err)
		}
		labels = append(labels, l)
	}
	return total, time.Duration(secs) * time.Second, labels, nil
}

func main() {
	flag.Usage = usage
	flag.Parse()

	log := newLogger()
	defer log.Sync()

	total, duration, labels, err := parseArgs(flag.Args())
	if err != nil {
		usage()
		log.Fatalf("Invalid arguments: %v", err)
	}
	active := *activeCores
	if active == 0 {
		active = total
	}

	mode, err := run.ParseMode(*modeName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	separator := *sep
	if separator == "" {
		separator = ","
		if mode == run.ModePeriodic {
			separator = " "
		}
	}
	runSeed := *seed
	if runSeed == 0 {
		runSeed = uint64(time.Now().UnixNano())
	}

	var src clock.Source
	switch *clockName {
	case "tsc":
		src = clock.TSC()
	case "mono":
		src = clock.Monotonic()
	default:
		log.Fatalf("Unknown clock %q (want tsc or mono)", *clockName)
	}
	cyclesPerUs, err := clock.Resolve(src, *calibrate)
	if err != nil {
		log.Fatalf("Calibration failed: %v", err)
	}
	log.Infof("Clock %s: %.2f cycles/µs", *clockName, cyclesPerUs)

	strategy, err := aggregate.ByName(*strategyName, aggregate.Options{
		SampleCap: *sampleCap,
		Budget:    *budget,
		Pollers:   *samplePollers,
		Seed:      runSeed,
		Logger:    log,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg := run.Config{
		TotalCores:     total,
		ActiveCores:    active,
		PollersPerCore: *pollersPerCore,
		Duration:       duration,
		Labels:         labels,
		Poller: poller.Config{
			TicksPerCycle:  *ticks,
			SlotsPerWorker: *slots,
		},
		PinWorkers: *pin,
		ReservoirK: *reservoirK,
		Seed:       runSeed,
		Strategy:   strategy,
		Mode:       mode,
		Interval:   *interval,
		Separator:  separator,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	// Energy telemetry is optional
	zones, err := power.Discover(*raplBase, *raplZone)
	if err != nil {
		log.Warnf("Energy telemetry unavailable: %v", err)
	}
	for _, z := range zones {
		defer z.Close()
		log.Debugf("Energy zone %s (wraps at %d µJ)", z.Name(), z.MaxEnergy())
	}
	energy := power.Zones(zones)

	// Signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	var sinks sink.Multi
	if *pushURL != "" {
		host, _ := os.Hostname()
		ws, err := sink.DialWebSocket(ctx, *pushURL, host, log)
		if err != nil {
			log.Warnf("Report push disabled: %v", err)
		} else {
			defer ws.Close()
			sinks = append(sinks, ws)
		}
	}
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		sinks = append(sinks, sink.NewPrometheus(reg))
		go func() {
			if err := sink.Serve(ctx, *metricsAddr, reg, log); err != nil {
				log.Warnf("Metrics server: %v", err)
			}
		}()
	}

	deps := run.Deps{
		Clock:       src,
		CyclesPerUs: cyclesPerUs,
		Energy:      energy,
		Output:      os.Stdout,
		Logger:      log,
	}
	if len(sinks) > 0 {
		deps.Sinks = sinks
	}
	if *cgroupName != "" {
		deps.Placer = &cgroup.Placer{Root: *cgroupRoot, Group: *cgroupName}
	}
	if *live && mode == run.ModePeriodic {
		deps.Display = display.New(os.Stderr, *batch, *interval)
	}

	coord, err := run.New(cfg, deps)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if _, err := coord.Run(ctx); err != nil {
		log.Fatalf("Run failed: %v", err)
	}
}
