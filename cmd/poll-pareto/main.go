// poll-pareto: pick the best measured configuration under a power budget
//
// Reads poll-simul report lines (cores,bandwidth,rapl,power,p50,p99), builds the
// power/latency Pareto frontier and selects the highest-power frontier point
// that fits the budget.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"poll-simul/report"
)

var (
	dataPath   = flag.String("data", "", "file of report lines")
	budget     = flag.Float64("budget", 0, "power budget in watts")
	metricName = flag.String("metric", "p50", "latency metric: p50 or p99")
	quiet      = flag.Bool("q", false, "print only the selected configuration")
)

var labelNames = []string{"cores", "bandwidth", "RAPL limit"}

func labelName(i int) string {
	if i < len(labelNames) {
		return labelNames[i]
	}
	return fmt.Sprintf("label%d", i+1)
}

func printFrontier(w io.Writer, frontier []report.Row, m report.Metric) {
	fmt.Fprintf(w, "Pareto frontier (%d points, %s):\n", len(frontier), m)
	for _, r := range frontier {
		fmt.Fprintf(w, "  %-20s %8.2f W %10.2f µs\n", strings.Join(r.Labels, ","), r.Power, r.Latency(m))
	}
	fmt.Fprintln(w)
}

// choose prints the frontier and the selected configuration to w. It returns
// false when no frontier row fits the budget.
func choose(w io.Writer, rows []report.Row, m report.Metric, budget float64, quiet bool) bool {
	frontier := report.Frontier(rows, m)
	if !quiet {
		printFrontier(w, frontier, m)
	}

	best, ok := report.SelectUnderBudget(frontier, budget)
	if !ok {
		return false
	}

	if quiet {
		fmt.Fprintln(w, strings.Join(best.Labels, " "))
		return true
	}
	fmt.Fprintln(w, "Optimal configuration:")
	for i, l := range best.Labels {
		fmt.Fprintf(w, "  %-12s: %s\n", labelName(i), l)
	}
	fmt.Fprintf(w, "  %-12s: %.2f W\n", "power", best.Power)
	fmt.Fprintf(w, "  %-12s: %.2f µs\n", m+" latency", best.Latency(m))
	return true
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Sugar()
	defer log.Sync()

	if *dataPath == "" || *budget <= 0 {
		flag.Usage()
		log.Fatalf("-data and a positive -budget are required")
	}
	metric, err := report.ParseMetric(*metricName)
	if err != nil {
		log.Fatalf("%v", err)
	}

	f, err := os.Open(*dataPath)
	if err != nil {
		log.Fatalf("Failed to open data: %v", err)
	}
	rows, err := report.ParseLines(f)
	f.Close()
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", *dataPath, err)
	}

	if !choose(os.Stdout, rows, metric, *budget, *quiet) {
		fmt.Fprintf(os.Stderr, "No config ≤ %.2fW\n", *budget)
		os.Exit(1)
	}
}
