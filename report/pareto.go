package report

import (
	"fmt"
	"sort"
)

// Metric selects which latency percentile the frontier trades against power.
type Metric string

const (
	MetricP50 Metric = "p50"
	MetricP99 Metric = "p99"
)

// ParseMetric validates a metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricP50, MetricP99:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown latency metric %q (want p50 or p99)", s)
}

// Latency returns the row's value for m.
func (r Row) Latency(m Metric) float64 {
	if m == MetricP99 {
		return r.P99
	}
	return r.P50
}

// Frontier returns the rows not dominated in (power, latency), ordered by
// increasing power. Each successive row has strictly lower latency.
func Frontier(rows []Row, m Metric) []Row {
	sorted := append([]Row(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Power != sorted[j].Power {
			return sorted[i].Power < sorted[j].Power
		}
		return sorted[i].Latency(m) < sorted[j].Latency(m)
	})

	var frontier []Row
	for _, row := range sorted {
		if len(frontier) == 0 || row.Latency(m) < frontier[len(frontier)-1].Latency(m) {
			frontier = append(frontier, row)
		}
	}
	return frontier
}

// SelectUnderBudget picks the highest-power frontier row whose power does not
// exceed budget watts.
func SelectUnderBudget(frontier []Row, budget float64) (Row, bool) {
	for i := len(frontier) - 1; i >= 0; i-- {
		if frontier[i].Power <= budget {
			return frontier[i], true
		}
	}
	return Row{}, false
}
