package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	testCases := []struct {
		name     string
		r        Report
		sep      string
		expected string
	}{
		{
			name:     "full line",
			r:        Report{Labels: []int{8, 40, 125}, PowerWatts: 87.456, P50Us: 3.2, P99Us: 41.999},
			sep:      ",",
			expected: "8,40,125,87.46,3.20,42.00",
		},
		{
			name:     "no labels",
			r:        Report{PowerWatts: 1, P50Us: 2, P99Us: 3},
			sep:      ",",
			expected: "0,0,0,1.00,2.00,3.00",
		},
		{
			name:     "power unavailable",
			r:        Report{Labels: []int{4}, PowerWatts: math.NaN(), P50Us: 1.5, P99Us: 9.25},
			sep:      ",",
			expected: "4,0,0,0.00,1.50,9.25",
		},
		{
			name:     "no samples",
			r:        Report{Labels: []int{1, 2}, PowerWatts: math.Inf(1), P50Us: math.NaN(), P99Us: math.Copysign(0, -1)},
			sep:      ",",
			expected: "1,2,0,0.00,0.00,0.00",
		},
		{
			name:     "one label",
			r:        Report{Labels: []int{7}, PowerWatts: 0, P50Us: 1, P99Us: 2},
			sep:      ",",
			expected: "7,0,0,0.00,1.00,2.00",
		},
		{
			name:     "space separated",
			r:        Report{Labels: []int{2, 3, 4}, PowerWatts: 10, P50Us: 1, P99Us: 2},
			sep:      " ",
			expected: "2 3 4 10.00 1.00 2.00",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.r.Format(tc.sep); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, "")
	if err := w.Write(Report{Labels: []int{1}, PowerWatts: 2, P50Us: 3, P99Us: 4}); err != nil {
		t.Fatal(err)
	}
	// flushed without an explicit close
	if got := buf.String(); got != "1,0,0,2.00,3.00,4.00\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestSanitizedEncodesAsJSON(t *testing.T) {
	r := Report{Labels: []int{1}, PowerWatts: math.NaN(), P50Us: 1, P99Us: math.Inf(1)}
	if _, err := json.Marshal(r); err == nil {
		t.Fatal("expected NaN to be rejected by encoding/json")
	}
	data, err := json.Marshal(r.Sanitized())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"power_watts":0`) {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestParseLine(t *testing.T) {
	testCases := []struct {
		line   string
		labels []string
		power  float64
		p50    float64
		p99    float64
	}{
		{"8,40,125,87.46,3.20,42.00", []string{"8", "40", "125"}, 87.46, 3.2, 42},
		{"2 3 4 10.00 1.00 2.00", []string{"2", "3", "4"}, 10, 1, 2},
		{"1.00,2.00,3.00", nil, 1, 2, 3},
		{"4, 0.5, 0.00, 1.50, 9.25", []string{"4", "0.5"}, 0, 1.5, 9.25},
		{"4 1 2 0.00 1.00 2.00\n", []string{"4", "1", "2"}, 0, 1, 2},
		{"4,1,2,0.00,1.00,2.00\r", []string{"4", "1", "2"}, 0, 1, 2},
		{"4,1,2,0.00,1.00,2.00\r\n", []string{"4", "1", "2"}, 0, 1, 2},
	}

	for _, tc := range testCases {
		row, err := ParseLine(tc.line)
		if err != nil {
			t.Errorf("%q: %v", tc.line, err)
			continue
		}
		if strings.Join(row.Labels, "|") != strings.Join(tc.labels, "|") {
			t.Errorf("%q: labels %v, expected %v", tc.line, row.Labels, tc.labels)
		}
		if row.Power != tc.power || row.P50 != tc.p50 || row.P99 != tc.p99 {
			t.Errorf("%q: got %+v", tc.line, row)
		}
	}

	for _, bad := range []string{"", "\n", "1,2", "1,2,x"} {
		if _, err := ParseLine(bad); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
}

func TestParseLinesRoundTripsWriter(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("# cores,bw,rapl,power,p50,p99\n\n")
	w := NewWriter(&buf, ",")
	w.Write(Report{Labels: []int{4, 100, 65}, PowerWatts: 40.5, P50Us: 2, P99Us: 20})
	w.Write(Report{Labels: []int{8, 100, 65}, PowerWatts: 61.25, P50Us: 1.5, P99Us: 12})

	rows, err := ParseLines(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1].Labels[0] != "8" || rows[1].Power != 61.25 {
		t.Errorf("unexpected rows %+v", rows)
	}

	if _, err := ParseLines(strings.NewReader("1,2,3\nbad line\n")); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("expected error naming line 2, got %v", err)
	}
}

func TestFrontier(t *testing.T) {
	row := func(label string, power, p50, p99 float64) Row {
		return Row{Labels: []string{label}, Power: power, P50: p50, P99: p99}
	}
	rows := []Row{
		row("d", 60, 2.0, 30),
		row("a", 20, 9.0, 90),
		row("b", 35, 5.0, 40),
		row("c", 35, 6.0, 35), // same power, worse p50
		row("e", 70, 2.5, 10), // worse p50 than d, better p99
		row("f", 80, 1.0, 50),
	}

	testCases := []struct {
		metric   Metric
		expected string
	}{
		{MetricP50, "a b d f"},
		{MetricP99, "a c d e"},
	}
	for _, tc := range testCases {
		var got []string
		for _, r := range Frontier(rows, tc.metric) {
			got = append(got, r.Labels[0])
		}
		if strings.Join(got, " ") != tc.expected {
			t.Errorf("%s frontier: expected %s, got %s", tc.metric, tc.expected, strings.Join(got, " "))
		}
	}

	frontier := Frontier(rows, MetricP50)
	best, ok := SelectUnderBudget(frontier, 65)
	if !ok || best.Labels[0] != "d" {
		t.Errorf("budget 65: expected d, got %+v (ok=%v)", best, ok)
	}
	best, ok = SelectUnderBudget(frontier, 35)
	if !ok || best.Labels[0] != "b" {
		t.Errorf("budget 35 (inclusive): expected b, got %+v (ok=%v)", best, ok)
	}
	if _, ok := SelectUnderBudget(frontier, 10); ok {
		t.Error("budget 10: expected no configuration")
	}
}

func TestParseMetric(t *testing.T) {
	if m, err := ParseMetric("p99"); err != nil || m != MetricP99 {
		t.Errorf("p99: got %q, %v", m, err)
	}
	if _, err := ParseMetric("p90"); err == nil {
		t.Error("p90: expected error")
	}
}
