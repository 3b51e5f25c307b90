// Package display renders the live view of a periodic run on stderr.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"golang.org/x/term"

	"poll-simul/report"
)

// Rows kept on screen.
const historyRows = 20

const width = 100

// Frame is one reporting interval.
type Frame struct {
	Report  report.Report
	Hist    *hdrhistogram.Histogram
	Uptime  time.Duration
	Pollers int
}

type row struct {
	at                        time.Time
	power                     float64
	p50, p90, p99, p999, maxV int64
	samples                   int64
	valid                     bool
}

// Display handles rendering
type Display struct {
	BatchMode bool

	out           io.Writer
	interval      time.Duration
	history       []row
	headerPrinted bool
}

// New returns a display writing to out. Batch mode is forced when out is a file
// that is not a terminal.
func New(out io.Writer, batch bool, interval time.Duration) *Display {
	if f, ok := out.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		batch = true
	}
	return &Display{BatchMode: batch, out: out, interval: interval}
}

// formatLatency formats a latency value (in µs) to human-readable string
func formatLatency(us int64) string {
	if us < 1000 {
		return fmt.Sprintf("%dµs", us)
	}
	if us < 1_000_000 {
		return fmt.Sprintf("%.1fms", float64(us)/1000)
	}
	return fmt.Sprintf("%.1fs", float64(us)/1_000_000)
}

// formatLatencyPadded formats latency right-aligned in 8 chars
func formatLatencyPadded(us int64) string {
	return fmt.Sprintf("%8s", formatLatency(us))
}

// formatCount formats sample counts
func formatCount(n int64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.1fB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// formatDuration formats elapsed time
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", h, m)
}

func formatPower(w float64) string {
	if w <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fW", w)
}

func newRow(f Frame) row {
	r := row{at: f.Report.Time, power: f.Report.Sanitized().PowerWatts}
	if f.Hist == nil || f.Hist.TotalCount() == 0 {
		return r
	}
	h := f.Hist
	r.p50 = h.ValueAtQuantile(50)
	r.p90 = h.ValueAtQuantile(90)
	r.p99 = h.ValueAtQuantile(99)
	r.p999 = h.ValueAtQuantile(99.9)
	r.maxV = h.Max()
	r.samples = h.TotalCount()
	r.valid = true
	return r
}

func writeHeader(buf *strings.Builder) {
	fmt.Fprintf(buf, "%-8s │ %8s │ %8s %8s %8s %8s %8s │ %9s\n",
		"TIME", "power", "p50", "p90", "p99", "p99.9", "max", "samples")
	buf.WriteString(strings.Repeat("-", width))
	buf.WriteString("\n")
}

func writeRow(buf *strings.Builder, r row) {
	ts := r.at.Format("15:04:05")
	if !r.valid {
		fmt.Fprintf(buf, "%-8s │ %8s │ %8s %8s %8s %8s %8s │ %9s\n",
			ts, formatPower(r.power), "-", "-", "-", "-", "-", "0")
		return
	}
	fmt.Fprintf(buf, "%-8s │ %8s │ %s %s %s %s %s │ %9s\n",
		ts,
		formatPower(r.power),
		formatLatencyPadded(r.p50),
		formatLatencyPadded(r.p90),
		formatLatencyPadded(r.p99),
		formatLatencyPadded(r.p999),
		formatLatencyPadded(r.maxV),
		formatCount(r.samples),
	)
}

func (d *Display) resetCursor() {
	if !d.BatchMode {
		fmt.Fprint(d.out, "\033[H\033[J")
	}
}

// Render draws f. Interactive mode redraws the screen with recent intervals;
// batch mode appends one row per interval.
func (d *Display) Render(f Frame) {
	r := newRow(f)
	var buf strings.Builder

	if d.BatchMode {
		if !d.headerPrinted {
			writeHeader(&buf)
			d.headerPrinted = true
		}
		writeRow(&buf, r)
		fmt.Fprint(d.out, buf.String())
		return
	}

	d.history = append(d.history, r)
	if len(d.history) > historyRows {
		d.history = d.history[len(d.history)-historyRows:]
	}

	fmt.Fprintf(&buf, "Poller Latency Monitor - %s (uptime: %s, interval: %s, pollers: %d)\n",
		f.Report.Time.Format("15:04:05"), formatDuration(f.Uptime), formatDuration(d.interval), f.Pollers)
	buf.WriteString(strings.Repeat("=", width))
	buf.WriteString("\n")
	writeHeader(&buf)
	for i := len(d.history) - 1; i >= 0; i-- {
		writeRow(&buf, d.history[i])
	}
	buf.WriteString(strings.Repeat("=", width))
	buf.WriteString("\n")

	d.resetCursor()
	fmt.Fprint(d.out, buf.String())
}
