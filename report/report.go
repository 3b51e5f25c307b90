// Package report defines the measurement line the harness emits and the offline
// tooling that reads it back.
package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"
)

// MaxLabels is the number of free-form integer labels carried by a report.
const MaxLabels = 3

// Report is one measurement: labels, then average power and global latency
// percentiles. Unavailable figures hold NaN or 0 and are printed as 0.00.
type Report struct {
	Labels     []int     `json:"labels"`
	PowerWatts float64   `json:"power_watts"`
	P50Us      float64   `json:"p50_us"`
	P99Us      float64   `json:"p99_us"`
	Samples    int       `json:"samples"`
	Time       time.Time `json:"time"`
}

// clean maps values that cannot be printed as a measurement to the 0 sentinel.
func clean(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
		return 0
	}
	return v
}

// Sanitized returns a copy with NaN and infinite values replaced by 0, safe for
// JSON encoding.
func (r Report) Sanitized() Report {
	r.PowerWatts = clean(r.PowerWatts)
	r.P50Us = clean(r.P50Us)
	r.P99Us = clean(r.P99Us)
	return r
}

// Format renders labels as integers and figures with two decimals, joined by sep.
// Missing labels are printed as 0 so a line always has MaxLabels+3 fields.
func (r Report) Format(sep string) string {
	var b strings.Builder
	for _, l := range r.Labels {
		fmt.Fprintf(&b, "%d%s", l, sep)
	}
	for i := len(r.Labels); i < MaxLabels; i++ {
		fmt.Fprintf(&b, "0%s", sep)
	}
	fmt.Fprintf(&b, "%.2f%s%.2f%s%.2f", clean(r.PowerWatts), sep, clean(r.P50Us), sep, clean(r.P99Us))
	return b.String()
}

// Writer prints one line per report and flushes it immediately.
type Writer struct {
	mu  sync.Mutex
	w   *bufio.Writer
	sep string
}

// NewWriter returns a Writer using sep between fields (default ",").
func NewWriter(w io.Writer, sep string) *Writer {
	if sep == "" {
		sep = ","
	}
	return &Writer{w: bufio.NewWriter(w), sep: sep}
}

// Write prints r.
func (w *Writer) Write(r Report) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.WriteString(r.Format(w.sep)); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}
