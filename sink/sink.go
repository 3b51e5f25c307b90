// Package sink forwards measurement reports to optional consumers next to the
// report line on stdout.
package sink

import "poll-simul/report"

// Sink receives every report. Publish must not block the caller.
type Sink interface {
	Publish(r report.Report)
}

// Multi publishes to each sink in order.
type Multi []Sink

func (m Multi) Publish(r report.Report) {
	for _, s := range m {
		s.Publish(r)
	}
}

// Func adapts a function to Sink.
type Func func(r report.Report)

func (f Func) Publish(r report.Report) { f(r) }
