package sink

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"poll-simul/report"
)

// Prometheus exposes the latest report as gauges.
type Prometheus struct {
	power   prometheus.Gauge
	p50     prometheus.Gauge
	p99     prometheus.Gauge
	samples prometheus.Gauge
	reports prometheus.Counter
}

// NewPrometheus registers the report collectors on reg. A nil reg leaves them
// unregistered.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		power: f.NewGauge(prometheus.GaugeOpts{
			Name: "pollsim_power_watts",
			Help: "Average processor power over the last report interval (0 when unavailable).",
		}),
		p50: f.NewGauge(prometheus.GaugeOpts{
			Name: "pollsim_latency_p50_microseconds",
			Help: "Poller scheduling latency, 50th percentile.",
		}),
		p99: f.NewGauge(prometheus.GaugeOpts{
			Name: "pollsim_latency_p99_microseconds",
			Help: "Poller scheduling latency, 99th percentile.",
		}),
		samples: f.NewGauge(prometheus.GaugeOpts{
			Name: "pollsim_latency_samples",
			Help: "Latency samples behind the last report.",
		}),
		reports: f.NewCounter(prometheus.CounterOpts{
			Name: "pollsim_reports_total",
			Help: "Reports produced by the run.",
		}),
	}
}

func (p *Prometheus) Publish(r report.Report) {
	r = r.Sanitized()
	p.power.Set(r.PowerWatts)
	p.p50.Set(r.P50Us)
	p.p99.Set(r.P99Us)
	p.samples.Set(float64(r.Samples))
	p.reports.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(g),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Infof("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
