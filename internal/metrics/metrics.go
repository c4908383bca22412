// Package metrics holds the Prometheus collectors of a benchmark run.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "poabench"

// Run groups the collectors updated by the scheduler, line readers, and
// collector. The zero value is not usable; call New.
type Run struct {
	JobsDispatched prometheus.Counter
	JobsFinished   prometheus.Counter
	JobsFailed     prometheus.Counter
	LinesSkipped   prometheus.Counter
	BusyCores      prometheus.Gauge
	PendingJobs    prometheus.Gauge

	// MeasurementRuntime observes the runtime of every received measurement.
	// Labels: algorithm, kind
	MeasurementRuntime *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Run {
	f := promauto.With(reg)
	return &Run{
		JobsDispatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_dispatched_total",
			Help:      "Worker processes started",
		}),
		JobsFinished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Jobs that ended with a Finished message",
		}),
		JobsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_failed_total",
			Help:      "Jobs that ended with an Error message",
		}),
		LinesSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_lines_skipped_total",
			Help:      "Worker output lines that did not decode as protocol messages",
		}),
		BusyCores: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "busy_cores",
			Help:      "Pool cores currently running a worker",
		}),
		PendingJobs: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_jobs",
			Help:      "Jobs not yet dispatched",
		}),
		MeasurementRuntime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "measurement_runtime_seconds",
			Help:      "Runtime reported by measurement messages",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 14),
		}, []string{"algorithm", "kind"}),
	}
}

// Serve exposes the gatherer on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Info("serving metrics", "addr", ln.Addr().String())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
