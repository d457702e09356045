package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	actionStarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shellact",
			Subsystem: "action",
			Name:      "starts_total",
			Help:      "Number of actions handed off for execution.",
		},
	)
	actionFinishes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shellact",
			Subsystem: "action",
			Name:      "finished_total",
			Help:      "Number of actions that exited with code zero.",
		},
	)
	actionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shellact",
			Subsystem: "action",
			Name:      "failures_total",
			Help:      "Number of actions that exited non-zero or failed to start.",
		},
	)
	actionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shellact",
			Subsystem: "action",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of completed actions.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{actionStarts, actionFinishes, actionFailures, actionDuration}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// RegisterDefault registers the collectors with the default registry.
func RegisterDefault() error { return Register(prometheus.DefaultRegisterer) }

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Serve runs a standalone metrics listener on addr. It blocks.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncStart() {
	if regOK.Load() {
		actionStarts.Inc()
	}
}

func IncFinish() {
	if regOK.Load() {
		actionFinishes.Inc()
	}
}

func IncFailure() {
	if regOK.Load() {
		actionFailures.Inc()
	}
}

func ObserveDuration(d time.Duration) {
	if regOK.Load() {
		actionDuration.Observe(d.Seconds())
	}
}
