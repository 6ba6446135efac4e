package sys

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// --- Collectors ---

var (
	MetricsRegistry = prometheus.NewRegistry()

	RoleMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rolekeeper",
		Name:      "role_mutations_total",
		Help:      "Role add/remove calls by operation, trigger and outcome.",
	}, []string{"op", "source", "result"})

	ReactorsCollected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rolekeeper",
		Name:      "reactors_collected_total",
		Help:      "Non-bot reactors seen by the reaction collector.",
	})

	CollectorPageFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rolekeeper",
		Name:      "collector_page_failures_total",
		Help:      "Reactor pages that failed and ended collection for one emoji.",
	})

	SweepPanels = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rolekeeper",
		Name:      "sweep_panels_total",
		Help:      "Reaction panels visited by sweeps, by outcome.",
	}, []string{"result"})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rolekeeper",
		Name:      "sweep_guild_duration_seconds",
		Help:      "Wall time of one guild sweep.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	LiveEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rolekeeper",
		Name:      "live_events_total",
		Help:      "Gateway reaction and button events by kind and outcome.",
	}, []string{"kind", "result"})

	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "rolekeeper",
		Name:      "circuit_breaker_state",
		Help:      "0 closed, 1 half-open, 2 open.",
	}, []string{"name"})
)

func init() {
	MetricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		RoleMutations,
		ReactorsCollected,
		CollectorPageFailures,
		SweepPanels,
		SweepDuration,
		LiveEvents,
		BreakerState,
	)
}

// --- Endpoint ---

// MetricsServer exposes /metrics. It is a daemon: run blocks, shutdown drains.
func MetricsServer(addr string) (run func(), shutdown func()) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(MetricsRegistry, promhttp.HandlerOpts{Registry: MetricsRegistry}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	run = func() {
		LogMetrics(MsgMetricsListening, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			LogWarn(MsgMetricsFail, err)
		}
	}
	shutdown = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return run, shutdown
}

// RegisterMetricsDaemon wires the endpoint into the daemon system when addr is set.
func RegisterMetricsDaemon(addr string) {
	RegisterDaemon(LogMetrics, func(ctx context.Context) (bool, func(), func()) {
		if addr == "" {
			return false, nil, nil
		}
		run, shutdown := MetricsServer(addr)
		return true, run, shutdown
	})
}
