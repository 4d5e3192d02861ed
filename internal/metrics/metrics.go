package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Collector aggregates the guardian's Prometheus instruments behind a
// private registry.
type Collector struct {
	reg *prometheus.Registry

	TicksProcessed   prometheus.Counter
	AlertsFired      prometheus.Counter
	PhrasingFailures prometheus.Counter
	RoutingFallbacks prometheus.Counter
	NotifyErrors     prometheus.Counter
	StaleDiscards    prometheus.Counter

	MissChance       prometheus.Gauge
	MinutesRemaining prometheus.Gauge
	StreamConnected  prometheus.Gauge

	AlertPipelineDuration prometheus.Histogram
}

// NewCollector builds and registers all instruments.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TicksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_ticks_processed_total",
			Help: "Total position samples evaluated.",
		}),
		AlertsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_alerts_fired_total",
			Help: "Total alerts surfaced to the presentation layer.",
		}),
		PhrasingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_phrasing_failures_total",
			Help: "Total phrasing provider failures recovered via templates.",
		}),
		RoutingFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_routing_fallbacks_total",
			Help: "Total rescue routes served by the straight-line fallback.",
		}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_notify_errors_total",
			Help: "Total notification delivery failures.",
		}),
		StaleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guardian_stale_results_discarded_total",
			Help: "Alert computations discarded because the session moved on.",
		}),
		MissChance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_miss_chance_pct",
			Help: "Miss probability of the latest tick.",
		}),
		MinutesRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_minutes_remaining",
			Help: "Minutes until the guarded deadline at the latest tick.",
		}),
		StreamConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "guardian_stream_connected",
			Help: "1 if the position stream connection is established.",
		}),
		AlertPipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "guardian_alert_pipeline_duration_seconds",
			Help:    "Duration of the plan+phrase+publish alert pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	reg.MustRegister(
		c.TicksProcessed, c.AlertsFired, c.PhrasingFailures,
		c.RoutingFallbacks, c.NotifyErrors, c.StaleDiscards,
		c.MissChance, c.MinutesRemaining, c.StreamConnected,
		c.AlertPipelineDuration,
	)

	return c
}

// StreamSetConnected satisfies the stream.ConnState hook.
func (c *Collector) StreamSetConnected(connected bool) {
	if connected {
		c.StreamConnected.Set(1)
	} else {
		c.StreamConnected.Set(0)
	}
}

// Handler exposes the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on addr.
func (c *Collector) Serve(addr string, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	logger.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
