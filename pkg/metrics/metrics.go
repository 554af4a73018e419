// Package metrics exports performance counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-theater/pkg/performance"
)

const namespace = "theater"

// Exporter turns published turns into Prometheus metrics.
type Exporter struct {
	registry *prometheus.Registry

	turns           *prometheus.CounterVec
	gestureFailures prometheus.Counter
	fallbackErrors  prometheus.Counter
	detectErrors    prometheus.Counter
	fallbackLatency prometheus.Histogram
	turnDuration    prometheus.Histogram
	finished        prometheus.Gauge
}

// Config configures the exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// LatencyBuckets for the fallback and turn histograms, in seconds.
	LatencyBuckets []float64

	// ProcessCollectors adds the Go runtime and process collectors.
	ProcessCollectors bool
}

// DefaultConfig returns default exporter configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
	}
}

// New creates an exporter with its own registry.
func New(cfg Config) *Exporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &Exporter{
		registry: registry,
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by route.",
		}, []string{"route"}),
		gestureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gesture_failures_total",
			Help:      "Gestures that could not be performed.",
		}),
		fallbackErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_errors_total",
			Help:      "Fallback turns where no reply was generated.",
		}),
		detectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detect_errors_total",
			Help:      "Failed intent detections.",
		}),
		fallbackLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fallback_latency_seconds",
			Help:      "Time spent generating fallback replies.",
			Buckets:   cfg.LatencyBuckets,
		}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a turn, detection included.",
			Buckets:   cfg.LatencyBuckets,
		}),
		finished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "performance_finished",
			Help:      "1 once the terminal intent was played.",
		}),
	}

	registry.MustRegister(
		e.turns,
		e.gestureFailures,
		e.fallbackErrors,
		e.detectErrors,
		e.fallbackLatency,
		e.turnDuration,
		e.finished,
	)
	if cfg.ProcessCollectors {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return e
}

// Observe records one turn.
func (e *Exporter) Observe(t performance.Turn) {
	e.turns.WithLabelValues(string(t.Route)).Inc()
	e.turnDuration.Observe(t.Duration.Seconds())
	e.gestureFailures.Add(float64(len(t.FailedGestures)))

	switch t.Route {
	case performance.RouteError:
		e.detectErrors.Inc()
	case performance.RouteFallback:
		e.fallbackLatency.Observe(t.FallbackLatency.Seconds())
		if t.Reply == "" {
			e.fallbackErrors.Inc()
		}
	}
	if t.Terminal {
		e.finished.Set(1)
	}
}

// Registry returns the underlying registry.
func (e *Exporter) Registry() *prometheus.Registry { return e.registry }

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}
