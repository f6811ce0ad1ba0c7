// Package metrics provides optional Prometheus instrumentation for the
// rate-limit decision engine: decision counts, script evaluation mode
// (EVALSHA vs EVAL vs reload), store round-trip latency, and script cache
// occupancy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the engine's metric instances. A nil *Registry disables
// collection everywhere the engine would otherwise record one, mirroring
// the teacher library's enabled-bool guard so the hot path never branches
// on a nil interface check beyond one pointer-nil test.
type Registry struct {
	DecisionsTotal       *prometheus.CounterVec
	ScriptEvalsTotal     *prometheus.CounterVec
	StoreRoundTripSecs   *prometheus.HistogramVec
	ScriptCacheSize      prometheus.Gauge
}

// Config configures a Registry.
type Config struct {
	// Registerer is the Prometheus registerer to use. If nil, uses
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Namespace overrides the default "ratelimitd" metric namespace.
	Namespace string
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Registerer: prometheus.DefaultRegisterer,
		Namespace:  "ratelimitd",
	}
}

// NewRegistry constructs a Registry from config, filling in defaults for
// any zero-valued fields.
func NewRegistry(config Config) *Registry {
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = "ratelimitd"
	}

	factory := promauto.With(config.Registerer)

	return &Registry{
		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "decisions_total",
				Help:      "Total number of rate-limit decisions by strategy and verdict.",
			},
			[]string{"strategy", "key_prefix", "allowed"},
		),

		ScriptEvalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "script_evals_total",
				Help:      "Total number of script evaluations by script and execution mode.",
			},
			[]string{"script", "mode"},
		),

		StoreRoundTripSecs: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "store_round_trip_seconds",
				Help:      "Latency of a single store round trip by operation.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),

		ScriptCacheSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "script_cache_size",
				Help:      "Number of script digests currently cached by the runner.",
			},
		),
	}
}

// ObserveDecision records a single CheckRateLimit/FixedWindowRateLimit
// verdict. r may be nil, in which case this is a no-op.
func (r *Registry) ObserveDecision(strategy, keyPrefix string, allowed bool) {
	if r == nil {
		return
	}
	r.DecisionsTotal.WithLabelValues(strategy, keyPrefix, boolLabel(allowed)).Inc()
}

// ObserveScriptEval records one script evaluation by mode ("evalsha",
// "eval", or "reload"). r may be nil.
func (r *Registry) ObserveScriptEval(script, mode string) {
	if r == nil {
		return
	}
	r.ScriptEvalsTotal.WithLabelValues(script, mode).Inc()
}

// ObserveStoreRoundTrip records the latency, in seconds, of a single store
// round trip for the named operation. r may be nil.
func (r *Registry) ObserveStoreRoundTrip(op string, seconds float64) {
	if r == nil {
		return
	}
	r.StoreRoundTripSecs.WithLabelValues(op).Observe(seconds)
}

// SetScriptCacheSize sets the current script-cache gauge. r may be nil.
func (r *Registry) SetScriptCacheSize(n int) {
	if r == nil {
		return
	}
	r.ScriptCacheSize.Set(float64(n))
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
