package ratelimit

import (
	"io/fs"
	"time"

	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/logging"
	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/metrics"
)

// Config holds the options a caller may set when constructing an Engine.
// The zero Config plus Store is valid: NewEngine fills in every unset
// field with a sensible default, mirroring the teacher's
// Config+applyConfigDefaults pattern.
type Config struct {
	// Logger receives non-fatal diagnostics (script preload failures,
	// store health transitions). Defaults to a no-op logger.
	Logger logging.Logger

	// Metrics, if non-nil, receives decision, script-eval, and
	// store-latency observations. Defaults to nil (disabled).
	Metrics *metrics.Registry

	// ScriptFS overrides the embedded default script source with an
	// on-disk directory, for operators who want to hot-swap script text
	// without a rebuild. Defaults to nil (use the embedded scripts).
	ScriptFS fs.FS

	// Clock supplies the current time. Defaults to SystemClock.
	Clock Clock

	// Publisher, if set, is notified on every denied decision.
	Publisher Publisher

	// HealthProbeInterval controls how often the connection lifecycle
	// watcher polls store health. Defaults to 5s.
	HealthProbeInterval time.Duration
}

// Option configures an Engine at construction time.
type Option func(*Config)

// WithLogger sets the engine's diagnostic logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithMetrics enables Prometheus instrumentation via registry.
func WithMetrics(registry *metrics.Registry) Option {
	return func(c *Config) { c.Metrics = registry }
}

// WithScriptFS overrides the embedded default scripts with fsys.
func WithScriptFS(fsys fs.FS) Option {
	return func(c *Config) { c.ScriptFS = fsys }
}

// WithClock overrides the engine's time source. Intended for tests.
func WithClock(clock Clock) Option {
	return func(c *Config) { c.Clock = clock }
}

// WithPublisher sets the collaborator notified on denied decisions.
func WithPublisher(pub Publisher) Option {
	return func(c *Config) { c.Publisher = pub }
}

// WithHealthProbeInterval overrides the connection lifecycle watcher's
// poll interval.
func WithHealthProbeInterval(d time.Duration) Option {
	return func(c *Config) { c.HealthProbeInterval = d }
}

func applyConfigDefaults(c Config) Config {
	if c.Logger == nil {
		c.Logger = logging.NoopLogger{}
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.HealthProbeInterval <= 0 {
		c.HealthProbeInterval = 5 * time.Second
	}
	return c
}
