package ratelimit

import (
	"context"
	"fmt"

	gfcontext "github.com/arjuncodes/ratelimitd/pkg/common/context"
	gferrors "github.com/arjuncodes/ratelimitd/pkg/common/errors"
	"github.com/arjuncodes/ratelimitd/pkg/common/validation"
	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/algorithms"
	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/metrics"
	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/runner"
	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/script"
)

// asConfigurationError adapts a *gferrors.ValidationError, as returned by
// the pkg/common/validation helpers, into the engine's own error type. err
// is expected to be nil or a *gferrors.ValidationError; any other type is
// a programmer error in the caller and is wrapped generically.
func asConfigurationError(field string, err error) *ConfigurationError {
	if ve, ok := err.(*gferrors.ValidationError); ok {
		return &ConfigurationError{ve}
	}
	return NewConfigurationError(field, nil, err.Error())
}

// Strategy selects which of the three main limiter algorithms
// CheckRateLimit dispatches to. Fixed-window sits outside this enum
// because FixedWindowRateLimit's reply shape differs (spec §4.4).
type Strategy int

const (
	// TokenBucketStrategy selects the token-bucket algorithm (§4.3.1).
	TokenBucketStrategy Strategy = iota
	// SlidingWindowStrategy selects the sliding-window algorithm (§4.3.2).
	SlidingWindowStrategy
	// LeakyBucketStrategy selects the leaky-bucket algorithm (§4.3.3).
	LeakyBucketStrategy
)

func (s Strategy) String() string {
	switch s {
	case TokenBucketStrategy:
		return "token_bucket"
	case SlidingWindowStrategy:
		return "sliding_window"
	case LeakyBucketStrategy:
		return "leaky_bucket"
	default:
		return "unknown"
	}
}

// Decision is the uniform verdict envelope CheckRateLimit returns for all
// three main strategies.
type Decision struct {
	Allowed   bool
	Remaining int64
	ResetAt   int64 // epoch milliseconds
}

// FixedWindowDecision is the verdict envelope FixedWindowRateLimit
// returns; its shape differs from Decision because the fixed-window
// algorithm always increments and leaves the "is this blocked" judgment
// to the caller.
type FixedWindowDecision struct {
	Current    int64
	TimeWindow int64 // milliseconds
}

// Engine is the rate-limit decision façade: construct one around a shared
// store and call CheckRateLimit or FixedWindowRateLimit.
type Engine struct {
	store   Store
	runner  *runner.Runner
	clock   Clock
	metrics *metrics.Registry
	pub     Publisher
	logger  interface {
		Info(msg string, fields map[string]any)
		Error(msg string, fields map[string]any)
	}

	watcher *lifecycleWatcher
}

// NewEngine constructs an Engine around store, applying any supplied
// options over the library's defaults.
func NewEngine(store Store, opts ...Option) (*Engine, error) {
	if err := validation.ValidateNotNil("ratelimit", "store", store); err != nil {
		return nil, asConfigurationError("store", err)
	}

	cfg := applyConfigDefaults(Config{})
	for _, opt := range opts {
		opt(&cfg)
	}

	registry, err := script.NewRegistry(cfg.ScriptFS)
	if err != nil {
		return nil, NewConfigurationError("scripts", nil, err.Error())
	}

	r := runner.New(store, registry).WithLogger(cfg.Logger).WithMetrics(cfg.Metrics)

	e := &Engine{
		store:   store,
		runner:  r,
		clock:   cfg.Clock,
		metrics: cfg.Metrics,
		pub:     cfg.Publisher,
		logger:  cfg.Logger,
	}

	e.watcher = newLifecycleWatcher(
		func(ctx context.Context) error { return store.Ping(ctx).Err() },
		func(ctx context.Context) { r.Preload(ctx) },
		func(err error) {
			cfg.Logger.Error("store health probe failed", map[string]any{"error": err.Error()})
		},
		cfg.HealthProbeInterval,
	)
	e.watcher.start(context.Background())

	return e, nil
}

// Close stops the engine's background connection lifecycle watcher. It
// does not close the underlying store, which the caller owns.
func (e *Engine) Close() error {
	e.watcher.Stop()
	return nil
}

// CheckRateLimit is the single entry point for the three main strategies.
// It captures now once and passes it through to the chosen algorithm, so
// retries or logging downstream observe the same reference instant.
func (e *Engine) CheckRateLimit(ctx context.Context, key string, limit int, windowSeconds int, strategy Strategy) (Decision, error) {
	if gfcontext.IsCanceled(ctx) {
		return Decision{}, &CancelledError{Operation: "CheckRateLimit", Err: ctx.Err()}
	}
	if err := validation.ValidatePositive("ratelimit", "limit", limit); err != nil {
		return Decision{}, asConfigurationError("limit", err)
	}
	if err := validation.ValidatePositive("ratelimit", "windowSeconds", windowSeconds); err != nil {
		return Decision{}, asConfigurationError("windowSeconds", err)
	}

	now := nowMillis(e.clock)

	var (
		result algorithms.Result
		err    error
	)

	switch strategy {
	case TokenBucketStrategy:
		result, err = algorithms.TokenBucket(ctx, e.runner, key, limit, windowSeconds, now)
	case SlidingWindowStrategy:
		windowMs := int64(windowSeconds) * 1000
		result, err = algorithms.SlidingWindow(ctx, e.runner, key, limit, windowMs, now)
	case LeakyBucketStrategy:
		leakRate := float64(limit) / float64(windowSeconds)
		result, err = algorithms.LeakyBucket(ctx, e.runner, key, float64(limit), leakRate, now)
	default:
		return Decision{}, NewConfigurationError("strategy", strategy, "unsupported strategy")
	}

	if err != nil {
		if gfcontext.IsCanceled(ctx) {
			return Decision{}, &CancelledError{Operation: "CheckRateLimit", Err: ctx.Err()}
		}
		return Decision{}, &StoreError{Operation: fmt.Sprintf("CheckRateLimit(%s)", strategy), Err: err}
	}

	decision := Decision{Allowed: result.Allowed, Remaining: result.Remaining, ResetAt: result.ResetAt}
	e.observe(ctx, strategy.String(), key, decision.Allowed)
	return decision, nil
}

// FixedWindowRateLimit evaluates the fixed-window-with-backoff algorithm.
// Its reply shape differs from CheckRateLimit's (spec §4.4), so it is a
// separate operation.
func (e *Engine) FixedWindowRateLimit(ctx context.Context, key string, timeWindowMs int64, max int, continueExceeding bool, exponentialBackoff bool) (FixedWindowDecision, error) {
	if gfcontext.IsCanceled(ctx) {
		return FixedWindowDecision{}, &CancelledError{Operation: "FixedWindowRateLimit", Err: ctx.Err()}
	}
	if timeWindowMs <= 0 {
		return FixedWindowDecision{}, NewConfigurationError("timeWindow", timeWindowMs, "must be positive")
	}
	if err := validation.ValidatePositive("ratelimit", "max", max); err != nil {
		return FixedWindowDecision{}, asConfigurationError("max", err)
	}

	result, err := algorithms.FixedWindow(ctx, e.runner, key, timeWindowMs, max, continueExceeding, exponentialBackoff)
	if err != nil {
		if gfcontext.IsCanceled(ctx) {
			return FixedWindowDecision{}, &CancelledError{Operation: "FixedWindowRateLimit", Err: ctx.Err()}
		}
		return FixedWindowDecision{}, &StoreError{Operation: "FixedWindowRateLimit", Err: err}
	}

	decision := FixedWindowDecision{Current: result.Current, TimeWindow: result.TimeWindow}
	// The script never blocks — it always increments — but the metric
	// still wants a verdict label. current <= max is the caller's usual
	// interpretation of "within quota" regardless of punishment mode.
	e.observe(ctx, "fixed_window", key, decision.Current <= int64(max))
	return decision, nil
}

func (e *Engine) observe(ctx context.Context, strategy, key string, allowed bool) {
	e.metrics.ObserveDecision(strategy, keyPrefix(key), allowed)
	if !allowed && e.pub != nil {
		msg := []byte(fmt.Sprintf(`{"strategy":%q,"key":%q}`, strategy, key))
		if err := e.pub.Publish(ctx, quotaViolationChannel, msg); err != nil {
			e.logger.Error("quota violation publish failed", map[string]any{"error": err.Error()})
		}
	}
}

// keyPrefix returns the tenant-ish label used on decision metrics, so the
// metric's cardinality tracks tenants rather than every distinct bucket
// key. It takes the portion of key up to the first colon, or the whole
// key if there is none.
func keyPrefix(key string) string {
	for i, c := range key {
		if c == ':' {
			return key[:i]
		}
	}
	return key
}
