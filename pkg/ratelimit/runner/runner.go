// Package runner implements the atomic script runner: it evaluates a named
// Lua script against the shared store by digest, healing the digest cache
// on NOSCRIPT and falling back to direct evaluation when no digest has
// been cached yet.
package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/metrics"
	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/script"
)

// scriptExecutor is the narrow slice of redis.UniversalClient the runner
// needs. It is satisfied directly by *redis.Client, *redis.ClusterClient,
// and *redis.Ring, so the runner never imports a concrete client type.
type scriptExecutor interface {
	EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	ScriptLoad(ctx context.Context, script string) *redis.StringCmd
}

// scriptNotCachedError is the internal-only sentinel the runner recovers
// from. It is never returned to callers of Run.
type scriptNotCachedError struct {
	name string
	err  error
}

func (e *scriptNotCachedError) Error() string {
	return fmt.Sprintf("script %q not cached: %v", e.name, e.err)
}

func (e *scriptNotCachedError) Unwrap() error {
	return e.err
}

func isNoScript(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "NOSCRIPT")
}

// PreloadLogger receives non-fatal preload failures. Both methods may be
// called concurrently.
type PreloadLogger interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

type noopLogger struct{}

func (noopLogger) Info(string, map[string]any)  {}
func (noopLogger) Error(string, map[string]any) {}

// Runner evaluates named scripts atomically against the shared store,
// maintaining a process-local digest cache that is repopulated whenever
// the store connection transitions to ready.
type Runner struct {
	store    scriptExecutor
	registry *script.Registry
	logger   PreloadLogger
	metrics  *metrics.Registry

	// digests maps script name -> store-assigned SHA1 digest. Replacement
	// is idempotent (both producers compute the same digest for the same
	// source), so sync.Map's lock-free semantics are sufficient; a lost
	// update on concurrent replacement is benign.
	digests sync.Map
}

// New constructs a Runner over store using the scripts held by registry.
func New(store scriptExecutor, registry *script.Registry) *Runner {
	return &Runner{store: store, registry: registry, logger: noopLogger{}}
}

// WithLogger attaches a logger for non-fatal preload failures and returns
// the same Runner for chaining.
func (r *Runner) WithLogger(logger PreloadLogger) *Runner {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// WithMetrics attaches a metrics registry for script-eval-mode counters,
// store round-trip latency, and cache-size gauge observations. A nil
// registry (the zero value of this option) disables collection, matching
// Registry's own nil-safe methods.
func (r *Runner) WithMetrics(m *metrics.Registry) *Runner {
	r.metrics = m
	return r
}

func (r *Runner) cacheSize() int {
	n := 0
	r.digests.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// Run evaluates the named script with the given keys and arguments,
// returning the raw reply. It implements spec's four-step protocol:
// evaluate by cached digest; on NOSCRIPT, reload and retry once by digest;
// with no cached digest, evaluate the full source directly; any other
// store error is surfaced unchanged.
func (r *Runner) Run(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	source, ok := r.registry.Source(name)
	if !ok {
		return nil, fmt.Errorf("runner: unknown script %q", name)
	}

	if digest, cached := r.digest(name); cached {
		start := time.Now()
		result, err := r.store.EvalSha(ctx, digest, keys, args...).Result()
		r.metrics.ObserveStoreRoundTrip("evalsha", time.Since(start).Seconds())
		if err == nil {
			r.metrics.ObserveScriptEval(name, "evalsha")
			return result, nil
		}
		if !isNoScript(err) {
			return nil, err
		}
		if err := r.reload(ctx, name, source); err != nil {
			return nil, err
		}
		digest, _ = r.digest(name)
		start = time.Now()
		result, err = r.store.EvalSha(ctx, digest, keys, args...).Result()
		r.metrics.ObserveStoreRoundTrip("evalsha", time.Since(start).Seconds())
		if err == nil {
			r.metrics.ObserveScriptEval(name, "evalsha")
		}
		return result, err
	}

	start := time.Now()
	result, err := r.store.Eval(ctx, source, keys, args...).Result()
	r.metrics.ObserveStoreRoundTrip("eval", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	r.metrics.ObserveScriptEval(name, "eval")
	// The store caches the script as a side effect of EVAL; fetch its
	// digest with SCRIPT LOAD and cache it locally so the next call can
	// use EVALSHA.
	start = time.Now()
	digest, derr := r.store.ScriptLoad(ctx, source).Result()
	r.metrics.ObserveStoreRoundTrip("script_load", time.Since(start).Seconds())
	if derr == nil {
		r.digests.Store(name, digest)
		r.metrics.SetScriptCacheSize(r.cacheSize())
	}
	return result, nil
}

func (r *Runner) reload(ctx context.Context, name, source string) error {
	start := time.Now()
	digest, err := r.store.ScriptLoad(ctx, source).Result()
	r.metrics.ObserveStoreRoundTrip("script_load", time.Since(start).Seconds())
	if err != nil {
		return err
	}
	r.digests.Store(name, digest)
	r.metrics.ObserveScriptEval(name, "reload")
	r.metrics.SetScriptCacheSize(r.cacheSize())
	return nil
}

func (r *Runner) digest(name string) (string, bool) {
	v, ok := r.digests.Load(name)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Preload loads every registered script's digest into the cache. Called
// when the store connection transitions to "ready". Individual failures
// are logged and non-fatal — the fallback path in Run heals the cache on
// first use.
func (r *Runner) Preload(ctx context.Context) {
	for _, name := range r.registry.Names() {
		source, ok := r.registry.Source(name)
		if !ok {
			continue
		}
		if err := r.reload(ctx, name, source); err != nil {
			r.logger.Error("script preload failed", map[string]any{
				"script": name,
				"error":  err.Error(),
			})
		}
	}
}

// Forget drops every cached digest, simulating a store-side script-cache
// flush. Exposed for tests exercising the NOSCRIPT healing path.
func (r *Runner) Forget() {
	r.digests.Range(func(key, _ interface{}) bool {
		r.digests.Delete(key)
		return true
	})
	r.metrics.SetScriptCacheSize(r.cacheSize())
}
