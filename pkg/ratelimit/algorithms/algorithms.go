// Package algorithms implements the four rate-limit algorithms the engine
// dispatches to. Each algorithm holds no state of its own; it supplies a
// clock reading and argument encoding to the Atomic Script Runner and
// decodes the reply tuple into a typed result.
package algorithms

import (
	"context"
	"fmt"

	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/script"
)

// scriptRunner is the slice of runner.Runner the algorithms depend on.
type scriptRunner interface {
	Run(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error)
}

// Result is the uniform verdict envelope for token bucket, sliding window,
// and leaky bucket.
type Result struct {
	Allowed   bool
	Remaining int64
	ResetAt   int64 // epoch milliseconds
}

// FixedWindowResult is the verdict envelope for the fixed-window algorithm,
// whose reply shape differs from the other three.
type FixedWindowResult struct {
	Current    int64
	TimeWindow int64 // milliseconds
}

func decodeTuple(reply interface{}) ([]interface{}, error) {
	tuple, ok := reply.([]interface{})
	if !ok {
		return nil, fmt.Errorf("algorithms: unexpected script reply type %T", reply)
	}
	return tuple, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("algorithms: unexpected numeric reply type %T", v)
	}
}

// TokenBucket evaluates the token-bucket algorithm for key, consuming at
// most one token per call per spec.md §4.3.1.
func TokenBucket(ctx context.Context, r scriptRunner, key string, limit int, windowSeconds int, now int64) (Result, error) {
	reply, err := r.Run(ctx, script.TokenBucket, []string{key}, limit, windowSeconds, now)
	if err != nil {
		return Result{}, err
	}
	return decodeResult(reply)
}

// SlidingWindow evaluates the sliding-window algorithm for key per
// spec.md §4.3.2.
func SlidingWindow(ctx context.Context, r scriptRunner, key string, limit int, windowMs int64, now int64) (Result, error) {
	windowStart := now - windowMs
	reply, err := r.Run(ctx, script.SlidingWindow, []string{key}, limit, windowStart, now, windowMs)
	if err != nil {
		return Result{}, err
	}
	return decodeResult(reply)
}

// LeakyBucket evaluates the leaky-bucket algorithm for key per
// spec.md §4.3.3. leakRate is units of occupancy leaked per second.
func LeakyBucket(ctx context.Context, r scriptRunner, key string, capacity float64, leakRate float64, now int64) (Result, error) {
	reply, err := r.Run(ctx, script.LeakyBucket, []string{key}, capacity, leakRate, now)
	if err != nil {
		return Result{}, err
	}
	return decodeResult(reply)
}

func decodeResult(reply interface{}) (Result, error) {
	tuple, err := decodeTuple(reply)
	if err != nil {
		return Result{}, err
	}
	if len(tuple) != 3 {
		return Result{}, fmt.Errorf("algorithms: expected 3-element reply, got %d", len(tuple))
	}
	allowed, err := toInt64(tuple[0])
	if err != nil {
		return Result{}, err
	}
	remaining, err := toInt64(tuple[1])
	if err != nil {
		return Result{}, err
	}
	resetAt, err := toInt64(tuple[2])
	if err != nil {
		return Result{}, err
	}
	return Result{Allowed: allowed == 1, Remaining: remaining, ResetAt: resetAt}, nil
}

// FixedWindow evaluates the fixed-window-with-backoff algorithm for key
// per spec.md §4.3.4. The script always increments; the caller decides
// whether current > max means the request should be treated as blocked.
func FixedWindow(ctx context.Context, r scriptRunner, key string, timeWindowMs int64, max int, continueExceeding bool, exponentialBackoff bool) (FixedWindowResult, error) {
	reply, err := r.Run(ctx, script.RateLimit, []string{key},
		timeWindowMs, max, boolArg(continueExceeding), boolArg(exponentialBackoff))
	if err != nil {
		return FixedWindowResult{}, err
	}
	tuple, err := decodeTuple(reply)
	if err != nil {
		return FixedWindowResult{}, err
	}
	if len(tuple) != 2 {
		return FixedWindowResult{}, fmt.Errorf("algorithms: expected 2-element reply, got %d", len(tuple))
	}
	current, err := toInt64(tuple[0])
	if err != nil {
		return FixedWindowResult{}, err
	}
	timeWindow, err := toInt64(tuple[1])
	if err != nil {
		return FixedWindowResult{}, err
	}
	return FixedWindowResult{Current: current, TimeWindow: timeWindow}, nil
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
