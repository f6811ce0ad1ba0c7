package ratelimit

import (
	"context"
	"math"
	"strconv"

	"github.com/redis/go-redis/v9"
)

func parseFloorInt(raw string) int64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int64(math.Floor(v))
}

// QuotaStatus is the read-only view getQuotaStatus returns.
type QuotaStatus struct {
	Remaining int64
	Total     int64
}

// hashFieldFor returns the data-model field name getQuotaStatus should
// read for strategy. Sliding window has no hash field — it is handled
// separately via ZCARD. spec.md §4.5 describes this generically as "the
// hash field tokens"; under this engine's per-strategy data model (§3)
// leaky bucket's analogous occupancy field is "water", not "tokens", so
// the field name is resolved per strategy rather than hardcoded.
func hashFieldFor(strategy Strategy) string {
	if strategy == LeakyBucketStrategy {
		return "water"
	}
	return "tokens"
}

// GetQuotaStatus is a best-effort diagnostic accessor: store errors are
// swallowed into a zero QuotaStatus rather than returned, per spec §4.5
// and §7 ("the one exception" to the engine's no-silent-verdict rule).
func (e *Engine) GetQuotaStatus(ctx context.Context, key string, strategy Strategy) QuotaStatus {
	if strategy == SlidingWindowStrategy {
		n, err := e.store.ZCard(ctx, key).Result()
		if err != nil {
			return QuotaStatus{}
		}
		return QuotaStatus{Remaining: n, Total: n}
	}

	field := hashFieldFor(strategy)
	raw, err := e.store.HGet(ctx, key, field).Result()
	if err != nil && err != redis.Nil {
		return QuotaStatus{}
	}
	tokens := parseFloorInt(raw)
	return QuotaStatus{Remaining: tokens, Total: tokens}
}

// DeleteRateLimit unconditionally deletes the bucket state for key.
func (e *Engine) DeleteRateLimit(ctx context.Context, key string) error {
	if err := e.store.Del(ctx, key).Err(); err != nil {
		return &StoreError{Operation: "DeleteRateLimit", Err: err}
	}
	return nil
}

// ScanKeys returns every key matching pattern, iterating the store's
// cursor-based scan with COUNT 100 per step until the cursor wraps to 0.
func (e *Engine) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := e.store.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, &StoreError{Operation: "ScanKeys", Err: err}
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}
