package algorithms

import (
	"context"
	"math"
	"testing"

	"github.com/arjuncodes/ratelimitd/internal/refmodel"
	"github.com/arjuncodes/ratelimitd/pkg/ratelimit/script"
)

// fakeRunner emulates the Lua scripts' semantics in pure Go, keyed by
// bucket key, so the algorithm wrappers can be tested without Redis. This
// pins the Go-side argument encoding and reply decoding, not the Lua
// source itself; the token-bucket and leaky-bucket cases delegate to the
// Go reference model in internal/refmodel, and only the Redis-backed
// integration tests run the Lua scripts. The sliding-window emulation
// keeps every admitted timestamp (no same-millisecond collapse), and the
// fixed-window emulation returns the base timeWindow where the script
// returns the key's residual TTL.
type fakeRunner struct {
	tokenBuckets  map[string]*refmodel.TokenBucket
	leakyBuckets  map[string]*refmodel.LeakyBucket
	slidingWindow map[string][]int64
	fixedWindow   map[string]int64
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		tokenBuckets:  make(map[string]*refmodel.TokenBucket),
		leakyBuckets:  make(map[string]*refmodel.LeakyBucket),
		slidingWindow: make(map[string][]int64),
		fixedWindow:   make(map[string]int64),
	}
}

func (f *fakeRunner) Run(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	key := keys[0]
	switch name {
	case script.TokenBucket:
		limit := toFloat(args[0])
		windowSeconds := toFloat(args[1])
		now := toInt64Arg(args[2])
		b, ok := f.tokenBuckets[key]
		if !ok {
			b = &refmodel.TokenBucket{Limit: limit, WindowSeconds: windowSeconds}
			f.tokenBuckets[key] = b
		}
		r := b.Check(now)
		return []interface{}{boolToInt(r.Allowed), r.Remaining, r.ResetAt}, nil

	case script.LeakyBucket:
		capacity := toFloat(args[0])
		leakRate := toFloat(args[1])
		now := toInt64Arg(args[2])
		b, ok := f.leakyBuckets[key]
		if !ok {
			b = &refmodel.LeakyBucket{Capacity: capacity, LeakRate: leakRate}
			f.leakyBuckets[key] = b
		}
		r := b.Check(now)
		return []interface{}{boolToInt(r.Allowed), r.Remaining, r.ResetAt}, nil

	case script.SlidingWindow:
		limit := int(toFloat(args[0]))
		windowStart := toInt64Arg(args[1])
		now := toInt64Arg(args[2])
		windowMs := toInt64Arg(args[3])
		members := f.slidingWindow[key]
		kept := members[:0]
		for _, m := range members {
			if m > windowStart {
				kept = append(kept, m)
			}
		}
		current := len(kept)
		allowed := false
		if current < limit {
			kept = append(kept, now)
			allowed = true
			current++
		}
		f.slidingWindow[key] = kept
		remaining := int64(limit - current)
		if remaining < 0 {
			remaining = 0
		}
		return []interface{}{boolToInt(allowed), remaining, now + windowMs}, nil

	case script.RateLimit:
		timeWindow := toInt64Arg(args[0])
		max := toInt64Arg(args[1])
		continueExceeding := args[2] == "1"
		exponentialBackoff := args[3] == "1"
		f.fixedWindow[key]++
		current := f.fixedWindow[key]
		if current == 1 || (continueExceeding && current > max) {
			return []interface{}{current, timeWindow}, nil
		}
		if exponentialBackoff && current > max {
			e := current - max - 1
			extended := int64(float64(timeWindow) * math.Pow(2, float64(e)))
			const cap = 3600000
			if extended > cap {
				extended = cap
			}
			return []interface{}{current, extended}, nil
		}
		return []interface{}{current, timeWindow}, nil
	}
	return nil, nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func toInt64Arg(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func TestTokenBucket_Wrapper(t *testing.T) {
	r := newFakeRunner()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		res, err := TokenBucket(ctx, r, "k1", 10, 10, 0)
		if err != nil {
			t.Fatalf("TokenBucket returned error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("call %d should be allowed", i)
		}
	}

	res, err := TokenBucket(ctx, r, "k1", 10, 10, 500)
	if err != nil {
		t.Fatalf("TokenBucket returned error: %v", err)
	}
	if res.Allowed {
		t.Fatal("11th call at t=500ms should be denied")
	}
	if res.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", res.Remaining)
	}
}

func TestSlidingWindow_Wrapper(t *testing.T) {
	r := newFakeRunner()
	ctx := context.Background()

	for _, ts := range []int64{0, 200, 400} {
		res, err := SlidingWindow(ctx, r, "k1", 3, 1000, ts)
		if err != nil {
			t.Fatalf("SlidingWindow returned error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("call at t=%d should be allowed", ts)
		}
	}

	if res, _ := SlidingWindow(ctx, r, "k1", 3, 1000, 500); res.Allowed {
		t.Fatal("call at t=500 should be denied, window full")
	}

	res, err := SlidingWindow(ctx, r, "k1", 3, 1000, 1100)
	if err != nil {
		t.Fatalf("SlidingWindow returned error: %v", err)
	}
	if !res.Allowed {
		t.Fatal("call at t=1100 should be allowed, first element evicted")
	}
}

func TestLeakyBucket_Wrapper(t *testing.T) {
	r := newFakeRunner()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := LeakyBucket(ctx, r, "k1", 5, 1, 0)
		if err != nil {
			t.Fatalf("LeakyBucket returned error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("call %d at t=0 should be allowed", i)
		}
	}

	if res, _ := LeakyBucket(ctx, r, "k1", 5, 1, 0); res.Allowed {
		t.Fatal("sixth call at t=0 should be denied")
	}

	res, err := LeakyBucket(ctx, r, "k1", 5, 1, 1000)
	if err != nil {
		t.Fatalf("LeakyBucket returned error: %v", err)
	}
	if !res.Allowed {
		t.Fatal("call at t=1000ms should be allowed after a unit leaks")
	}
}

func TestFixedWindow_BasicWrapper(t *testing.T) {
	r := newFakeRunner()
	ctx := context.Background()

	for i, want := range []int64{1, 2, 3} {
		res, err := FixedWindow(ctx, r, "k1", 60000, 2, false, false)
		if err != nil {
			t.Fatalf("FixedWindow returned error: %v", err)
		}
		if res.Current != want {
			t.Fatalf("call %d: current = %d, want %d", i, res.Current, want)
		}
	}
}

func TestFixedWindow_ExponentialBackoffWrapper(t *testing.T) {
	r := newFakeRunner()
	ctx := context.Background()

	cases := []struct {
		wantCurrent    int64
		wantTimeWindow int64
	}{
		{1, 1000},
		{2, 1000},
		{3, 2000},
		{4, 4000},
	}

	for i, c := range cases {
		res, err := FixedWindow(ctx, r, "k1", 1000, 1, false, true)
		if err != nil {
			t.Fatalf("FixedWindow returned error: %v", err)
		}
		if res.Current != c.wantCurrent || res.TimeWindow != c.wantTimeWindow {
			t.Fatalf("call %d: got {current=%d, timeWindow=%d}, want {%d, %d}",
				i, res.Current, res.TimeWindow, c.wantCurrent, c.wantTimeWindow)
		}
	}
}
