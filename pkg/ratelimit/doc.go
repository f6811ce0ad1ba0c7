/*
Package ratelimit is the distributed rate-limit decision façade.

An Engine wraps a shared Redis connection (anything satisfying Store,
which redis.UniversalClient does directly) and evaluates rate-limit
decisions by running one of four Lua scripts (see the script
subpackage) atomically on the server:

	engine, err := ratelimit.NewEngine(rdb)
	decision, err := engine.CheckRateLimit(ctx, "tenant1:user42:api", 100, 60, ratelimit.TokenBucketStrategy)

CheckRateLimit dispatches to the token-bucket, sliding-window, or
leaky-bucket algorithm and returns a uniform Decision. FixedWindowRateLimit
is separate because the fixed-window-with-backoff algorithm always
increments and leaves the "blocked" judgment to the caller, so its reply
shape (FixedWindowDecision) differs.

GetQuotaStatus, DeleteRateLimit, and ScanKeys are the auxiliary
operations: quota inspection is a best-effort diagnostic that never
returns an error, deletion is idempotent, and key scanning iterates the
store's cursor protocol.
*/
package ratelimit
