/*
Package ratelimitd is a distributed rate-limit decision engine.

Given an identifier (a "bucket key", typically tenant+caller+resource) and
a policy (quota, window, algorithm), the engine returns an allow/deny
verdict and the remaining quota. Verdicts are consistent across many
service replicas because all bucket state lives in a shared Redis
instance, evaluated atomically by Lua scripts, rather than in any single
replica's memory.

Core packages (pkg/ratelimit):
  - script: loads the four Lua script sources the engine evaluates.
  - runner: executes scripts atomically against Redis, managing the
    EVALSHA/NOSCRIPT digest-cache protocol.
  - algorithms: the four limiter algorithms (token bucket, sliding
    window, leaky bucket, fixed window with backoff).
  - metrics: optional Prometheus instrumentation for decisions and the
    script cache.

The root of pkg/ratelimit is the Decision Façade: construct an Engine
around a Redis client and call CheckRateLimit or FixedWindowRateLimit.

Example usage:

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	engine, err := ratelimit.NewEngine(rdb)
	if err != nil {
		log.Fatal(err)
	}

	decision, err := engine.CheckRateLimit(ctx, "tenant1:user42:api", 100, 60, ratelimit.TokenBucketStrategy)
	if err != nil {
		// caller decides fail-open vs fail-closed
	}
	if decision.Allowed {
		// serve the request
	}
*/
package ratelimitd
