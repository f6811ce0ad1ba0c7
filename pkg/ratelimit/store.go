package ratelimit

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Store is the slice of a shared key-value store the engine needs: atomic
// script execution plus the handful of commands the quota inspector uses
// directly. It is satisfied by *redis.Client, *redis.ClusterClient, and
// *redis.Ring (go-redis's redis.UniversalClient) without the engine ever
// importing a concrete client type into its decision logic.
type Store interface {
	EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	ScriptLoad(ctx context.Context, script string) *redis.StringCmd

	HGet(ctx context.Context, key, field string) *redis.StringCmd
	ZCard(ctx context.Context, key string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

var _ Store = (redis.UniversalClient)(nil)
