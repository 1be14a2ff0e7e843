// Package redis provides a Redis-backed Execution Store, useful when
// multiple engine processes share executions and need low-latency
// LatestBySession lookups via a per-session sorted set.
//
//	s := redis.New(redis.Options{Addr: "localhost:6379"})
package redis
