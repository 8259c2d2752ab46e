/*
Package counterstore is the shared key-value service behind the rate limiter
and the chain sync monitor. It is the only mutable state shared between
concurrent invocations of this backend, so every primitive here is atomic on
its own; callers that need a larger atomic unit use Batch.
*/
package counterstore

import (
	"context"
	"time"
)

// Store is the handle passed into the rate limiter and the sync monitor.
// Production uses the Redis implementation; tests use SimulatedStore.
type Store interface {
	// Get returns the string value of key, and false if the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	Set(ctx context.Context, key, value string) error

	// SetWithTTL writes key and arms its expiry in one call.
	SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX writes key only if it does not exist yet. Returns true if this
	// call acquired the key. A zero ttl means no expiry.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	Del(ctx context.Context, key string) error

	// IncrBy atomically adds delta to the integer at key (0 if absent) and
	// returns the new value.
	IncrBy(ctx context.Context, key string, delta int64) (int64, error)

	// Expire (re)arms the expiry of an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// HGet / HSet / HGetAll operate on a string-keyed hash at key.
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSet(ctx context.Context, key, field, value string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// ZAdd inserts member into the sorted index at key. Re-adding an existing
	// member only updates its score.
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRangeByScore returns members with min <= score <= max, score-ordered.
	ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error)

	// Batch applies every write queued by fn as one atomic group: either all
	// of them are visible afterwards or none are.
	Batch(ctx context.Context, fn func(b BatchWriter) error) error
}

// BatchWriter queues writes inside a Batch call.
type BatchWriter interface {
	Set(key, value string)
	HSet(key, field, value string)
	ZAdd(key string, score float64, member string)
}
