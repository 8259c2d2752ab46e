package counterstore

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string // host:port of the redis server
	Password string // empty if auth is disabled
	DB       int
}

// RedisStore implements Store on a single redis instance.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(cfg *RedisConfig) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies the server is reachable. Used by the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "redis GET %s", key)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return errors.Wrapf(s.rdb.Set(ctx, key, value, 0).Err(), "redis SET %s", key)
}

func (s *RedisStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.Wrapf(s.rdb.Set(ctx, key, value, ttl).Err(), "redis SET %s", key)
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "redis SETNX %s", key)
	}
	return ok, nil
}

func (s *RedisStore) Del(ctx context.Context, key string) error {
	return errors.Wrapf(s.rdb.Del(ctx, key).Err(), "redis DEL %s", key)
}

func (s *RedisStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	v, err := s.rdb.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "redis INCRBY %s", key)
	}
	return v, nil
}

func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return errors.Wrapf(s.rdb.Expire(ctx, key, ttl).Err(), "redis EXPIRE %s", key)
}

func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.rdb.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "redis HGET %s %s", key, field)
	}
	return v, true, nil
}

func (s *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	return errors.Wrapf(s.rdb.HSet(ctx, key, field, value).Err(), "redis HSET %s", key)
}

func (s *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redis HGETALL %s", key)
	}
	return m, nil
}

func (s *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	err := s.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
	return errors.Wrapf(err, "redis ZADD %s", key)
}

func (s *RedisStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	members, err := s.rdb.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min: formatScore(min),
		Max: formatScore(max),
	}).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redis ZRANGEBYSCORE %s", key)
	}
	return members, nil
}

// Batch runs fn's writes through a MULTI/EXEC pipeline, so the group applies
// all-or-nothing on the server.
func (s *RedisStore) Batch(ctx context.Context, fn func(b BatchWriter) error) error {
	pipe := s.rdb.TxPipeline()
	if err := fn(&redisBatch{ctx: ctx, pipe: pipe}); err != nil {
		pipe.Discard()
		return err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "redis EXEC")
	}
	return nil
}

type redisBatch struct {
	ctx  context.Context
	pipe redis.Pipeliner
}

func (b *redisBatch) Set(key, value string) {
	b.pipe.Set(b.ctx, key, value, 0)
}

func (b *redisBatch) HSet(key, field, value string) {
	b.pipe.HSet(b.ctx, key, field, value)
}

func (b *redisBatch) ZAdd(key string, score float64, member string) {
	b.pipe.ZAdd(b.ctx, key, redis.Z{Score: score, Member: member})
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
