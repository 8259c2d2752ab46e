package counterstore

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// SimulatedStore is an in-memory Store used in tests, mirroring the redis
// semantics (lazy expiry, integer counters, sorted index, refusal of canceled
// contexts). The clock is injectable so TTL behavior can be tested without
// sleeping.
type SimulatedStore struct {
	mu      sync.Mutex
	values  map[string]string
	expiry  map[string]time.Time
	hashes  map[string]map[string]string
	zsets   map[string]map[string]float64
	NowFunc func() time.Time
}

func NewSimulatedStore() *SimulatedStore {
	return &SimulatedStore{
		values:  make(map[string]string),
		expiry:  make(map[string]time.Time),
		hashes:  make(map[string]map[string]string),
		zsets:   make(map[string]map[string]float64),
		NowFunc: time.Now,
	}
}

// purge drops expired keys. Callers hold mu.
func (s *SimulatedStore) purge(key string) {
	if exp, ok := s.expiry[key]; ok && !s.NowFunc().Before(exp) {
		delete(s.values, key)
		delete(s.expiry, key)
	}
}

func (s *SimulatedStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge(key)
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *SimulatedStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	delete(s.expiry, key)
	return nil
}

func (s *SimulatedStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.expiry[key] = s.NowFunc().Add(ttl)
	return nil
}

func (s *SimulatedStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge(key)
	if _, exists := s.values[key]; exists {
		return false, nil
	}
	s.values[key] = value
	if ttl > 0 {
		s.expiry[key] = s.NowFunc().Add(ttl)
	}
	return true, nil
}

func (s *SimulatedStore) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	delete(s.expiry, key)
	return nil
}

func (s *SimulatedStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purge(key)
	cur := int64(0)
	if v, ok := s.values[key]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, errors.Newf("value at %s is not an integer", key)
		}
		cur = parsed
	}
	cur += delta
	s.values[key] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (s *SimulatedStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; ok {
		s.expiry[key] = s.NowFunc().Add(ttl)
	}
	return nil
}

func (s *SimulatedStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.hashes[key][field]
	return v, ok, nil
}

func (s *SimulatedStore) HSet(ctx context.Context, key, field, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hset(key, field, value)
	return nil
}

func (s *SimulatedStore) hset(key, field, value string) {
	if s.hashes[key] == nil {
		s.hashes[key] = make(map[string]string)
	}
	s.hashes[key][field] = value
}

func (s *SimulatedStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (s *SimulatedStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zadd(key, score, member)
	return nil
}

func (s *SimulatedStore) zadd(key string, score float64, member string) {
	if s.zsets[key] == nil {
		s.zsets[key] = make(map[string]float64)
	}
	s.zsets[key][member] = score
}

func (s *SimulatedStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	type entry struct {
		member string
		score  float64
	}
	var matched []entry
	for m, sc := range s.zsets[key] {
		if sc >= min && sc <= max {
			matched = append(matched, entry{m, sc})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score < matched[j].score
		}
		return matched[i].member < matched[j].member
	})
	out := make([]string, len(matched))
	for i, e := range matched {
		out[i] = e.member
	}
	return out, nil
}

// Batch buffers the writes and applies them under one lock acquisition, so a
// concurrent reader never observes a half-applied group.
func (s *SimulatedStore) Batch(ctx context.Context, fn func(b BatchWriter) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := &simulatedBatch{}
	if err := fn(buf); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range buf.ops {
		op(s)
	}
	return nil
}

type simulatedBatch struct {
	ops []func(*SimulatedStore)
}

func (b *simulatedBatch) Set(key, value string) {
	b.ops = append(b.ops, func(s *SimulatedStore) {
		s.values[key] = value
		delete(s.expiry, key)
	})
}

func (b *simulatedBatch) HSet(key, field, value string) {
	b.ops = append(b.ops, func(s *SimulatedStore) { s.hset(key, field, value) })
}

func (b *simulatedBatch) ZAdd(key string, score float64, member string) {
	b.ops = append(b.ops, func(s *SimulatedStore) { s.zadd(key, score, member) })
}
