package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiberpay/ckb-custody-go/common"
	"github.com/fiberpay/ckb-custody-go/counterstore"
	"github.com/fiberpay/ckb-custody-go/errs"
)

func newTestLimiter(cfg *Config) (*Limiter, *counterstore.SimulatedStore, *time.Time) {
	st := counterstore.NewSimulatedStore()
	now := time.Date(2024, 7, 31, 12, 30, 0, 0, time.UTC)
	st.NowFunc = func() time.Time { return now }
	l := NewLimiter(st, cfg)
	l.NowFunc = func() time.Time { return now }
	return l, st, &now
}

func TestNativeDestinationCeiling(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLimiter(nil)

	// first native transfer to addr1 passes and is committed
	err := l.Reserve(ctx, NativeAssetKey, "addr1", 100*common.ShannonsPerCKB, false)
	require.NoError(t, err)
	require.NoError(t, l.Commit(ctx, NativeAssetKey, "addr1", 100*common.ShannonsPerCKB))

	// second transfer to the same destination is rejected (default ceiling 1)
	err = l.Reserve(ctx, NativeAssetKey, "addr1", 1, false)
	assert.True(t, errors.Is(err, errs.ErrDestinationLimitExceeded))

	// a different destination is unaffected
	err = l.Reserve(ctx, NativeAssetKey, "addr2", 1, false)
	assert.NoError(t, err)
}

func TestHourlyCeiling(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.HourlyCeilings[NativeAssetKey] = 3000
	cfg.DestinationCeilings = nil
	l, _, now := newTestLimiter(cfg)

	require.NoError(t, l.Reserve(ctx, NativeAssetKey, "addr1", 2000, false))
	require.NoError(t, l.Commit(ctx, NativeAssetKey, "addr1", 2000))

	// 2000 + 1500 crosses the 3000 ceiling
	err := l.Reserve(ctx, NativeAssetKey, "addr2", 1500, false)
	assert.True(t, errors.Is(err, errs.ErrHourlyLimitExceeded))

	// exactly hitting the ceiling is allowed
	require.NoError(t, l.Reserve(ctx, NativeAssetKey, "addr2", 1000, false))
	require.NoError(t, l.Commit(ctx, NativeAssetKey, "addr2", 1000))

	err = l.Reserve(ctx, NativeAssetKey, "addr3", 1, false)
	assert.True(t, errors.Is(err, errs.ErrHourlyLimitExceeded))

	// the next calendar hour starts a fresh bucket
	*now = now.Add(time.Hour)
	assert.NoError(t, l.Reserve(ctx, NativeAssetKey, "addr3", 3000, false))
}

func TestTokenCeilings(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.HourlyCeilings["0xtoken1"] = 500
	l, _, _ := newTestLimiter(cfg)

	// per-token ceiling applies
	err := l.Reserve(ctx, "0xtoken1", "addr1", 501, false)
	assert.True(t, errors.Is(err, errs.ErrHourlyLimitExceeded))

	// unknown tokens fall back to the generic default
	err = l.Reserve(ctx, "0xtoken2", "addr1", DefaultTokenHourlyCeiling+1, false)
	assert.True(t, errors.Is(err, errs.ErrHourlyLimitExceeded))
	assert.NoError(t, l.Reserve(ctx, "0xtoken2", "addr1", DefaultTokenHourlyCeiling, false))

	// tokens have no destination ceiling unless configured
	require.NoError(t, l.Commit(ctx, "0xtoken1", "addr1", 100))
	require.NoError(t, l.Commit(ctx, "0xtoken1", "addr1", 100))
	assert.NoError(t, l.Reserve(ctx, "0xtoken1", "addr1", 100, false))
}

func TestIgnoreLimitBypassesChecksButStillCommits(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.HourlyCeilings[NativeAssetKey] = 10
	l, st, now := newTestLimiter(cfg)

	// way over every ceiling, but ignored
	require.NoError(t, l.Reserve(ctx, NativeAssetKey, "addr1", 1_000_000, true))
	require.NoError(t, l.Commit(ctx, NativeAssetKey, "addr1", 1_000_000))

	v, ok, err := st.Get(ctx, "transfer:CKB:"+common.HourBucket(*now))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1000000", v, "bookkeeping still recorded")
}

func TestCommitBooksIntoCommitTimeBucket(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.DestinationCeilings = nil
	l, st, now := newTestLimiter(cfg)

	reserveBucket := "transfer:CKB:" + common.HourBucket(*now)
	require.NoError(t, l.Reserve(ctx, NativeAssetKey, "addr1", 100, false))

	// the hour turns over between reserve and commit
	*now = now.Add(31 * time.Minute)
	commitBucket := "transfer:CKB:" + common.HourBucket(*now)
	require.NotEqual(t, reserveBucket, commitBucket)
	require.NoError(t, l.Commit(ctx, NativeAssetKey, "addr1", 100))

	_, ok, _ := st.Get(ctx, reserveBucket)
	assert.False(t, ok, "old bucket untouched")
	v, ok, _ := st.Get(ctx, commitBucket)
	assert.True(t, ok)
	assert.Equal(t, "100", v, "usage lands in the current hour's bucket")
}

func TestCommitRefreshesBucketExpiry(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.DestinationCeilings = nil
	l, st, now := newTestLimiter(cfg)

	require.NoError(t, l.Commit(ctx, NativeAssetKey, "addr1", 100))
	bucket := "transfer:CKB:" + common.HourBucket(*now)

	// bucket still readable just before the TTL
	*now = now.Add(59 * time.Minute)
	_, ok, _ := st.Get(ctx, bucket)
	assert.True(t, ok)

	// and gone after it
	*now = now.Add(2 * time.Minute)
	_, ok, _ = st.Get(ctx, bucket)
	assert.False(t, ok)
}
