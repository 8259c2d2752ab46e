package chainsync

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/fiberpay/ckb-custody-go/counterstore"
)

// Persisted key layout in the counter store.
const (
	KeyCheckpoint  = "last_synced_block"
	KeyRecords     = "transactions"     // hash: tx hash -> TxRecord JSON
	KeyHeightIndex = "transaction_hash" // height-ordered index of tx hashes
	KeyLock        = "sync_lock"
	KeyAnomaly     = "sync_anomaly"
)

// LockTTL bounds how long a crashed pass can block its successors.
const LockTTL = 60 * time.Second

// SyncStore is the checkpoint/record layer over the counter store.
type SyncStore struct {
	store counterstore.Store
}

func NewSyncStore(store counterstore.Store) *SyncStore {
	return &SyncStore{store: store}
}

// AcquireLock conditionally takes the sync lock. False means another pass is
// in flight.
func (s *SyncStore) AcquireLock(ctx context.Context) (bool, error) {
	return s.store.SetNX(ctx, KeyLock, "1", LockTTL)
}

func (s *SyncStore) ReleaseLock(ctx context.Context) error {
	return s.store.Del(ctx, KeyLock)
}

// GetCheckpoint returns the highest fully processed height, 0 if none yet.
func (s *SyncStore) GetCheckpoint(ctx context.Context) (uint64, error) {
	v, ok, err := s.store.Get(ctx, KeyCheckpoint)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	height, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, errors.Newf("corrupt checkpoint %q", v)
	}
	return height, nil
}

// PersistRecords writes all records of one pass as a single atomic group.
func (s *SyncStore) PersistRecords(ctx context.Context, records []TxRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.store.Batch(ctx, func(b counterstore.BatchWriter) error {
		for _, rec := range records {
			blob, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			b.HSet(KeyRecords, rec.TxHash, string(blob))
			b.ZAdd(KeyHeightIndex, float64(rec.BlockNumber), rec.TxHash)
		}
		return nil
	})
}

// AdvanceCheckpoint moves the checkpoint forward. Called only after
// PersistRecords has been acknowledged.
func (s *SyncStore) AdvanceCheckpoint(ctx context.Context, height uint64) error {
	return s.store.Set(ctx, KeyCheckpoint, strconv.FormatUint(height, 10))
}

// GetRecord reads one persisted transaction summary back.
func (s *SyncStore) GetRecord(ctx context.Context, txHash string) (*TxRecord, bool, error) {
	blob, ok, err := s.store.HGet(ctx, KeyRecords, txHash)
	if err != nil || !ok {
		return nil, false, err
	}
	var rec TxRecord
	if err := json.Unmarshal([]byte(blob), &rec); err != nil {
		return nil, false, errors.Wrapf(err, "corrupt record for %s", txHash)
	}
	return &rec, true, nil
}

// RecordsByHeight returns tx hashes with from <= height <= to, height-ordered.
func (s *SyncStore) RecordsByHeight(ctx context.Context, from, to uint64) ([]string, error) {
	return s.store.ZRangeByScore(ctx, KeyHeightIndex, float64(from), float64(to))
}

// BumpAnomaly counts a checkpoint-ahead-of-tip observation, so the condition
// is visible to an operator instead of silently swallowed.
func (s *SyncStore) BumpAnomaly(ctx context.Context) error {
	_, err := s.store.IncrBy(ctx, KeyAnomaly, 1)
	return err
}
