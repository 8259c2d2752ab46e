/*
Package ratelimit guards the managed key against abuse. It is a stateless
policy layer over the shared counter store: Reserve checks the per-destination
and per-hour ceilings, Commit records usage after a transfer was actually
broadcast.

The check in Reserve and the increment in Commit are two separate store calls
on purpose: quota must only be consumed by transfers that reached the chain.
The store increments themselves are atomic, but two nearly simultaneous
reservations can both pass the check before either commits. See DESIGN.md.
*/
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	logger "github.com/sirupsen/logrus"

	"github.com/fiberpay/ckb-custody-go/common"
	"github.com/fiberpay/ckb-custody-go/counterstore"
	"github.com/fiberpay/ckb-custody-go/errs"
)

const hourlyBucketTTL = 3600 * time.Second

type Limiter struct {
	store counterstore.Store
	cfg   *Config

	// NowFunc is the clock for hour bucketing. Tests pin it.
	NowFunc func() time.Time
}

func NewLimiter(store counterstore.Store, cfg *Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Limiter{store: store, cfg: cfg, NowFunc: time.Now}
}

func hourKey(assetKey string, t time.Time) string {
	return "transfer:" + assetKey + ":" + common.HourBucket(t)
}

func destinationKey(assetKey, destination string) string {
	return "transfer:" + assetKey + ":" + destination
}

// Reserve decides whether a transfer of amount to destination may proceed.
// ignoreLimit bypasses both checks for internally-trusted flows; the caller is
// still expected to Commit so the books stay complete.
func (l *Limiter) Reserve(ctx context.Context, assetKey, destination string, amount uint64, ignoreLimit bool) error {
	if ignoreLimit {
		logger.WithFields(logger.Fields{
			"assetKey":    assetKey,
			"destination": destination,
			"amount":      amount,
		}).Warn("rate limit bypassed via ignoreLimit")
		return nil
	}

	// destination-count ceiling first
	if ceiling, bounded := l.cfg.destinationCeiling(assetKey); bounded {
		count, err := l.readCounter(ctx, destinationKey(assetKey, destination))
		if err != nil {
			return err
		}
		if count+1 > ceiling {
			return errors.Wrapf(errs.ErrDestinationLimitExceeded,
				"destination %s already received %d transfer(s) of %s", destination, count, assetKey)
		}
	}

	// hourly-amount ceiling second
	ceiling := l.cfg.hourlyCeiling(assetKey)
	used, err := l.readCounter(ctx, hourKey(assetKey, l.NowFunc()))
	if err != nil {
		return err
	}
	if uint64(used)+amount > ceiling {
		return errors.Wrapf(errs.ErrHourlyLimitExceeded,
			"%s hourly ceiling %d, used %d, requested %d", assetKey, ceiling, used, amount)
	}
	return nil
}

// Commit records a successfully broadcast transfer: bumps the hourly amount
// bucket (and refreshes its 1h expiry) and the destination counter. Call this
// strictly after the broadcast acknowledgement.
func (l *Limiter) Commit(ctx context.Context, assetKey, destination string, amount uint64) error {
	// The bucket is re-derived here, not carried over from Reserve: a transfer
	// straddling the top of the hour books its usage into the new bucket. The
	// drift stays within the same window as the Reserve/Commit race.
	bucket := hourKey(assetKey, l.NowFunc())
	if _, err := l.store.IncrBy(ctx, bucket, int64(amount)); err != nil {
		return err
	}
	if err := l.store.Expire(ctx, bucket, hourlyBucketTTL); err != nil {
		return err
	}
	_, err := l.store.IncrBy(ctx, destinationKey(assetKey, destination), 1)
	return err
}

func (l *Limiter) readCounter(ctx context.Context, key string) (int64, error) {
	v, ok, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errors.Newf("corrupt counter at %s: %q", key, v)
	}
	return n, nil
}
