/*
Package transfer assembles and submits outbound transactions for the managed
key. A transfer only reaches the node if the rate limiter accepted the
(asset, destination, amount) reservation; usage is committed strictly after
the broadcast acknowledgement, so quota is never consumed by transactions
that failed to leave the building.
*/
package transfer

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	logger "github.com/sirupsen/logrus"

	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/ckbman/wallet"
	"github.com/fiberpay/ckb-custody-go/common"
	"github.com/fiberpay/ckb-custody-go/errs"
	"github.com/fiberpay/ckb-custody-go/ratelimit"
)

type Builder struct {
	Wallet  *wallet.Wallet
	Limiter *ratelimit.Limiter
	Network ckbman.Network
	Tokens  map[string]TokenConfig
}

func NewBuilder(w *wallet.Wallet, limiter *ratelimit.Limiter, cfg *Config) *Builder {
	return &Builder{
		Wallet:  w,
		Limiter: limiter,
		Network: cfg.Network,
		Tokens:  cfg.Tokens,
	}
}

// TransferNative sends `amount` (display units, e.g. "100" CKB) of native
// capacity to destination and returns the transaction hash.
func (b *Builder) TransferNative(ctx context.Context, destination, amount string, ignoreLimit bool) (string, error) {
	shannons, err := common.DisplayToBaseUnit(amount, nativeDecimals)
	if err != nil {
		return "", errors.Wrapf(errs.ErrValidation, "%v", err)
	}
	if shannons < common.MinCellCapacity {
		return "", errors.Wrapf(errs.ErrValidation,
			"amount %s below the minimum transferable capacity of %d CKB",
			amount, common.MinCellCapacity/common.ShannonsPerCKB)
	}
	destLock, err := ckbman.DecodeAddress(destination, b.Network)
	if err != nil {
		return "", errors.Wrapf(errs.ErrValidation, "%v", err)
	}

	if err := b.Limiter.Reserve(ctx, ratelimit.NativeAssetKey, destination, shannons, ignoreLimit); err != nil {
		return "", err
	}

	tx := &ckbman.Transaction{}
	tx.AddOutput(ckbman.CellOutput{Capacity: shannons, Lock: destLock}, nil)

	build := b.Wallet.StartBuild(tx)
	if err := build.CompleteInputsByCapacity(ctx); err != nil {
		return "", err
	}
	if err := build.CompleteFee(ctx); err != nil {
		return "", err
	}
	txHash, err := build.SignAndSend(ctx)
	if err != nil {
		return "", err
	}

	b.commit(ctx, ratelimit.NativeAssetKey, destination, shannons, txHash)
	logger.WithFields(logger.Fields{
		"txHash":      txHash,
		"destination": destination,
		"amount":      amount,
	}).Info("native transfer submitted")
	return txHash, nil
}

// TransferToken sends `amount` (display units) of the given token class to
// destination. Any input surplus of the token returns to the managed lock as
// a change output carrying the same type script.
func (b *Builder) TransferToken(ctx context.Context, tokenClass, destination, amount string, ignoreLimit bool) (string, error) {
	token, ok := b.Tokens[tokenClass]
	if !ok {
		return "", errors.Wrapf(errs.ErrValidation, "unknown token class %q", tokenClass)
	}
	baseUnits, err := common.DisplayToBaseUnit(amount, token.Decimals)
	if err != nil {
		return "", errors.Wrapf(errs.ErrValidation, "%v", err)
	}
	if baseUnits == 0 {
		return "", errors.Wrapf(errs.ErrValidation, "amount must be positive")
	}
	destLock, err := ckbman.DecodeAddress(destination, b.Network)
	if err != nil {
		return "", errors.Wrapf(errs.ErrValidation, "%v", err)
	}

	if err := b.Limiter.Reserve(ctx, tokenClass, destination, baseUnits, ignoreLimit); err != nil {
		return "", err
	}

	want := uint128.From64(baseUnits)
	typeScript := token.TypeScript
	tx := &ckbman.Transaction{}
	tx.AddOutput(ckbman.CellOutput{
		Capacity: common.MinTokenCellCapacity,
		Lock:     destLock,
		Type:     &typeScript,
	}, ckbman.EncodeTokenAmount(want))

	build := b.Wallet.StartBuild(tx)
	attached, err := build.CompleteInputsByToken(ctx, typeScript, want)
	if err != nil {
		return "", err
	}
	if balanceDiff := attached.Sub(want); !balanceDiff.IsZero() {
		changeType := typeScript
		tx.AddOutput(ckbman.CellOutput{
			Capacity: common.MinTokenCellCapacity,
			Lock:     b.Wallet.LockScript(),
			Type:     &changeType,
		}, ckbman.EncodeTokenAmount(balanceDiff))
	}
	if !tx.HasCellDep(token.CellDep) {
		tx.CellDeps = append(tx.CellDeps, token.CellDep)
	}

	if err := build.CompleteInputsByCapacity(ctx); err != nil {
		return "", err
	}
	if err := build.CompleteFee(ctx); err != nil {
		return "", err
	}
	txHash, err := build.SignAndSend(ctx)
	if err != nil {
		return "", err
	}

	b.commit(ctx, tokenClass, destination, baseUnits, txHash)
	logger.WithFields(logger.Fields{
		"txHash":      txHash,
		"tokenClass":  tokenClass,
		"destination": destination,
		"amount":      amount,
	}).Info("token transfer submitted")
	return txHash, nil
}

// commit records limiter usage after a successful broadcast. A failed commit
// under-counts, which is preferable to counting transfers that never went
// out; it is logged and the transfer still reports success.
func (b *Builder) commit(ctx context.Context, assetKey, destination string, amount uint64, txHash string) {
	if err := b.Limiter.Commit(ctx, assetKey, destination, amount); err != nil {
		logger.WithFields(logger.Fields{
			"txHash":   txHash,
			"assetKey": assetKey,
		}).Warnf("failed to commit rate-limit usage: %v", err)
	}
}
