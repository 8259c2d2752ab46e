/*
Package wallet turns the managed key and the node RPC into a funding engine:
it selects live cells to cover capacity or token amounts, attaches the fee,
signs with the current signer and broadcasts. Every build follows the same
three-step shape: outputs first, then inputs, then unlock.
*/
package wallet

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"

	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/signers"
)

// DefaultFeeRate is shannons per 1000 bytes of transaction weight.
const DefaultFeeRate = 1000

// LedgerClient is the node/indexer surface the wallet consumes.
type LedgerClient interface {
	GetCells(ctx context.Context, lock ckbman.Script, typeScript *ckbman.Script) ([]ckbman.Cell, error)
	GetCellsCapacity(ctx context.Context, lock ckbman.Script) (uint64, error)
	SendTransaction(ctx context.Context, tx *ckbman.Transaction) (string, error)
}

type Wallet struct {
	Client  LedgerClient
	Signer  signers.Signer
	FeeRate uint64
}

func NewWallet(client LedgerClient, signer signers.Signer, feeRate uint64) *Wallet {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	return &Wallet{Client: client, Signer: signer, FeeRate: feeRate}
}

func (w *Wallet) Address() string {
	return w.Signer.Address()
}

func (w *Wallet) LockScript() ckbman.Script {
	return w.Signer.LockScript()
}

// CapacityBalance sums all live capacity under the managed lock.
func (w *Wallet) CapacityBalance(ctx context.Context) (uint64, error) {
	return w.Client.GetCellsCapacity(ctx, w.LockScript())
}

// TokenBalance sums the token amount across the managed lock's cells of the
// given class.
func (w *Wallet) TokenBalance(ctx context.Context, typeScript ckbman.Script) (uint128.Uint128, error) {
	cells, err := w.Client.GetCells(ctx, w.LockScript(), &typeScript)
	if err != nil {
		return uint128.Zero, err
	}
	total := uint128.Zero
	for _, c := range cells {
		amount, err := c.TokenAmount()
		if err != nil {
			return uint128.Zero, errors.Wrapf(err, "cell %s:%d", c.OutPoint.TxHash, c.OutPoint.Index)
		}
		total = total.Add(amount)
	}
	return total, nil
}

// StartBuild wraps a draft transaction for completion. The caller is expected
// to have added its outputs already.
func (w *Wallet) StartBuild(tx *ckbman.Transaction) *Build {
	return &Build{wallet: w, Tx: tx}
}
