package wallet

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	logger "github.com/sirupsen/logrus"

	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/common"
	"github.com/fiberpay/ckb-custody-go/errs"
	"github.com/fiberpay/ckb-custody-go/signers"
)

// rough serialized sizes, used only for fee estimation
const (
	txBaseSize     = 72
	inputSize      = 44
	outputBaseSize = 97
	witnessSize    = 85
)

// Build is one in-flight transaction completion. Outputs are expected to be
// in place before input completion; the selected input cells are remembered so
// the fee step knows the capacity on the input side.
type Build struct {
	wallet *Wallet
	Tx     *ckbman.Transaction

	inputCells []ckbman.Cell
}

func (b *Build) inputCapacity() uint64 {
	var total uint64
	for _, c := range b.inputCells {
		total += c.Output.Capacity
	}
	return total
}

func (b *Build) hasInput(op ckbman.OutPoint) bool {
	for _, in := range b.Tx.Inputs {
		if in.PreviousOutput == op {
			return true
		}
	}
	return false
}

func (b *Build) addInput(cell ckbman.Cell) {
	b.Tx.Inputs = append(b.Tx.Inputs, ckbman.CellInput{PreviousOutput: cell.OutPoint})
	b.inputCells = append(b.inputCells, cell)
}

// CompleteInputsByToken attaches cells of the given token class until their
// summed token amount covers amount, and returns the attached total.
func (b *Build) CompleteInputsByToken(ctx context.Context, typeScript ckbman.Script, amount uint128.Uint128) (uint128.Uint128, error) {
	cells, err := b.wallet.Client.GetCells(ctx, b.wallet.LockScript(), &typeScript)
	if err != nil {
		return uint128.Zero, err
	}
	total := uint128.Zero
	for _, cell := range cells {
		if total.Cmp(amount) >= 0 {
			break
		}
		if b.hasInput(cell.OutPoint) {
			continue
		}
		cellAmount, err := cell.TokenAmount()
		if err != nil {
			return uint128.Zero, errors.Wrapf(err, "cell %s:%d", cell.OutPoint.TxHash, cell.OutPoint.Index)
		}
		b.addInput(cell)
		total = total.Add(cellAmount)
	}
	if total.Cmp(amount) < 0 {
		return uint128.Zero, errors.Wrapf(errs.ErrInsufficientFunds,
			"token balance %s short of requested %s", total, amount)
	}
	return total, nil
}

// addCapacityUpTo attaches plain cells until the input side reaches target.
// target is a func because every added input grows the fee a little.
func (b *Build) addCapacityUpTo(ctx context.Context, target func() uint64) error {
	if b.inputCapacity() >= target() {
		return nil
	}
	cells, err := b.wallet.Client.GetCells(ctx, b.wallet.LockScript(), nil)
	if err != nil {
		return err
	}
	for _, cell := range cells {
		if b.inputCapacity() >= target() {
			return nil
		}
		if b.hasInput(cell.OutPoint) {
			continue
		}
		b.addInput(cell)
	}
	if b.inputCapacity() < target() {
		return errors.Wrapf(errs.ErrInsufficientFunds,
			"capacity %d short of required %d", b.inputCapacity(), target())
	}
	return nil
}

// CompleteInputsByCapacity attaches plain cells until the input side covers
// the declared outputs plus an estimated fee.
func (b *Build) CompleteInputsByCapacity(ctx context.Context) error {
	return b.addCapacityUpTo(ctx, func() uint64 {
		return b.Tx.OutputCapacity() + b.estimateFee()
	})
}

// CompleteFee settles the input/output capacity difference: the estimated fee
// is kept, anything above it returns to the managed lock as a change output.
// A surplus too small for a change cell is burned into the fee instead.
func (b *Build) CompleteFee(ctx context.Context) error {
	withChange := func() uint64 {
		return b.Tx.OutputCapacity() + b.estimateFeeWithChange()
	}
	if err := b.addCapacityUpTo(ctx, withChange); err != nil {
		// cannot afford a change cell on top; an exact cover is still a
		// valid transaction with the whole surplus going to the fee
		return b.CompleteInputsByCapacity(ctx)
	}
	fee := b.estimateFeeWithChange()
	change := b.inputCapacity() - b.Tx.OutputCapacity() - fee
	if change >= common.MinCellCapacity {
		b.Tx.AddOutput(ckbman.CellOutput{
			Capacity: change,
			Lock:     b.wallet.LockScript(),
		}, nil)
	} else if change > 0 {
		logger.WithField("burned", change).Debug("change below minimum cell capacity, folded into fee")
	}
	return nil
}

// SignAndSend fills the witnesses with the signer's recoverable signature and
// broadcasts the transaction.
func (b *Build) SignAndSend(ctx context.Context) (string, error) {
	serialized, err := json.Marshal(b.Tx)
	if err != nil {
		return "", err
	}
	sig, err := b.wallet.Signer.Sign(signers.TxDigest(serialized))
	if err != nil {
		return "", errors.Wrap(err, "signing failed")
	}
	b.Tx.Witnesses = make([][]byte, len(b.Tx.Inputs))
	if len(b.Tx.Witnesses) > 0 {
		b.Tx.Witnesses[0] = sig
	}
	return b.wallet.Client.SendTransaction(ctx, b.Tx)
}

func (b *Build) estimateFee() uint64 {
	return b.feeForSize(b.estimateSize(len(b.Tx.Outputs)))
}

// estimateFeeWithChange reserves room for the change output about to be added.
func (b *Build) estimateFeeWithChange() uint64 {
	return b.feeForSize(b.estimateSize(len(b.Tx.Outputs) + 1))
}

func (b *Build) estimateSize(outputs int) uint64 {
	size := uint64(txBaseSize)
	size += uint64(len(b.Tx.Inputs)) * (inputSize + witnessSize)
	size += uint64(outputs) * outputBaseSize
	for _, data := range b.Tx.OutputsData {
		size += uint64(len(data))
	}
	return size
}

func (b *Build) feeForSize(size uint64) uint64 {
	fee := size * b.wallet.FeeRate / 1000
	if fee == 0 {
		fee = 1
	}
	return fee
}
