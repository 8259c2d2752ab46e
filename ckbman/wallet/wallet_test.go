package wallet

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/common"
	"github.com/fiberpay/ckb-custody-go/errs"
	"github.com/fiberpay/ckb-custody-go/signers"
)

const testPrivKey = "0x2222222222222222222222222222222222222222222222222222222222222222"

var testTokenType = ckbman.Script{
	CodeHash: "0x" + fmt.Sprintf("%064d", 7),
	HashType: ckbman.HashTypeType,
	Args:     "0xabcd",
}

// fakeLedger serves canned cells and records broadcasts.
type fakeLedger struct {
	plainCells []ckbman.Cell
	tokenCells []ckbman.Cell
	sent       []*ckbman.Transaction
	sendErr    error
}

func (f *fakeLedger) GetCells(_ context.Context, _ ckbman.Script, typeScript *ckbman.Script) ([]ckbman.Cell, error) {
	if typeScript == nil {
		return f.plainCells, nil
	}
	return f.tokenCells, nil
}

func (f *fakeLedger) GetCellsCapacity(_ context.Context, _ ckbman.Script) (uint64, error) {
	var total uint64
	for _, c := range f.plainCells {
		total += c.Output.Capacity
	}
	return total, nil
}

func (f *fakeLedger) SendTransaction(_ context.Context, tx *ckbman.Transaction) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, tx)
	return "0xsenthash", nil
}

func plainCell(seq byte, capacity uint64, lock ckbman.Script) ckbman.Cell {
	return ckbman.Cell{
		OutPoint: ckbman.OutPoint{TxHash: fmt.Sprintf("0x%064x", seq), Index: 0},
		Output:   ckbman.CellOutput{Capacity: capacity, Lock: lock},
	}
}

func tokenCell(seq byte, capacity uint64, lock ckbman.Script, amount uint64) ckbman.Cell {
	t := testTokenType
	return ckbman.Cell{
		OutPoint: ckbman.OutPoint{TxHash: fmt.Sprintf("0x%064x", seq), Index: 0},
		Output:   ckbman.CellOutput{Capacity: capacity, Lock: lock, Type: &t},
		Data:     ckbman.EncodeTokenAmount(uint128.From64(amount)),
	}
}

func newTestWallet(t *testing.T, ledger *fakeLedger) *Wallet {
	signer, err := signers.NewLocalSigner(testPrivKey, ckbman.Testnet)
	require.NoError(t, err)
	return NewWallet(ledger, signer, DefaultFeeRate)
}

func TestCompleteInputsByCapacity(t *testing.T) {
	ledger := &fakeLedger{}
	w := newTestWallet(t, ledger)
	ledger.plainCells = []ckbman.Cell{
		plainCell(1, 200*common.ShannonsPerCKB, w.LockScript()),
		plainCell(2, 500*common.ShannonsPerCKB, w.LockScript()),
	}

	tx := &ckbman.Transaction{}
	tx.AddOutput(ckbman.CellOutput{Capacity: 250 * common.ShannonsPerCKB, Lock: w.LockScript()}, nil)

	b := w.StartBuild(tx)
	require.NoError(t, b.CompleteInputsByCapacity(context.Background()))
	assert.Len(t, tx.Inputs, 2, "first cell alone cannot cover the output")
	assert.GreaterOrEqual(t, b.inputCapacity(), tx.OutputCapacity())
}

func TestCompleteInputsByCapacityInsufficient(t *testing.T) {
	ledger := &fakeLedger{}
	w := newTestWallet(t, ledger)
	ledger.plainCells = []ckbman.Cell{
		plainCell(1, 100 * common.ShannonsPerCKB, w.LockScript()),
	}

	tx := &ckbman.Transaction{}
	tx.AddOutput(ckbman.CellOutput{Capacity: 250 * common.ShannonsPerCKB, Lock: w.LockScript()}, nil)

	err := w.StartBuild(tx).CompleteInputsByCapacity(context.Background())
	assert.True(t, errors.Is(err, errs.ErrInsufficientFunds))
}

func TestCompleteFeeAddsChange(t *testing.T) {
	ledger := &fakeLedger{}
	w := newTestWallet(t, ledger)
	ledger.plainCells = []ckbman.Cell{
		plainCell(1, 1000*common.ShannonsPerCKB, w.LockScript()),
	}

	tx := &ckbman.Transaction{}
	tx.AddOutput(ckbman.CellOutput{Capacity: 250 * common.ShannonsPerCKB, Lock: w.LockScript()}, nil)

	b := w.StartBuild(tx)
	require.NoError(t, b.CompleteInputsByCapacity(context.Background()))
	require.NoError(t, b.CompleteFee(context.Background()))

	require.Len(t, tx.Outputs, 2, "change output appended")
	change := tx.Outputs[1]
	assert.True(t, change.Lock.Equal(w.LockScript()), "change returns to the managed lock")
	assert.GreaterOrEqual(t, change.Capacity, uint64(common.MinCellCapacity))
	assert.Less(t, b.inputCapacity()-tx.OutputCapacity(), uint64(common.ShannonsPerCKB),
		"fee is far below 1 CKB at the default fee rate")
}

func TestCompleteInputsByToken(t *testing.T) {
	ledger := &fakeLedger{}
	w := newTestWallet(t, ledger)
	ledger.tokenCells = []ckbman.Cell{
		tokenCell(1, common.MinTokenCellCapacity, w.LockScript(), 60),
		tokenCell(2, common.MinTokenCellCapacity, w.LockScript(), 50),
	}

	tx := &ckbman.Transaction{}
	b := w.StartBuild(tx)
	total, err := b.CompleteInputsByToken(context.Background(), testTokenType, uint128.From64(100))
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(110), total)
	assert.Len(t, tx.Inputs, 2)
}

func TestCompleteInputsByTokenInsufficient(t *testing.T) {
	ledger := &fakeLedger{}
	w := newTestWallet(t, ledger)
	ledger.tokenCells = []ckbman.Cell{
		tokenCell(1, common.MinTokenCellCapacity, w.LockScript(), 60),
	}

	b := w.StartBuild(&ckbman.Transaction{})
	_, err := b.CompleteInputsByToken(context.Background(), testTokenType, uint128.From64(100))
	assert.True(t, errors.Is(err, errs.ErrInsufficientFunds))
}

func TestSignAndSend(t *testing.T) {
	ledger := &fakeLedger{}
	w := newTestWallet(t, ledger)
	ledger.plainCells = []ckbman.Cell{
		plainCell(1, 1000*common.ShannonsPerCKB, w.LockScript()),
	}

	tx := &ckbman.Transaction{}
	tx.AddOutput(ckbman.CellOutput{Capacity: 100 * common.ShannonsPerCKB, Lock: w.LockScript()}, nil)

	b := w.StartBuild(tx)
	require.NoError(t, b.CompleteInputsByCapacity(context.Background()))
	txHash, err := b.SignAndSend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xsenthash", txHash)
	require.Len(t, ledger.sent, 1)
	require.Len(t, ledger.sent[0].Witnesses, len(ledger.sent[0].Inputs))
	assert.Len(t, ledger.sent[0].Witnesses[0], 65)
}

func TestTokenBalance(t *testing.T) {
	ledger := &fakeLedger{}
	w := newTestWallet(t, ledger)
	ledger.tokenCells = []ckbman.Cell{
		tokenCell(1, common.MinTokenCellCapacity, w.LockScript(), 60),
		tokenCell(2, common.MinTokenCellCapacity, w.LockScript(), 50),
	}

	total, err := w.TokenBalance(context.Background(), testTokenType)
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(110), total)
}
