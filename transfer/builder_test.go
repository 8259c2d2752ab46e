package transfer

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/ckbman/wallet"
	"github.com/fiberpay/ckb-custody-go/common"
	"github.com/fiberpay/ckb-custody-go/counterstore"
	"github.com/fiberpay/ckb-custody-go/errs"
	"github.com/fiberpay/ckb-custody-go/ratelimit"
	"github.com/fiberpay/ckb-custody-go/signers"
)

const (
	custodyKey = "0x3333333333333333333333333333333333333333333333333333333333333333"
	otherKey   = "0x4444444444444444444444444444444444444444444444444444444444444444"
	tokenClass = "0x00000000000000000000000000000000000000000000000000000000000000aa"
)

var testToken = TokenConfig{
	TypeScript: ckbman.Script{
		CodeHash: tokenClass,
		HashType: ckbman.HashTypeType,
		Args:     "0x1234",
	},
	CellDep: ckbman.CellDep{
		OutPoint: ckbman.OutPoint{TxHash: "0x" + fmt.Sprintf("%064d", 9), Index: 0},
		DepType:  ckbman.DepTypeCode,
	},
	Decimals: 8,
}

type fixture struct {
	builder *Builder
	ledger  *SimulatedLedger
	store   *counterstore.SimulatedStore
	dest    string
}

func newFixture(t *testing.T, limiterCfg *ratelimit.Config) *fixture {
	signer, err := signers.NewLocalSigner(custodyKey, ckbman.Testnet)
	require.NoError(t, err)
	destSigner, err := signers.NewLocalSigner(otherKey, ckbman.Testnet)
	require.NoError(t, err)

	ledger := NewSimulatedLedger()
	store := counterstore.NewSimulatedStore()
	w := wallet.NewWallet(ledger, signer, wallet.DefaultFeeRate)
	builder := NewBuilder(w, ratelimit.NewLimiter(store, limiterCfg), &Config{
		Network: ckbman.Testnet,
		Tokens:  map[string]TokenConfig{tokenClass: testToken},
	})

	// fund the custody wallet with plenty of plain capacity
	for i := byte(1); i <= 3; i++ {
		ledger.PlainCells = append(ledger.PlainCells, ckbman.Cell{
			OutPoint: ckbman.OutPoint{TxHash: fmt.Sprintf("0x%064x", i), Index: 0},
			Output:   ckbman.CellOutput{Capacity: 10_000 * common.ShannonsPerCKB, Lock: signer.LockScript()},
		})
	}
	return &fixture{builder: builder, ledger: ledger, store: store, dest: destSigner.Address()}
}

func (f *fixture) fundToken(t *testing.T, seq byte, amount uint64) {
	typeScript := testToken.TypeScript
	f.ledger.TokenCells[typeScript.Args] = append(f.ledger.TokenCells[typeScript.Args], ckbman.Cell{
		OutPoint: ckbman.OutPoint{TxHash: fmt.Sprintf("0x%064x", 0x80+seq), Index: 0},
		Output: ckbman.CellOutput{
			Capacity: common.MinTokenCellCapacity,
			Lock:     f.builder.Wallet.LockScript(),
			Type:     &typeScript,
		},
		Data: ckbman.EncodeTokenAmount(uint128.From64(amount)),
	})
}

func TestTransferNative(t *testing.T) {
	f := newFixture(t, nil)

	txHash, err := f.builder.TransferNative(context.Background(), f.dest, "100", false)
	require.NoError(t, err)
	assert.NotEmpty(t, txHash)
	require.Len(t, f.ledger.Sent, 1)

	sent := f.ledger.Sent[0]
	assert.Equal(t, uint64(100*common.ShannonsPerCKB), sent.Outputs[0].Capacity)

	// usage committed after broadcast
	hour := "transfer:CKB:" + common.HourBucket(f.builder.Limiter.NowFunc())
	v, ok, _ := f.store.Get(context.Background(), hour)
	assert.True(t, ok)
	assert.Equal(t, fmt.Sprint(100*common.ShannonsPerCKB), v)
	count, ok, _ := f.store.Get(context.Background(), "transfer:CKB:"+f.dest)
	assert.True(t, ok)
	assert.Equal(t, "1", count)
}

func TestTransferNativeDestinationLimit(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.builder.TransferNative(context.Background(), f.dest, "100", false)
	require.NoError(t, err)

	// default destination ceiling for native transfers is one
	_, err = f.builder.TransferNative(context.Background(), f.dest, "100", false)
	assert.True(t, errors.Is(err, errs.ErrDestinationLimitExceeded))
	assert.Len(t, f.ledger.Sent, 1, "rejected transfer never reached the node")
}

func TestTransferNativeValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.builder.TransferNative(ctx, "not-an-address", "100", false)
	assert.True(t, errors.Is(err, errs.ErrValidation))

	_, err = f.builder.TransferNative(ctx, f.dest, "abc", false)
	assert.True(t, errors.Is(err, errs.ErrValidation))

	_, err = f.builder.TransferNative(ctx, f.dest, "-5", false)
	assert.True(t, errors.Is(err, errs.ErrValidation))

	// below minimum cell capacity
	_, err = f.builder.TransferNative(ctx, f.dest, "1", false)
	assert.True(t, errors.Is(err, errs.ErrValidation))

	assert.Empty(t, f.ledger.Sent)
}

func TestTransferNativeNoCommitOnBroadcastFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.ledger.SendErr = errors.Wrap(errs.ErrLedgerUnavailable, "node down")

	_, err := f.builder.TransferNative(context.Background(), f.dest, "100", false)
	assert.True(t, errors.Is(err, errs.ErrLedgerUnavailable))

	// nothing committed: the same destination is still allowed
	f.ledger.SendErr = nil
	_, err = f.builder.TransferNative(context.Background(), f.dest, "100", false)
	assert.NoError(t, err)
}

func TestTransferTokenWithChange(t *testing.T) {
	f := newFixture(t, nil)
	f.fundToken(t, 1, 150*common.ShannonsPerCKB)

	_, err := f.builder.TransferToken(context.Background(), tokenClass, f.dest, "100", false)
	require.NoError(t, err)
	require.Len(t, f.ledger.Sent, 1)
	sent := f.ledger.Sent[0]

	// output 0: requested amount to the destination
	amount, err := ckbman.Cell{Data: sent.OutputsData[0]}.TokenAmount()
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(100*common.ShannonsPerCKB), amount)

	// output 1: change of exactly input-total minus amount, back to the sender
	change, err := ckbman.Cell{Data: sent.OutputsData[1]}.TokenAmount()
	require.NoError(t, err)
	assert.Equal(t, uint128.From64(50*common.ShannonsPerCKB), change)
	assert.True(t, sent.Outputs[1].Lock.Equal(f.builder.Wallet.LockScript()))
	require.NotNil(t, sent.Outputs[1].Type)
	assert.True(t, sent.Outputs[1].Type.Equal(testToken.TypeScript))

	assert.True(t, sent.HasCellDep(testToken.CellDep))
}

func TestTransferTokenExactAmountNoChange(t *testing.T) {
	f := newFixture(t, nil)
	f.fundToken(t, 1, 100*common.ShannonsPerCKB)

	_, err := f.builder.TransferToken(context.Background(), tokenClass, f.dest, "100", false)
	require.NoError(t, err)
	require.Len(t, f.ledger.Sent, 1)
	sent := f.ledger.Sent[0]

	// only the destination token output plus (possibly) a capacity change
	for i, out := range sent.Outputs[1:] {
		assert.Nil(t, out.Type, "output %d must not carry the token type", i+1)
	}
}

func TestTransferTokenInsufficient(t *testing.T) {
	f := newFixture(t, nil)
	f.fundToken(t, 1, 40*common.ShannonsPerCKB)

	_, err := f.builder.TransferToken(context.Background(), tokenClass, f.dest, "100", false)
	assert.True(t, errors.Is(err, errs.ErrInsufficientFunds))
	assert.Empty(t, f.ledger.Sent)
}

func TestTransferTokenUnknownClass(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.builder.TransferToken(context.Background(), "0xdeadbeef", f.dest, "100", false)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestTransferScenarioHourlyThenDestination(t *testing.T) {
	// the §-style walkthrough: ceiling 3000, fresh bucket, 100 to addr1
	cfg := ratelimit.DefaultConfig()
	cfg.HourlyCeilings[ratelimit.NativeAssetKey] = 3000 * common.ShannonsPerCKB
	f := newFixture(t, cfg)
	ctx := context.Background()

	_, err := f.builder.TransferNative(ctx, f.dest, "100", false)
	require.NoError(t, err)

	hour := "transfer:CKB:" + common.HourBucket(f.builder.Limiter.NowFunc())
	v, _, _ := f.store.Get(ctx, hour)
	assert.Equal(t, fmt.Sprint(100*common.ShannonsPerCKB), v)
	count, _, _ := f.store.Get(ctx, "transfer:CKB:"+f.dest)
	assert.Equal(t, "1", count)

	_, err = f.builder.TransferNative(ctx, f.dest, "100", false)
	assert.True(t, errors.Is(err, errs.ErrDestinationLimitExceeded))
}

func TestTransferIgnoreLimit(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.builder.TransferNative(ctx, f.dest, "100", false)
	require.NoError(t, err)

	// trusted flow bypasses the destination ceiling but still books usage
	_, err = f.builder.TransferNative(ctx, f.dest, "100", true)
	require.NoError(t, err)
	count, _, _ := f.store.Get(ctx, "transfer:CKB:"+f.dest)
	assert.Equal(t, "2", count)
}
