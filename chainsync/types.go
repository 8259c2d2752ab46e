/*
Package chainsync keeps the persisted view of the managed address up to date.
A periodic tick acquires a short-lived lock in the counter store, pages
through chain history since the last checkpoint, records a balance-delta
summary per discovered transaction, and advances the checkpoint. Overlapping
ticks are expected; the lock makes all but one of them no-ops.
*/
package chainsync

import (
	"context"
	"sort"

	"github.com/fiberpay/ckb-custody-go/ckbman"
)

// AddressValue is one (address, capacity) entry on a transaction side.
type AddressValue struct {
	Address string `json:"address"`
	Value   uint64 `json:"value"`
}

// AddressDelta is the net balance change of one address in a transaction:
// output sum minus input sum.
type AddressDelta struct {
	Address string `json:"address"`
	Delta   int64  `json:"delta"`
}

// TxRecord is the persisted summary of one discovered transaction. Writing
// the same record twice is safe.
type TxRecord struct {
	TxHash      string         `json:"tx_hash"`
	BlockNumber uint64         `json:"block_number"`
	Inputs      []AddressValue `json:"inputs"`
	Outputs     []AddressValue `json:"outputs"`
	Deltas      []AddressDelta `json:"deltas"`
}

// TxEntry is a discovery hit: a transaction and the height it landed at.
type TxEntry struct {
	TxHash      string
	BlockNumber uint64
}

// TxDetail carries both resolved sides of a transaction.
type TxDetail struct {
	BlockNumber uint64
	Inputs      []AddressValue
	Outputs     []AddressValue
}

// LedgerSource is the chain surface the monitor consumes.
type LedgerSource interface {
	GetTipBlockNumber(ctx context.Context) (uint64, error)

	// FindReceivingTransactions returns transactions within [from, to] where
	// lock appears on the output side (transactions where the address is
	// solely an input are filtered out), ascending by height.
	FindReceivingTransactions(ctx context.Context, lock ckbman.Script, from, to uint64) ([]TxEntry, error)

	GetTransactionDetail(ctx context.Context, txHash string) (*TxDetail, error)
}

// ComputeDeltas nets the two sides per distinct address, sorted by address
// for stable persisted content.
func ComputeDeltas(inputs, outputs []AddressValue) []AddressDelta {
	net := make(map[string]int64)
	for _, in := range inputs {
		net[in.Address] -= int64(in.Value)
	}
	for _, out := range outputs {
		net[out.Address] += int64(out.Value)
	}
	deltas := make([]AddressDelta, 0, len(net))
	for addr, delta := range net {
		deltas = append(deltas, AddressDelta{Address: addr, Delta: delta})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Address < deltas[j].Address })
	return deltas
}
