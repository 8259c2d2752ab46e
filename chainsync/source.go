package chainsync

import (
	"context"
	"sort"

	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/ckbman/rpc"
)

// RpcSource adapts the node RPC client to the monitor's LedgerSource.
type RpcSource struct {
	Client  *rpc.RpcClient
	Network ckbman.Network
}

func NewRpcSource(client *rpc.RpcClient, network ckbman.Network) *RpcSource {
	return &RpcSource{Client: client, Network: network}
}

func (s *RpcSource) GetTipBlockNumber(ctx context.Context) (uint64, error) {
	return s.Client.GetTipBlockNumber(ctx)
}

// FindReceivingTransactions collapses the indexer's per-io hits into one
// entry per transaction, dropping transactions where the watched lock only
// ever appears on the input side.
func (s *RpcSource) FindReceivingTransactions(ctx context.Context, lock ckbman.Script, from, to uint64) ([]TxEntry, error) {
	summaries, err := s.Client.FindTransactions(ctx, lock, from, to)
	if err != nil {
		return nil, err
	}
	type seen struct {
		height   uint64
		receives bool
	}
	byTx := make(map[string]*seen)
	order := make([]string, 0, len(summaries))
	for _, sum := range summaries {
		entry, ok := byTx[sum.TxHash]
		if !ok {
			entry = &seen{height: sum.BlockNumber}
			byTx[sum.TxHash] = entry
			order = append(order, sum.TxHash)
		}
		entry.receives = entry.receives || sum.IsOutput
	}
	entries := make([]TxEntry, 0, len(order))
	for _, txHash := range order {
		if byTx[txHash].receives {
			entries = append(entries, TxEntry{TxHash: txHash, BlockNumber: byTx[txHash].height})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].BlockNumber < entries[j].BlockNumber })
	return entries, nil
}

func (s *RpcSource) GetTransactionDetail(ctx context.Context, txHash string) (*TxDetail, error) {
	detail, err := s.Client.GetTransactionDetail(ctx, txHash, s.Network)
	if err != nil {
		return nil, err
	}
	out := &TxDetail{BlockNumber: detail.BlockNumber}
	for _, in := range detail.Inputs {
		out.Inputs = append(out.Inputs, AddressValue{Address: in.Address, Value: in.Value})
	}
	for _, o := range detail.Outputs {
		out.Outputs = append(out.Outputs, AddressValue{Address: o.Address, Value: o.Value})
	}
	return out, nil
}
