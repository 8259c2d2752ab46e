// Wrapper around the ledger node and its indexer. The node speaks JSON-RPC
// over HTTP; all quantities on the wire are 0x-prefixed hex strings.
package rpc

import (
	"context"
	"encoding/hex"

	"github.com/cockroachdb/errors"
	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/common"
	"github.com/fiberpay/ckb-custody-go/errs"
)

const (
	// page size for indexer queries
	searchPageSize = 100
)

type RpcClientConfig struct {
	NodeURL    string // ledger node JSON-RPC endpoint
	IndexerURL string // indexer endpoint; empty means the node serves both
}

// RpcClient exposes the subset of node/indexer calls the backend needs.
type RpcClient struct {
	node    *gethrpc.Client
	indexer *gethrpc.Client
}

func NewRpcClient(ctx context.Context, cfg *RpcClientConfig) (*RpcClient, error) {
	node, err := gethrpc.DialContext(ctx, cfg.NodeURL)
	if err != nil {
		return nil, errors.Wrapf(errs.ErrLedgerUnavailable, "dial node %s: %v", cfg.NodeURL, err)
	}
	indexer := node
	if cfg.IndexerURL != "" && cfg.IndexerURL != cfg.NodeURL {
		indexer, err = gethrpc.DialContext(ctx, cfg.IndexerURL)
		if err != nil {
			node.Close()
			return nil, errors.Wrapf(errs.ErrLedgerUnavailable, "dial indexer %s: %v", cfg.IndexerURL, err)
		}
	}
	return &RpcClient{node: node, indexer: indexer}, nil
}

func (r *RpcClient) Close() {
	if r.indexer != r.node {
		r.indexer.Close()
	}
	r.node.Close()
}

// GetTipBlockNumber returns the current chain tip height.
func (r *RpcClient) GetTipBlockNumber(ctx context.Context) (uint64, error) {
	var tip string
	if err := r.node.CallContext(ctx, &tip, "get_tip_block_number"); err != nil {
		return 0, errors.Wrapf(errs.ErrLedgerUnavailable, "get_tip_block_number: %v", err)
	}
	return common.HexToUint64(tip)
}

// SendTransaction broadcasts a signed transaction and returns its hash.
func (r *RpcClient) SendTransaction(ctx context.Context, tx *ckbman.Transaction) (string, error) {
	var txHash string
	if err := r.node.CallContext(ctx, &txHash, "send_transaction", toWireTx(tx), "passthrough"); err != nil {
		return "", errors.Wrapf(errs.ErrLedgerUnavailable, "send_transaction: %v", err)
	}
	return txHash, nil
}

// GetCells pages through live cells owned by lock. A nil typeScript restricts
// the search to plain cells (no type script); otherwise cells of that token
// class are returned.
func (r *RpcClient) GetCells(ctx context.Context, lock ckbman.Script, typeScript *ckbman.Script) ([]ckbman.Cell, error) {
	var cells []ckbman.Cell
	cursor := ""
	for {
		key := wireSearchKey{
			Script:     toWireScript(lock),
			ScriptType: "lock",
			SearchMode: "exact",
		}
		if typeScript != nil {
			key.Filter = &wireSearchFilter{Script: toWireScriptPtr(typeScript)}
		} else {
			// range filters are [min, max), so [0x0, 0x1) keeps exactly the
			// cells whose type script length is zero
			key.Filter = &wireSearchFilter{ScriptLenRange: []string{"0x0", "0x1"}}
		}
		var page wireCellPage
		args := []interface{}{key, "asc", common.Uint64ToHex(searchPageSize)}
		if cursor != "" {
			args = append(args, cursor)
		}
		if err := r.indexer.CallContext(ctx, &page, "get_cells", args...); err != nil {
			return nil, errors.Wrapf(errs.ErrLedgerUnavailable, "get_cells: %v", err)
		}
		for _, wc := range page.Objects {
			cell, err := fromWireCell(wc)
			if err != nil {
				return nil, err
			}
			cells = append(cells, cell)
		}
		if len(page.Objects) < searchPageSize || page.LastCursor == "" {
			return cells, nil
		}
		cursor = page.LastCursor
	}
}

// GetCellsCapacity sums the live capacity held by lock.
func (r *RpcClient) GetCellsCapacity(ctx context.Context, lock ckbman.Script) (uint64, error) {
	key := wireSearchKey{Script: toWireScript(lock), ScriptType: "lock", SearchMode: "exact"}
	var res struct {
		Capacity string `json:"capacity"`
	}
	if err := r.indexer.CallContext(ctx, &res, "get_cells_capacity", key); err != nil {
		return 0, errors.Wrapf(errs.ErrLedgerUnavailable, "get_cells_capacity: %v", err)
	}
	return common.HexToUint64(res.Capacity)
}

// TxSummary is one indexer hit for a watched lock script.
type TxSummary struct {
	TxHash      string
	BlockNumber uint64
	IsOutput    bool
}

// FindTransactions returns transactions touching lock within heights
// [from, to], oldest first. The exact-match mode keeps longer-args lock
// scripts from matching as prefixes.
func (r *RpcClient) FindTransactions(ctx context.Context, lock ckbman.Script, from, to uint64) ([]TxSummary, error) {
	key := wireSearchKey{
		Script:     toWireScript(lock),
		ScriptType: "lock",
		SearchMode: "exact",
		Filter: &wireSearchFilter{
			BlockRange: []string{common.Uint64ToHex(from), common.Uint64ToHex(to + 1)},
		},
	}
	var out []TxSummary
	cursor := ""
	for {
		var page wireTxPage
		args := []interface{}{key, "asc", common.Uint64ToHex(searchPageSize)}
		if cursor != "" {
			args = append(args, cursor)
		}
		if err := r.indexer.CallContext(ctx, &page, "get_transactions", args...); err != nil {
			return nil, errors.Wrapf(errs.ErrLedgerUnavailable, "get_transactions: %v", err)
		}
		for _, obj := range page.Objects {
			height, err := common.HexToUint64(obj.BlockNumber)
			if err != nil {
				return nil, err
			}
			out = append(out, TxSummary{
				TxHash:      obj.TxHash,
				BlockNumber: height,
				IsOutput:    obj.IoType == "output",
			})
		}
		if len(page.Objects) < searchPageSize || page.LastCursor == "" {
			return out, nil
		}
		cursor = page.LastCursor
	}
}

// AddressValue is one side entry of a transaction: who and how much capacity.
type AddressValue struct {
	Address string `json:"address"`
	Value   uint64 `json:"value"`
}

// TxDetail is a fully resolved transaction: every input's previous output is
// fetched so both sides carry (address, value) pairs.
type TxDetail struct {
	TxHash      string
	BlockNumber uint64
	Inputs      []AddressValue
	Outputs     []AddressValue
}

// GetTransactionDetail fetches a transaction and resolves its input side.
// network is needed to render lock scripts as addresses.
func (r *RpcClient) GetTransactionDetail(ctx context.Context, txHash string, network ckbman.Network) (*TxDetail, error) {
	wtx, err := r.getWireTx(ctx, txHash)
	if err != nil {
		return nil, err
	}
	height := uint64(0)
	if wtx.TxStatus.BlockNumber != "" {
		if height, err = common.HexToUint64(wtx.TxStatus.BlockNumber); err != nil {
			return nil, err
		}
	}

	detail := &TxDetail{TxHash: txHash, BlockNumber: height}
	for _, out := range wtx.Transaction.Outputs {
		av, err := toAddressValue(out, network)
		if err != nil {
			return nil, err
		}
		detail.Outputs = append(detail.Outputs, av)
	}
	for _, in := range wtx.Transaction.Inputs {
		// cellbase inputs have the null tx hash and no previous output
		if isNullHash(in.PreviousOutput.TxHash) {
			continue
		}
		prev, err := r.getWireTx(ctx, in.PreviousOutput.TxHash)
		if err != nil {
			return nil, err
		}
		idx, err := common.HexToUint64(in.PreviousOutput.Index)
		if err != nil {
			return nil, err
		}
		if idx >= uint64(len(prev.Transaction.Outputs)) {
			return nil, errors.Newf("input of %s points past outputs of %s", txHash, in.PreviousOutput.TxHash)
		}
		av, err := toAddressValue(prev.Transaction.Outputs[idx], network)
		if err != nil {
			return nil, err
		}
		detail.Inputs = append(detail.Inputs, av)
	}
	return detail, nil
}

func (r *RpcClient) getWireTx(ctx context.Context, txHash string) (*wireTxWithStatus, error) {
	var wtx wireTxWithStatus
	if err := r.node.CallContext(ctx, &wtx, "get_transaction", txHash); err != nil {
		return nil, errors.Wrapf(errs.ErrLedgerUnavailable, "get_transaction %s: %v", txHash, err)
	}
	if wtx.Transaction == nil {
		return nil, errors.Newf("transaction %s not found", txHash)
	}
	return &wtx, nil
}

func toAddressValue(out wireOutput, network ckbman.Network) (AddressValue, error) {
	capacity, err := common.HexToUint64(out.Capacity)
	if err != nil {
		return AddressValue{}, err
	}
	address, err := ckbman.EncodeAddress(fromWireScript(out.Lock), network)
	if err != nil {
		return AddressValue{}, err
	}
	return AddressValue{Address: address, Value: capacity}, nil
}

func isNullHash(h string) bool {
	trimmed := common.Trim0xPrefix(h)
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return false
	}
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
