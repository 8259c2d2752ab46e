package chainsync

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/fiberpay/ckb-custody-go/ckbman"
)

// SimulatedSource is an in-memory LedgerSource for tests.
type SimulatedSource struct {
	mu      sync.Mutex
	Tip     uint64
	Entries []TxEntry            // receiving transactions, ascending height
	Details map[string]*TxDetail // by tx hash
	TipErr  error
}

func NewSimulatedSource() *SimulatedSource {
	return &SimulatedSource{Details: make(map[string]*TxDetail)}
}

// AddTransaction registers a receiving transaction at the given height.
func (s *SimulatedSource) AddTransaction(txHash string, height uint64, inputs, outputs []AddressValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, TxEntry{TxHash: txHash, BlockNumber: height})
	s.Details[txHash] = &TxDetail{BlockNumber: height, Inputs: inputs, Outputs: outputs}
}

func (s *SimulatedSource) GetTipBlockNumber(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.TipErr != nil {
		return 0, s.TipErr
	}
	return s.Tip, nil
}

func (s *SimulatedSource) FindReceivingTransactions(_ context.Context, _ ckbman.Script, from, to uint64) ([]TxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []TxEntry
	for _, e := range s.Entries {
		if e.BlockNumber >= from && e.BlockNumber <= to {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *SimulatedSource) GetTransactionDetail(_ context.Context, txHash string) (*TxDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	detail, ok := s.Details[txHash]
	if !ok {
		return nil, errors.Newf("unknown transaction %s", txHash)
	}
	return detail, nil
}
