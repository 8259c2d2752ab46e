package transfer

import (
	"context"
	"sync"

	"github.com/fiberpay/ckb-custody-go/ckbman"
)

// SimulatedLedger implements wallet.LedgerClient against in-memory cells, for
// tests and local development without a node.
type SimulatedLedger struct {
	mu         sync.Mutex
	PlainCells []ckbman.Cell
	TokenCells map[string][]ckbman.Cell // keyed by type script args
	SendErr    error
	Sent       []*ckbman.Transaction
}

func NewSimulatedLedger() *SimulatedLedger {
	return &SimulatedLedger{TokenCells: make(map[string][]ckbman.Cell)}
}

func (l *SimulatedLedger) GetCells(_ context.Context, _ ckbman.Script, typeScript *ckbman.Script) ([]ckbman.Cell, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if typeScript == nil {
		return append([]ckbman.Cell(nil), l.PlainCells...), nil
	}
	return append([]ckbman.Cell(nil), l.TokenCells[typeScript.Args]...), nil
}

func (l *SimulatedLedger) GetCellsCapacity(_ context.Context, _ ckbman.Script) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var total uint64
	for _, c := range l.PlainCells {
		total += c.Output.Capacity
	}
	return total, nil
}

func (l *SimulatedLedger) SendTransaction(_ context.Context, tx *ckbman.Transaction) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.SendErr != nil {
		return "", l.SendErr
	}
	l.Sent = append(l.Sent, tx)
	return "0x73656e74", nil
}
