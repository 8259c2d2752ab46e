package rpc

import (
	"encoding/hex"
	"fmt"

	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/common"
)

// Wire-level mirrors of the ckbman types: every quantity is hex, every byte
// slice is 0x-prefixed hex.

type wireScript struct {
	CodeHash string `json:"code_hash"`
	HashType string `json:"hash_type"`
	Args     string `json:"args"`
}

type wireOutPoint struct {
	TxHash string `json:"tx_hash"`
	Index  string `json:"index"`
}

type wireCellDep struct {
	OutPoint wireOutPoint `json:"out_point"`
	DepType  string       `json:"dep_type"`
}

type wireInput struct {
	PreviousOutput wireOutPoint `json:"previous_output"`
	Since          string       `json:"since"`
}

type wireOutput struct {
	Capacity string      `json:"capacity"`
	Lock     wireScript  `json:"lock"`
	Type     *wireScript `json:"type"`
}

type wireTx struct {
	Version     string        `json:"version"`
	CellDeps    []wireCellDep `json:"cell_deps"`
	HeaderDeps  []string      `json:"header_deps"`
	Inputs      []wireInput   `json:"inputs"`
	Outputs     []wireOutput  `json:"outputs"`
	OutputsData []string      `json:"outputs_data"`
	Witnesses   []string      `json:"witnesses"`
}

type wireTxWithStatus struct {
	Transaction *wireTx `json:"transaction"`
	TxStatus    struct {
		Status      string `json:"status"`
		BlockNumber string `json:"block_number"`
	} `json:"tx_status"`
}

type wireSearchFilter struct {
	Script         *wireScript `json:"script,omitempty"`
	ScriptLenRange []string    `json:"script_len_range,omitempty"`
	BlockRange     []string    `json:"block_range,omitempty"`
}

type wireSearchKey struct {
	Script     wireScript        `json:"script"`
	ScriptType string            `json:"script_type"`
	SearchMode string            `json:"script_search_mode,omitempty"`
	Filter     *wireSearchFilter `json:"filter,omitempty"`
}

type wireCellObject struct {
	OutPoint   wireOutPoint `json:"out_point"`
	Output     wireOutput   `json:"output"`
	OutputData string       `json:"output_data"`
}

type wireCellPage struct {
	LastCursor string           `json:"last_cursor"`
	Objects    []wireCellObject `json:"objects"`
}

type wireTxPage struct {
	LastCursor string `json:"last_cursor"`
	Objects    []struct {
		TxHash      string `json:"tx_hash"`
		BlockNumber string `json:"block_number"`
		IoType      string `json:"io_type"`
		IoIndex     string `json:"io_index"`
	} `json:"objects"`
}

func toWireScript(s ckbman.Script) wireScript {
	return wireScript{CodeHash: s.CodeHash, HashType: s.HashType, Args: s.Args}
}

func toWireScriptPtr(s *ckbman.Script) *wireScript {
	if s == nil {
		return nil
	}
	w := toWireScript(*s)
	return &w
}

func fromWireScript(w wireScript) ckbman.Script {
	return ckbman.Script{CodeHash: w.CodeHash, HashType: w.HashType, Args: w.Args}
}

func toWireTx(tx *ckbman.Transaction) *wireTx {
	w := &wireTx{
		Version:    common.Uint64ToHex(uint64(tx.Version)),
		HeaderDeps: []string{},
	}
	for _, dep := range tx.CellDeps {
		w.CellDeps = append(w.CellDeps, wireCellDep{
			OutPoint: wireOutPoint{
				TxHash: dep.OutPoint.TxHash,
				Index:  common.Uint64ToHex(uint64(dep.OutPoint.Index)),
			},
			DepType: dep.DepType,
		})
	}
	for _, in := range tx.Inputs {
		w.Inputs = append(w.Inputs, wireInput{
			PreviousOutput: wireOutPoint{
				TxHash: in.PreviousOutput.TxHash,
				Index:  common.Uint64ToHex(uint64(in.PreviousOutput.Index)),
			},
			Since: common.Uint64ToHex(in.Since),
		})
	}
	for _, out := range tx.Outputs {
		w.Outputs = append(w.Outputs, wireOutput{
			Capacity: common.Uint64ToHex(out.Capacity),
			Lock:     toWireScript(out.Lock),
			Type:     toWireScriptPtr(out.Type),
		})
	}
	for _, data := range tx.OutputsData {
		w.OutputsData = append(w.OutputsData, common.Prepend0xPrefix(hex.EncodeToString(data)))
	}
	for _, wit := range tx.Witnesses {
		w.Witnesses = append(w.Witnesses, common.Prepend0xPrefix(hex.EncodeToString(wit)))
	}
	return w
}

func fromWireCell(obj wireCellObject) (ckbman.Cell, error) {
	capacity, err := common.HexToUint64(obj.Output.Capacity)
	if err != nil {
		return ckbman.Cell{}, err
	}
	index, err := common.HexToUint64(obj.OutPoint.Index)
	if err != nil {
		return ckbman.Cell{}, err
	}
	data, err := hex.DecodeString(common.Trim0xPrefix(obj.OutputData))
	if err != nil {
		return ckbman.Cell{}, fmt.Errorf("malformed cell data: %v", err)
	}
	cell := ckbman.Cell{
		OutPoint: ckbman.OutPoint{TxHash: obj.OutPoint.TxHash, Index: uint32(index)},
		Output: ckbman.CellOutput{
			Capacity: capacity,
			Lock:     fromWireScript(obj.Output.Lock),
		},
		Data: data,
	}
	if obj.Output.Type != nil {
		t := fromWireScript(*obj.Output.Type)
		cell.Output.Type = &t
	}
	return cell, nil
}
