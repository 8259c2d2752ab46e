/*
Package ckbman holds the cell-model primitives of the CKB ledger: scripts,
cells, transactions and the address encoding. The rpc subpackage talks to the
node, the wallet subpackage builds and signs transactions on top of both.
*/
package ckbman

import (
	"encoding/hex"
	"fmt"

	"github.com/gaze-network/uint128"

	"github.com/fiberpay/ckb-custody-go/common"
)

// HashType values a script can carry.
const (
	HashTypeType  = "type"
	HashTypeData  = "data"
	HashTypeData1 = "data1"
)

// DepType values of a cell dep.
const (
	DepTypeCode     = "code"
	DepTypeDepGroup = "dep_group"
)

// Script is a lock or type script. All hash/args fields are 0x-prefixed hex.
type Script struct {
	CodeHash string `json:"code_hash"`
	HashType string `json:"hash_type"`
	Args     string `json:"args"`
}

func (s Script) Equal(other Script) bool {
	return s.CodeHash == other.CodeHash && s.HashType == other.HashType && s.Args == other.Args
}

type OutPoint struct {
	TxHash string `json:"tx_hash"`
	Index  uint32 `json:"index"`
}

type CellDep struct {
	OutPoint OutPoint `json:"out_point"`
	DepType  string   `json:"dep_type"`
}

// CellOutput is the declared part of a cell: capacity in shannons, the owner
// lock, and an optional type script identifying a token class.
type CellOutput struct {
	Capacity uint64  `json:"capacity"`
	Lock     Script  `json:"lock"`
	Type     *Script `json:"type,omitempty"`
}

// Cell is a live output: its location, declared output and data payload.
type Cell struct {
	OutPoint OutPoint
	Output   CellOutput
	Data     []byte
}

// TokenAmount decodes the cell data as a token balance: a 16-byte
// little-endian unsigned integer, the standard user-defined-token encoding.
func (c Cell) TokenAmount() (uint128.Uint128, error) {
	if len(c.Data) < 16 {
		return uint128.Zero, fmt.Errorf("cell data too short for a token amount: %d bytes", len(c.Data))
	}
	return uint128.FromBytes(c.Data[:16]), nil
}

// EncodeTokenAmount renders a token balance as 16-byte little-endian cell data.
func EncodeTokenAmount(amount uint128.Uint128) []byte {
	buf := make([]byte, 16)
	amount.PutBytes(buf)
	return buf
}

// CellInput references a cell being consumed.
type CellInput struct {
	PreviousOutput OutPoint `json:"previous_output"`
	Since          uint64   `json:"since"`
}

// Transaction is a draft or complete ledger transaction.
type Transaction struct {
	Version     uint32       `json:"version"`
	CellDeps    []CellDep    `json:"cell_deps"`
	Inputs      []CellInput  `json:"inputs"`
	Outputs     []CellOutput `json:"outputs"`
	OutputsData [][]byte     `json:"outputs_data"`
	Witnesses   [][]byte     `json:"witnesses"`
}

// AddOutput appends an output together with its data payload, keeping the two
// slices index-aligned.
func (tx *Transaction) AddOutput(output CellOutput, data []byte) {
	tx.Outputs = append(tx.Outputs, output)
	tx.OutputsData = append(tx.OutputsData, data)
}

// OutputCapacity sums the declared capacity of all outputs.
func (tx *Transaction) OutputCapacity() uint64 {
	var total uint64
	for _, out := range tx.Outputs {
		total += out.Capacity
	}
	return total
}

// HasCellDep reports whether dep is already attached.
func (tx *Transaction) HasCellDep(dep CellDep) bool {
	for _, d := range tx.CellDeps {
		if d == dep {
			return true
		}
	}
	return false
}

// ScriptArgsBytes decodes the args hex of a script.
func ScriptArgsBytes(s Script) ([]byte, error) {
	b, err := hex.DecodeString(common.Trim0xPrefix(s.Args))
	if err != nil {
		return nil, fmt.Errorf("malformed script args %q: %v", s.Args, err)
	}
	return b, nil
}
