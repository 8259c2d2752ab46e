package transfer

import (
	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/common"
)

// TokenConfig describes one transferable token class.
type TokenConfig struct {
	// TypeScript identifies the class on chain.
	TypeScript ckbman.Script

	// CellDep locates the token's type script code; attached to every
	// transfer of the class.
	CellDep ckbman.CellDep

	// Decimals converts display-unit amounts to the token's smallest unit.
	Decimals int32
}

type Config struct {
	Network ckbman.Network

	// Tokens maps the externally visible token class key (the type script
	// hash) to its on-chain description.
	Tokens map[string]TokenConfig
}

// nativeDecimals is fixed by the chain.
const nativeDecimals = common.CKBDecimals
