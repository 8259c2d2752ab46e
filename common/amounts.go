package common

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// CKB uses 8 decimal places; 1 CKB = 1e8 shannons.
	CKBDecimals    = 8
	ShannonsPerCKB = 100_000_000
	// A plain secp256k1 cell needs at least 61 CKB of capacity to exist.
	MinCellCapacity = 61 * ShannonsPerCKB
	// A token cell additionally stores a type script and a 16-byte amount.
	MinTokenCellCapacity = 142 * ShannonsPerCKB
)

// DisplayToBaseUnit converts a display-unit amount string ("100", "0.5") into
// the asset's smallest unit. Rejects negative amounts and amounts with more
// fractional digits than the asset carries.
func DisplayToBaseUnit(amount string, decimals int32) (uint64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("malformed amount %q: %v", amount, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative amount %q", amount)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}
	if !scaled.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %q out of range", amount)
	}
	return scaled.BigInt().Uint64(), nil
}

// BaseUnitToDisplay renders a smallest-unit amount as a display-unit string.
func BaseUnitToDisplay(amount uint64, decimals int32) string {
	// via big.Int: amounts above math.MaxInt64 must not truncate
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0).Shift(-decimals).String()
}
