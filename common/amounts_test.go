package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayToBaseUnit(t *testing.T) {
	v, err := DisplayToBaseUnit("100", CKBDecimals)
	assert.NoError(t, err)
	assert.Equal(t, uint64(100*ShannonsPerCKB), v)

	v, err = DisplayToBaseUnit("0.5", CKBDecimals)
	assert.NoError(t, err)
	assert.Equal(t, uint64(50_000_000), v)

	_, err = DisplayToBaseUnit("-1", CKBDecimals)
	assert.Error(t, err)

	_, err = DisplayToBaseUnit("0.000000001", CKBDecimals)
	assert.Error(t, err)

	_, err = DisplayToBaseUnit("abc", CKBDecimals)
	assert.Error(t, err)
}

func TestBaseUnitToDisplay(t *testing.T) {
	assert.Equal(t, "1.5", BaseUnitToDisplay(150_000_000, CKBDecimals))
	assert.Equal(t, "0", BaseUnitToDisplay(0, CKBDecimals))

	// beyond math.MaxInt64, the uint64 must survive intact
	assert.Equal(t, "184467440737.09551615", BaseUnitToDisplay(math.MaxUint64, CKBDecimals))
}
