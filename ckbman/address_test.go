package ckbman

import (
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLock = Script{
	CodeHash: "0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8",
	HashType: HashTypeType,
	Args:     "0x0011223344556677889900112233445566778899",
}

func TestAddressRoundTrip(t *testing.T) {
	for _, network := range []Network{Mainnet, Testnet} {
		address, err := EncodeAddress(testLock, network)
		require.NoError(t, err)

		decoded, err := DecodeAddress(address, network)
		require.NoError(t, err)
		assert.True(t, testLock.Equal(decoded), "round trip on %s", network)
	}
}

func TestAddressNetworkPrefix(t *testing.T) {
	mainnet, err := EncodeAddress(testLock, Mainnet)
	require.NoError(t, err)
	testnet, err := EncodeAddress(testLock, Testnet)
	require.NoError(t, err)

	assert.Equal(t, "ckb", mainnet[:3])
	assert.Equal(t, "ckt", testnet[:3])

	// an address never decodes under the other network
	_, err = DecodeAddress(mainnet, Testnet)
	assert.Error(t, err)
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	_, err := DecodeAddress("not-an-address", Testnet)
	assert.Error(t, err)
}

func TestEncodeAddressRejectsBadScript(t *testing.T) {
	_, err := EncodeAddress(Script{CodeHash: "0x1234", HashType: HashTypeType}, Testnet)
	assert.Error(t, err, "short code hash")

	_, err = EncodeAddress(Script{CodeHash: testLock.CodeHash, HashType: "bogus"}, Testnet)
	assert.Error(t, err, "unknown hash type")
}

func TestTokenAmountRoundTrip(t *testing.T) {
	amount := uint128.From64(1_000_000_000_000)
	cell := Cell{Data: EncodeTokenAmount(amount)}

	decoded, err := cell.TokenAmount()
	require.NoError(t, err)
	assert.True(t, amount.Equals(decoded))

	_, err = Cell{Data: []byte{1, 2, 3}}.TokenAmount()
	assert.Error(t, err, "short cell data")
}
