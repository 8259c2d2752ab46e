package signers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiberpay/ckb-custody-go/ckbman"
)

const testPrivKey = "0x1111111111111111111111111111111111111111111111111111111111111111"

func TestLocalSignerDerivation(t *testing.T) {
	s, err := NewLocalSigner(testPrivKey, ckbman.Testnet)
	require.NoError(t, err)

	lock := s.LockScript()
	assert.Equal(t, Secp256k1Blake160CodeHash, lock.CodeHash)
	assert.Equal(t, ckbman.HashTypeType, lock.HashType)

	args, err := ckbman.ScriptArgsBytes(lock)
	require.NoError(t, err)
	assert.Len(t, args, 20)

	assert.True(t, strings.HasPrefix(s.Address(), "ckt1"))

	// derivation is deterministic
	s2, err := NewLocalSigner(testPrivKey, ckbman.Testnet)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), s2.Address())

	// address round-trips through the codec back to the same lock
	decoded, err := ckbman.DecodeAddress(s.Address(), ckbman.Testnet)
	require.NoError(t, err)
	assert.True(t, lock.Equal(decoded))
}

func TestLocalSignerRejectsBadKeys(t *testing.T) {
	_, err := NewLocalSigner("0x1234", ckbman.Testnet)
	assert.Error(t, err)

	_, err = NewLocalSigner("zz", ckbman.Testnet)
	assert.Error(t, err)
}

func TestSignShape(t *testing.T) {
	s, err := NewLocalSigner(testPrivKey, ckbman.Mainnet)
	require.NoError(t, err)

	sig, err := s.Sign([32]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, sig, 65)
	assert.Less(t, sig[64], byte(4), "recovery id in the low range")
}
