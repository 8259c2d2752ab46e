// Package signers exposes the managed key as a capability: the rest of the
// backend only ever asks for the current signer and its address, never for key
// material. Key custody hardening (HSM, threshold schemes) would slot in
// behind the Signer interface.
package signers

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/blake2b"

	"github.com/fiberpay/ckb-custody-go/ckbman"
	"github.com/fiberpay/ckb-custody-go/common"
)

// Secp256k1Blake160CodeHash is the system lock every signer-derived script
// points at.
const Secp256k1Blake160CodeHash = "0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8"

// Signer is the "current signer" capability consumed by the wallet.
type Signer interface {
	// LockScript returns the ownership predicate of the managed key.
	LockScript() ckbman.Script

	// Address returns the human-readable encoding of the lock script.
	Address() string

	// Sign produces a 65-byte recoverable signature over a 32-byte digest.
	Sign(digest [32]byte) ([]byte, error)
}

// LocalSigner holds the private key in process memory.
type LocalSigner struct {
	privKey *btcec.PrivateKey
	lock    ckbman.Script
	address string
}

// NewLocalSigner builds a signer from a 32-byte private key in hex
// (0x-prefixed or bare) for the given network.
func NewLocalSigner(privKeyHex string, network ckbman.Network) (*LocalSigner, error) {
	raw, err := hex.DecodeString(common.Trim0xPrefix(privKeyHex))
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("private key must be 32 hex-encoded bytes")
	}
	privKey, _ := btcec.PrivKeyFromBytes(raw)

	args := Blake160(privKey.PubKey().SerializeCompressed())
	lock := ckbman.Script{
		CodeHash: Secp256k1Blake160CodeHash,
		HashType: ckbman.HashTypeType,
		Args:     common.Prepend0xPrefix(hex.EncodeToString(args)),
	}
	address, err := ckbman.EncodeAddress(lock, network)
	if err != nil {
		return nil, err
	}
	return &LocalSigner{privKey: privKey, lock: lock, address: address}, nil
}

func (s *LocalSigner) LockScript() ckbman.Script {
	return s.lock
}

func (s *LocalSigner) Address() string {
	return s.address
}

// Sign returns r || s || recovery_id, the witness layout the system lock
// expects.
func (s *LocalSigner) Sign(digest [32]byte) ([]byte, error) {
	compact := ecdsa.SignCompact(s.privKey, digest[:], false)
	// SignCompact puts the header byte first; the lock wants it last.
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0] - 27
	return sig, nil
}

// Blake160 is the first 20 bytes of the blake2b-256 digest, the standard
// short-hash used in lock args.
func Blake160(data []byte) []byte {
	digest := blake2b.Sum256(data)
	return digest[:20]
}

// TxDigest derives the 32-byte signing digest over a serialized transaction.
func TxDigest(serialized []byte) [32]byte {
	return blake2b.Sum256(serialized)
}
