package ckbman

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/fiberpay/ckb-custody-go/common"
)

// Network selects the address prefix.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

func (n Network) hrp() string {
	if n == Mainnet {
		return "ckb"
	}
	return "ckt"
}

// full-address format byte, followed by code_hash | hash_type | args
const fullAddressFormat = 0x00

var hashTypeBytes = map[string]byte{
	HashTypeData:  0x00,
	HashTypeType:  0x01,
	HashTypeData1: 0x02,
}

// EncodeAddress renders a lock script as a full bech32m address for the given
// network.
func EncodeAddress(lock Script, network Network) (string, error) {
	hashTypeByte, ok := hashTypeBytes[lock.HashType]
	if !ok {
		return "", fmt.Errorf("unknown hash type %q", lock.HashType)
	}
	codeHash, err := hex.DecodeString(common.Trim0xPrefix(lock.CodeHash))
	if err != nil || len(codeHash) != 32 {
		return "", fmt.Errorf("malformed code hash %q", lock.CodeHash)
	}
	args, err := ScriptArgsBytes(lock)
	if err != nil {
		return "", err
	}

	payload := make([]byte, 0, 2+len(codeHash)+len(args))
	payload = append(payload, fullAddressFormat)
	payload = append(payload, codeHash...)
	payload = append(payload, hashTypeByte)
	payload = append(payload, args...)

	words, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.EncodeM(network.hrp(), words)
}

// DecodeAddress parses a full address back into its lock script, verifying it
// belongs to the given network.
func DecodeAddress(address string, network Network) (Script, error) {
	hrp, words, err := bech32.DecodeNoLimit(address)
	if err != nil {
		return Script{}, fmt.Errorf("malformed address %q: %v", address, err)
	}
	if hrp != network.hrp() {
		return Script{}, fmt.Errorf("address %q is not a %s address", address, network)
	}
	payload, err := bech32.ConvertBits(words, 5, 8, false)
	if err != nil {
		return Script{}, fmt.Errorf("malformed address payload: %v", err)
	}
	// format byte + 32-byte code hash + hash type byte, args may be empty
	if len(payload) < 34 || payload[0] != fullAddressFormat {
		return Script{}, fmt.Errorf("unsupported address format in %q", address)
	}
	var hashType string
	for name, b := range hashTypeBytes {
		if b == payload[33] {
			hashType = name
		}
	}
	if hashType == "" {
		return Script{}, fmt.Errorf("unknown hash type byte %#x in %q", payload[33], address)
	}
	return Script{
		CodeHash: common.Prepend0xPrefix(hex.EncodeToString(payload[1:33])),
		HashType: hashType,
		Args:     common.Prepend0xPrefix(hex.EncodeToString(payload[34:])),
	}, nil
}
