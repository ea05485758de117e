// Package wallet creates custodial keypairs and seals their private keys at
// rest.
package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Keypair is a freshly generated wallet.
type Keypair struct {
	Address    string
	PrivateKey *ecdsa.PrivateKey
}

// Generate creates a new secp256k1 keypair.
func Generate() (Keypair, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("generate key: %w", err)
	}
	return Keypair{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: key,
	}, nil
}

// Bytes returns the raw 32-byte private key.
func (k Keypair) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

// FromBytes rebuilds a keypair from a raw private key.
func FromBytes(raw []byte) (Keypair, error) {
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return Keypair{}, fmt.Errorf("decode private key: %w", err)
	}
	return Keypair{
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PrivateKey: key,
	}, nil
}

// ValidAddress reports whether s is a hex wallet address.
func ValidAddress(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// Canonical returns the checksummed form of a valid address.
func Canonical(s string) string {
	return common.HexToAddress(strings.TrimSpace(s)).Hex()
}
