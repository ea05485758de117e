package wallet

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// sealVersion prefixes every sealed key and is authenticated as AAD.
const sealVersion byte = 0x01

var hkdfInfo = []byte("hushpay.wallet.seal.v1")

// sealOverhead is version + nonce + tag.
const sealOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// Sealer encrypts private keys with a key derived from the process secret.
type Sealer struct {
	key []byte
}

// NewSealer derives the sealing key from secret with HKDF-SHA256.
func NewSealer(secret string) (*Sealer, error) {
	if len(secret) < 32 {
		return nil, errors.New("sealing secret must be at least 32 characters")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive sealing key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext and binds it to address. The result is base64:
// [version][24-byte nonce][ciphertext+tag].
func (s *Sealer) Seal(plaintext []byte, address string) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 1+len(nonce), sealOverhead+len(plaintext))
	out[0] = sealVersion
	copy(out[1:], nonce[:])
	out = aead.Seal(out, nonce[:], plaintext, aad(sealVersion, address))
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. It fails if the blob was sealed for another address.
func (s *Sealer) Open(sealed string, address string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("decode sealed key: %w", err)
	}
	if len(blob) < sealOverhead {
		return nil, fmt.Errorf("sealed key is %d bytes, minimum is %d", len(blob), sealOverhead)
	}
	if blob[0] != sealVersion {
		return nil, fmt.Errorf("sealed key version %d is not supported", blob[0])
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, blob[1+chacha20poly1305.NonceSizeX:], aad(blob[0], address))
	if err != nil {
		return nil, fmt.Errorf("open sealed key: %w", err)
	}
	return plaintext, nil
}

// SealKeypair seals the private half of k.
func (s *Sealer) SealKeypair(k Keypair) (string, error) {
	return s.Seal(k.Bytes(), k.Address)
}

// OpenKeypair restores a keypair sealed by SealKeypair.
func (s *Sealer) OpenKeypair(sealed, address string) (Keypair, error) {
	raw, err := s.Open(sealed, address)
	if err != nil {
		return Keypair{}, err
	}
	k, err := FromBytes(raw)
	if err != nil {
		return Keypair{}, err
	}
	if k.Address != address {
		return Keypair{}, errors.New("sealed key does not match wallet address")
	}
	return k, nil
}

func aad(version byte, address string) []byte {
	out := make([]byte, 0, 1+len(address))
	out = append(out, version)
	return append(out, address...)
}
