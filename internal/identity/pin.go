package identity

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/argon2"
)

var pinPattern = regexp.MustCompile(`^\d{4,6}$`)

// ValidPIN reports whether pin has the accepted format.
func ValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

const (
	pinSaltBytes = 16
	pinKeyBytes  = 32
	pinTime      = 1
	pinMemoryKiB = 64 * 1024
	pinThreads   = 2
)

// hashPIN returns "salt:digest" in raw base64. The digest is argon2id since
// the PIN space is tiny.
func hashPIN(pin string) (string, error) {
	if !ValidPIN(pin) {
		return "", ErrInvalidPIN
	}
	salt := make([]byte, pinSaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	digest := argon2.IDKey([]byte(pin), salt, pinTime, pinMemoryKiB, pinThreads, pinKeyBytes)
	return base64.RawStdEncoding.EncodeToString(salt) + ":" + base64.RawStdEncoding.EncodeToString(digest), nil
}

func verifyPIN(hashed, pin string) bool {
	if hashed == "" {
		return false
	}
	parts := strings.SplitN(hashed, ":", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	digest := argon2.IDKey([]byte(pin), salt, pinTime, pinMemoryKiB, pinThreads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(expected, digest) == 1
}
