package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

const (
	scryptAlgo   = "scrypt"
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltLen      = 16
)

// HashPassword derives an scrypt hash in the self-describing form
// "scrypt:<hex salt>:<hex key>" so the algorithm can be migrated later.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%s", scryptAlgo, hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// VerifyPassword recomputes the stored derivation and compares in constant
// time. Malformed or unknown-algorithm hashes fail closed.
func VerifyPassword(encoded, password string) bool {
	parts := strings.Split(encoded, ":")
	if len(parts) != 3 || parts[0] != scryptAlgo {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(parts[2])
	if err != nil || len(stored) != scryptKeyLen {
		return false
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(stored, key) == 1
}
