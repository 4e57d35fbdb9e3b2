package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashSecret returns the bcrypt hash of a service key. Operators use it to
// produce the values stored in SERVICE_KEY_HASHES.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckSecret compares a bcrypt hash with its possible plaintext equivalent.
func CheckSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// MatchAnySecret reports whether secret matches one of the configured hashes.
func MatchAnySecret(hashes []string, secret string) bool {
	if strings.TrimSpace(secret) == "" {
		return false
	}
	for _, h := range hashes {
		if CheckSecret(strings.TrimSpace(h), secret) {
			return true
		}
	}
	return false
}
