package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SecretHasher produces one-way digests of token secrets (refresh tokens, jti values)
// so sessions never store them in plaintext.
type SecretHasher interface {
	CreateHash(secret string) string
}

// SHA256Hasher is the SecretHasher used by the session store.
type SHA256Hasher struct{}

// CreateHash returns the hex-encoded SHA-256 digest of secret.
func (SHA256Hasher) CreateHash(secret string) string {
	return HashSecret(secret)
}

// HashSecret returns a SHA-256 hash of the secret string, hex-encoded.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// SecretHashEqual performs constant-time comparison of the provided secret's hash
// with the stored hash. An empty secret or stored hash never matches.
func SecretHashEqual(providedSecret, storedHash string) bool {
	if providedSecret == "" || storedHash == "" {
		return false
	}
	providedHash := HashSecret(providedSecret)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}

// HashEqual compares two hex digests in constant time.
func HashEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
