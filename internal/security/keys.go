package security

import (
	"encoding/base64"
	"errors"
	"os"
	"strings"
)

// ErrInvalidKey is returned when the signing key is missing, unreadable, or too short.
var ErrInvalidKey = errors.New("invalid key")

// MinSigningKeyLen is the minimum HS256 key length in bytes.
const MinSigningKeyLen = 32

const base64KeyPrefix = "base64:"

// LoadSigningKey resolves the HS256 signing key from config. s may be
// "base64:<std-encoded bytes>", a path to a file holding the key, or the raw key itself.
// Surrounding whitespace is ignored in every form.
func LoadSigningKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrInvalidKey
	}
	var key []byte
	switch {
	case strings.HasPrefix(s, base64KeyPrefix):
		b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s, base64KeyPrefix))
		if err != nil {
			return nil, ErrInvalidKey
		}
		key = b
	case isFile(s):
		b, err := os.ReadFile(s)
		if err != nil {
			return nil, err
		}
		key = []byte(strings.TrimSpace(string(b)))
	default:
		key = []byte(s)
	}
	if len(key) < MinSigningKeyLen {
		return nil, ErrInvalidKey
	}
	return key, nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
