package security

import "time"

// testSigningKey is an HS256 key for unit tests only. Do not use in production.
const testSigningKey = "test-signing-key-do-not-use-in-production-000"

// NewTestTokenService returns a TokenService using the embedded test key.
// For unit tests only. Callers must not use in production.
func NewTestTokenService() *TokenService {
	return NewTokenService([]byte(testSigningKey), "test-issuer", "test-audience", 15*time.Minute)
}

// WithClock returns a copy of s that reads the current time from now.
// Used by tests to mint tokens that are already expired.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	c := *s
	c.now = now
	return &c
}
