package domain

import (
	"errors"
	"time"
)

const (
	// LongSessionWindow is the rolling lifetime of a "remember me" session.
	LongSessionWindow = 14 * 24 * time.Hour
	// ShortSessionWindow is the rolling lifetime of a regular session.
	ShortSessionWindow = 12 * time.Hour
	// MaxSessionLifetime caps every session regardless of how often it is refreshed.
	MaxSessionLifetime = 90 * 24 * time.Hour
)

// ErrSessionExpired is returned by Refresh when the session is already dead.
var ErrSessionExpired = errors.New("session expired")

// Session is one persisted login session. It stores only hashes of the current jti and
// refresh token. Fields are read-only outside this package; Refresh is the only mutator,
// so both hashes always move together.
type Session struct {
	id               string
	userID           string
	jtiHash          string
	refreshTokenHash string
	isLongSession    bool
	expiresAt        time.Time
	maxExpiry        time.Time
	lastSeenAt       time.Time
	createdAt        time.Time
}

// NewSession creates a session at now. The rolling expiry depends on isLongSession;
// the absolute cap is now + MaxSessionLifetime and never changes afterwards.
func NewSession(id, userID, jtiHash, refreshTokenHash string, isLongSession bool, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		id:               id,
		userID:           userID,
		jtiHash:          jtiHash,
		refreshTokenHash: refreshTokenHash,
		isLongSession:    isLongSession,
		expiresAt:        now.Add(window(isLongSession)),
		maxExpiry:        now.Add(MaxSessionLifetime),
		lastSeenAt:       now,
		createdAt:        now,
	}
}

// Restore rebuilds a session from stored values. Repositories use it to load rows, and
// tests use it to build sessions with arbitrary timestamps. expiresAt is clamped to maxExpiry.
func Restore(id, userID, jtiHash, refreshTokenHash string, isLongSession bool, expiresAt, maxExpiry, lastSeenAt, createdAt time.Time) *Session {
	if expiresAt.After(maxExpiry) {
		expiresAt = maxExpiry
	}
	return &Session{
		id:               id,
		userID:           userID,
		jtiHash:          jtiHash,
		refreshTokenHash: refreshTokenHash,
		isLongSession:    isLongSession,
		expiresAt:        expiresAt.UTC(),
		maxExpiry:        maxExpiry.UTC(),
		lastSeenAt:       lastSeenAt.UTC(),
		createdAt:        createdAt.UTC(),
	}
}

func (s *Session) ID() string { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) JtiHash() string { return s.jtiHash }
func (s *Session) RefreshTokenHash() string { return s.refreshTokenHash }
func (s *Session) IsLongSession() bool { return s.isLongSession }
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }
func (s *Session) MaxExpiry() time.Time { return s.maxExpiry }
func (s *Session) LastSeenAt() time.Time { return s.lastSeenAt }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// IsExpired reports whether either the rolling expiry or the absolute cap has passed.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.expiresAt) || !now.Before(s.maxExpiry)
}

// Refresh rotates the session to a new jti and refresh token hash and slides the
// rolling expiry, never past MaxExpiry. A dead session is left untouched and
// ErrSessionExpired is returned.
func (s *Session) Refresh(newJtiHash, newRefreshTokenHash string, now time.Time) error {
	if s.IsExpired(now) {
		return ErrSessionExpired
	}
	now = now.UTC()
	expiresAt := now.Add(window(s.isLongSession))
	if expiresAt.After(s.maxExpiry) {
		expiresAt = s.maxExpiry
	}
	s.jtiHash = newJtiHash
	s.refreshTokenHash = newRefreshTokenHash
	s.expiresAt = expiresAt
	s.lastSeenAt = now
	return nil
}

func window(isLongSession bool) time.Duration {
	if isLongSession {
		return LongSessionWindow
	}
	return ShortSessionWindow
}
