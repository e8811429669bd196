package repository

import (
	"context"
	"errors"

	"social-auth/backend/internal/session/domain"
)

// ErrStaleSession is returned by Update when the stored refresh token hash no longer
// matches the expected one, i.e. another rotation committed first.
var ErrStaleSession = errors.New("session was modified concurrently")

// Repository defines persistence for sessions.
type Repository interface {
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Add(ctx context.Context, s *domain.Session) error
	// Update writes both hashes, expiry and last-seen in a single write, only if the stored
	// refresh token hash still equals expectedRefreshTokenHash. Otherwise ErrStaleSession.
	Update(ctx context.Context, s *domain.Session, expectedRefreshTokenHash string) error
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
