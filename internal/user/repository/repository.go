package repository

import (
	"context"
	"errors"

	"social-auth/backend/internal/user/domain"
)

// ErrDuplicateUser is returned by Add when the username or email is already taken.
var ErrDuplicateUser = errors.New("username or email already exists")

// Repository defines persistence for domain users. Lookups by username and email are
// case-insensitive.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Exists reports whether a user with the given username or email exists.
	Exists(ctx context.Context, username, email string) (bool, error)
	Add(ctx context.Context, u *domain.User) error
	// Delete removes the user. Deleting a missing user is not an error.
	Delete(ctx context.Context, id string) error
}
