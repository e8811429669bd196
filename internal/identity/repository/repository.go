package repository

import (
	"context"
	"errors"

	"social-auth/backend/internal/identity/domain"
)

// ErrDuplicateIdentity is returned by Create when the id or user name is already taken.
var ErrDuplicateIdentity = errors.New("identity already exists")

// Repository defines persistence for identities and their role set.
type Repository interface {
	// GetByID returns the identity for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	Create(ctx context.Context, i *domain.Identity) error
	// Delete removes the identity. Deleting a missing identity is not an error.
	Delete(ctx context.Context, id string) error
	// GetRoles returns the identity's roles sorted by name; empty when it has none.
	GetRoles(ctx context.Context, id string) ([]string, error)
	AddRole(ctx context.Context, id, role string) error
	// RemoveRoles removes the given roles and returns how many were removed.
	RemoveRoles(ctx context.Context, id string, roles []string) (int64, error)
}
