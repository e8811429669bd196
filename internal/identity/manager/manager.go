// Package manager is the identity store: credential records, password policy and role
// membership over the identity repository.
package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"social-auth/backend/internal/identity/domain"
	"social-auth/backend/internal/identity/repository"
	"social-auth/backend/internal/security"
)

// MinPasswordLength is the shortest password the policy accepts.
const MinPasswordLength = 8

// PasswordHasher hashes and verifies passwords. Implemented by *security.Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// Manager implements the identity store operations used by the identity service.
type Manager struct {
	repo   repository.Repository
	hasher PasswordHasher
	now    func() time.Time
}

// New returns a Manager over repo that hashes passwords with hasher.
func New(repo repository.Repository, hasher PasswordHasher) *Manager {
	return &Manager{repo: repo, hasher: hasher, now: func() time.Time { return time.Now().UTC() }}
}

// FindByID returns the identity for id, or nil if not found.
func (m *Manager) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	return m.repo.GetByID(ctx, id)
}

// Create validates the user name and password against policy, hashes the password and
// persists the identity. i.PasswordHash and i.CreatedAt are set on success.
func (m *Manager) Create(ctx context.Context, i *domain.Identity, password string) (IdentityResult, error) {
	var errs []IdentityError
	if strings.TrimSpace(i.UserName) == "" {
		errs = append(errs, IdentityError{Code: CodeInvalidUserName, Description: "User name is required."})
	}
	errs = append(errs, validatePassword(password)...)
	if len(errs) > 0 {
		return Failed(errs...), nil
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return IdentityResult{}, fmt.Errorf("hash password: %w", err)
	}
	i.PasswordHash = hash
	if i.CreatedAt.IsZero() {
		i.CreatedAt = m.now()
	}
	if err := m.repo.Create(ctx, i); err != nil {
		if errors.Is(err, repository.ErrDuplicateIdentity) {
			return Failed(IdentityError{
				Code:        CodeDuplicateUserName,
				Description: fmt.Sprintf("User name '%s' is already taken.", i.UserName),
			}), nil
		}
		return IdentityResult{}, fmt.Errorf("create identity: %w", err)
	}
	return Success, nil
}

// Delete removes the identity.
func (m *Manager) Delete(ctx context.Context, i *domain.Identity) (IdentityResult, error) {
	if err := m.repo.Delete(ctx, i.ID); err != nil {
		return IdentityResult{}, fmt.Errorf("delete identity: %w", err)
	}
	return Success, nil
}

// CheckPassword reports whether password matches the identity's stored hash.
// A malformed stored hash is an error; a mismatch is not.
func (m *Manager) CheckPassword(ctx context.Context, i *domain.Identity, password string) (bool, error) {
	if i == nil || i.PasswordHash == "" {
		return false, nil
	}
	err := m.hasher.Compare(i.PasswordHash, password)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, security.ErrPasswordMismatch) {
		return false, nil
	}
	return false, err
}

// GetRoles returns the identity's roles.
func (m *Manager) GetRoles(ctx context.Context, i *domain.Identity) ([]string, error) {
	return m.repo.GetRoles(ctx, i.ID)
}

// AddToRole assigns a defined role to the identity.
func (m *Manager) AddToRole(ctx context.Context, i *domain.Identity, role string) (IdentityResult, error) {
	if !domain.IsKnownRole(role) {
		return Failed(IdentityError{Code: CodeInvalidRoleName, Description: fmt.Sprintf("Role '%s' does not exist.", role)}), nil
	}
	existing, err := m.repo.GetByID(ctx, i.ID)
	if err != nil {
		return IdentityResult{}, fmt.Errorf("add to role: %w", err)
	}
	if existing == nil {
		return Failed(IdentityError{Code: CodeIdentityNotFound, Description: "Identity does not exist."}), nil
	}
	if err := m.repo.AddRole(ctx, i.ID, role); err != nil {
		return IdentityResult{}, fmt.Errorf("add to role: %w", err)
	}
	return Success, nil
}

// RemoveFromRoles removes every listed role. Fails with UserNotInRole when the identity
// held none of them; an empty list succeeds.
func (m *Manager) RemoveFromRoles(ctx context.Context, i *domain.Identity, roles []string) (IdentityResult, error) {
	if len(roles) == 0 {
		return Success, nil
	}
	n, err := m.repo.RemoveRoles(ctx, i.ID, roles)
	if err != nil {
		return IdentityResult{}, fmt.Errorf("remove from roles: %w", err)
	}
	if n == 0 {
		return Failed(IdentityError{Code: CodeUserNotInRole, Description: "Identity is not in the given roles."}), nil
	}
	return Success, nil
}

func validatePassword(password string) []IdentityError {
	var errs []IdentityError
	if len(password) < MinPasswordLength {
		errs = append(errs, IdentityError{
			Code:        CodePasswordTooShort,
			Description: fmt.Sprintf("Passwords must be at least %d characters.", MinPasswordLength),
		})
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		errs = append(errs, IdentityError{Code: CodePasswordNoUpper, Description: "Passwords must have at least one uppercase letter."})
	}
	if !lower {
		errs = append(errs, IdentityError{Code: CodePasswordNoLower, Description: "Passwords must have at least one lowercase letter."})
	}
	if !digit {
		errs = append(errs, IdentityError{Code: CodePasswordNoDigit, Description: "Passwords must have at least one digit."})
	}
	return errs
}
