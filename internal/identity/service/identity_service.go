// Package service coordinates the identity store, the session store and the token hasher:
// credential checks, the mirrored identity record, and session persistence and rotation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	identitydomain "social-auth/backend/internal/identity/domain"
	"social-auth/backend/internal/identity/manager"
	"social-auth/backend/internal/security"
	sessiondomain "social-auth/backend/internal/session/domain"
	sessionrepo "social-auth/backend/internal/session/repository"
	userdomain "social-auth/backend/internal/user/domain"
)

// IdentityStore is the identity store the service needs. Implemented by *manager.Manager.
type IdentityStore interface {
	FindByID(ctx context.Context, id string) (*identitydomain.Identity, error)
	Create(ctx context.Context, i *identitydomain.Identity, password string) (manager.IdentityResult, error)
	Delete(ctx context.Context, i *identitydomain.Identity) (manager.IdentityResult, error)
	CheckPassword(ctx context.Context, i *identitydomain.Identity, password string) (bool, error)
	GetRoles(ctx context.Context, i *identitydomain.Identity) ([]string, error)
	AddToRole(ctx context.Context, i *identitydomain.Identity, role string) (manager.IdentityResult, error)
	RemoveFromRoles(ctx context.Context, i *identitydomain.Identity, roles []string) (manager.IdentityResult, error)
}

// ClaimsReader extracts the claim set of an access token. Implemented by *security.TokenService.
type ClaimsReader interface {
	GetValidatedClaimsFromToken(token string) (*security.AccessTokenClaims, error)
}

// IdentityService is the only writer of session records.
type IdentityService struct {
	identities IdentityStore
	sessions   sessionrepo.Repository
	hasher     security.SecretHasher
	claims     ClaimsReader
	now        func() time.Time
}

// NewIdentityService returns an IdentityService with the given dependencies.
func NewIdentityService(
	identities IdentityStore,
	sessions sessionrepo.Repository,
	hasher security.SecretHasher,
	claims ClaimsReader,
) *IdentityService {
	return &IdentityService{
		identities: identities,
		sessions:   sessions,
		hasher:     hasher,
		claims:     claims,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the service clock; used by tests.
func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	s.now = now
	return s
}

// CheckPassword reports whether password matches the identity mirrored from user.
// A user without an identity record is not an error; it returns false.
func (s *IdentityService) CheckPassword(ctx context.Context, user *userdomain.User, password string) (bool, error) {
	identity, err := s.identities.FindByID(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if identity == nil {
		return false, nil
	}
	return s.identities.CheckPassword(ctx, identity, password)
}

// CreateIdentityUserFromAppUser creates the identity record for user under the same id and
// assigns the default role. Creation and role-assignment failures are reported together;
// when the role cannot be assigned the new identity is removed again so nothing is left behind.
func (s *IdentityService) CreateIdentityUserFromAppUser(ctx context.Context, user *userdomain.User, password string) (manager.IdentityResult, error) {
	identity := &identitydomain.Identity{
		ID:       user.ID,
		UserName: user.Username,
		Email:    user.Email,
	}
	created, err := s.identities.Create(ctx, identity, password)
	if err != nil {
		return manager.IdentityResult{}, err
	}
	if !created.Succeeded {
		return created, nil
	}

	assigned, err := s.identities.AddToRole(ctx, identity, identitydomain.DefaultRole)
	if err == nil && assigned.Succeeded {
		return created, nil
	}
	deleted, derr := s.identities.Delete(ctx, identity)
	if derr != nil || !deleted.Succeeded {
		return manager.IdentityResult{}, &IdentityOperationError{Op: "delete after role assignment", UserID: user.ID, Errors: deleted.Errors, Err: derr}
	}
	if err != nil {
		return manager.IdentityResult{}, err
	}
	return manager.Merge(created, assigned), nil
}

// DeleteIdentityUser removes every role of user's identity and then the identity itself.
// Any failure is returned as *IdentityOperationError. A missing identity is a no-op.
func (s *IdentityService) DeleteIdentityUser(ctx context.Context, user *userdomain.User) error {
	identity, err := s.identities.FindByID(ctx, user.ID)
	if err != nil {
		return &IdentityOperationError{Op: "find", UserID: user.ID, Err: err}
	}
	if identity == nil {
		return nil
	}
	roles, err := s.identities.GetRoles(ctx, identity)
	if err != nil {
		return &IdentityOperationError{Op: "get roles", UserID: user.ID, Err: err}
	}
	removed, err := s.identities.RemoveFromRoles(ctx, identity, roles)
	if err != nil || !removed.Succeeded {
		return &IdentityOperationError{Op: "remove from roles", UserID: user.ID, Errors: removed.Errors, Err: err}
	}
	deleted, err := s.identities.Delete(ctx, identity)
	if err != nil || !deleted.Succeeded {
		return &IdentityOperationError{Op: "delete", UserID: user.ID, Errors: deleted.Errors, Err: err}
	}
	return nil
}

// GetRoles returns the roles of user's identity, or an empty set when there is no identity.
func (s *IdentityService) GetRoles(ctx context.Context, user *userdomain.User) ([]string, error) {
	identity, err := s.identities.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return []string{}, nil
	}
	return s.identities.GetRoles(ctx, identity)
}

// SaveToken persists a new session for a freshly minted token pair. sid, jti and uid are
// read from the access token; only their hashes and the refresh token hash are stored.
func (s *IdentityService) SaveToken(ctx context.Context, accessToken, refreshToken string, isLongSession bool) error {
	claims, err := s.claims.GetValidatedClaimsFromToken(accessToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if strings.TrimSpace(claims.Sid) == "" || strings.TrimSpace(claims.Uid) == "" {
		return ErrUnauthorized
	}
	if _, err := uuid.Parse(claims.Sid); err != nil {
		return fmt.Errorf("%w: malformed session id", ErrUnauthorized)
	}
	session := sessiondomain.NewSession(
		claims.Sid,
		claims.Uid,
		s.hasher.CreateHash(claims.Jti),
		s.hasher.CreateHash(refreshToken),
		isLongSession,
		s.now(),
	)
	if err := s.sessions.Add(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// UpdateToken rotates session sid from (oldRefreshToken, oldJti) to (newRefreshToken, newJti).
//
// The stored hashes and owner must match the old values; on any mismatch the session is
// deleted (replay detection). A session that is already dead is deleted too. The write is
// conditional on the old refresh token hash, so of two concurrent rotations with the same
// token only one commits; the other re-reads, sees the new hash and takes the replay path.
func (s *IdentityService) UpdateToken(ctx context.Context, oldRefreshToken, newRefreshToken, sid, uid, oldJti, newJti string) error {
	for _, v := range []string{oldRefreshToken, newRefreshToken, sid, uid, oldJti, newJti} {
		if strings.TrimSpace(v) == "" {
			return ErrUnauthorized
		}
	}
	oldRefreshHash := s.hasher.CreateHash(oldRefreshToken)
	oldJtiHash := s.hasher.CreateHash(oldJti)
	newRefreshHash := s.hasher.CreateHash(newRefreshToken)
	newJtiHash := s.hasher.CreateHash(newJti)

	for attempt := 0; attempt < 2; attempt++ {
		session, err := s.sessions.GetByID(ctx, sid)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		if session == nil {
			return ErrSessionNotFound
		}

		if !security.HashEqual(oldRefreshHash, session.RefreshTokenHash()) ||
			!security.HashEqual(oldJtiHash, session.JtiHash()) ||
			uid != session.UserID() {
			log.Printf("identity: refresh token replay on session %s; revoking", sid)
			return s.revoke(ctx, sid, ErrTokenReplay)
		}

		if err := session.Refresh(newJtiHash, newRefreshHash, s.now()); err != nil {
			if errors.Is(err, sessiondomain.ErrSessionExpired) {
				return s.revoke(ctx, sid, ErrSessionExpired)
			}
			return err
		}

		err = s.sessions.Update(ctx, session, oldRefreshHash)
		if errors.Is(err, sessionrepo.ErrStaleSession) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return nil
	}
	return s.revoke(ctx, sid, ErrTokenReplay)
}

// RevokeToken deletes session sid if it belongs to uid.
func (s *IdentityService) RevokeToken(ctx context.Context, sid, uid string) error {
	if strings.TrimSpace(sid) == "" || strings.TrimSpace(uid) == "" {
		return ErrUnauthorized
	}
	session, err := s.sessions.GetByID(ctx, sid)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.UserID() != uid {
		return ErrUnauthorized
	}
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// revoke deletes the session and returns reason, joined with the delete failure if any.
func (s *IdentityService) revoke(ctx context.Context, sid string, reason error) error {
	if err := s.sessions.Delete(ctx, sid); err != nil {
		return errors.Join(reason, fmt.Errorf("delete session: %w", err))
	}
	return reason
}
