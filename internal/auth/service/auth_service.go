// Package service implements the login, registration, refresh and logout flows on top of
// the identity service, the user store and the token service.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"social-auth/backend/internal/identity/manager"
	identityservice "social-auth/backend/internal/identity/service"
	"social-auth/backend/internal/platform/saga"
	"social-auth/backend/internal/security"
	userdomain "social-auth/backend/internal/user/domain"
	userrepo "social-auth/backend/internal/user/repository"
)

// AuthResult is returned by Login, Register and RefreshAccess. User is nil for refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	SessionID    string
	UserID       string
	User         *userdomain.User
	Roles        []string
}

// RegisterInput holds the registration form.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	RememberMe  bool
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByUsername(ctx context.Context, username string) (*userdomain.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	Add(ctx context.Context, u *userdomain.User) error
	Delete(ctx context.Context, id string) error
}

// Identities is the identity service surface needed by the auth flows.
// Implemented by *identityservice.IdentityService.
type Identities interface {
	CheckPassword(ctx context.Context, user *userdomain.User, password string) (bool, error)
	CreateIdentityUserFromAppUser(ctx context.Context, user *userdomain.User, password string) (manager.IdentityResult, error)
	DeleteIdentityUser(ctx context.Context, user *userdomain.User) error
	GetRoles(ctx context.Context, user *userdomain.User) ([]string, error)
	SaveToken(ctx context.Context, accessToken, refreshToken string, isLongSession bool) error
	UpdateToken(ctx context.Context, oldRefreshToken, newRefreshToken, sid, uid, oldJti, newJti string) error
	RevokeToken(ctx context.Context, sid, uid string) error
}

// Tokens mints and inspects tokens. Implemented by *security.TokenService.
type Tokens interface {
	CreateAccessToken(userID, name, email string, roles []string, sessionID string) (string, error)
	CreateRefreshToken() (string, error)
	GetValidatedClaimsFromToken(token string) (*security.AccessTokenClaims, error)
	ValidateToken(token string, withExpiration bool) bool
	AccessTTL() time.Duration
}

// AuthService implements the password login, registration, refresh and logout flows.
type AuthService struct {
	users      UserRepo
	identities Identities
	tokens     Tokens
	now        func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(users UserRepo, identities Identities, tokens Tokens) *AuthService {
	return &AuthService{
		users:      users,
		identities: identities,
		tokens:     tokens,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Login checks the password for username and opens a new session.
// Unknown users and wrong passwords fail with the same message.
func (s *AuthService) Login(ctx context.Context, username, password string, rememberMe bool) (*AuthResult, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, unauthorized(MsgInvalidCredentials, nil)
	}
	ok, err := s.identities.CheckPassword(ctx, user, password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, unauthorized(MsgInvalidCredentials, nil)
	}
	roles, err := s.identities.GetRoles(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("get roles: %w", err)
	}
	result, err := s.openSession(ctx, user, roles, rememberMe)
	if err != nil {
		return nil, unauthorized(MsgSessionFailed, err)
	}
	return result, nil
}

// Register creates the domain user and its identity record and opens a session. Each
// persisted step registers a compensation; a later failure undoes them newest first.
// A failed compensation is returned as is (it wraps *identityservice.IdentityOperationError
// when the identity could not be removed).
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	exists, err := s.users.Exists(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if exists {
		return nil, badRequest(MsgAlreadyExists, nil)
	}

	user, err := userdomain.NewUser(uuid.NewString(), in.Username, in.Email, in.FirstName, in.LastName, in.DateOfBirth, s.now())
	if err != nil {
		var fe userdomain.FieldErrors
		if errors.As(err, &fe) {
			return nil, validation(fe)
		}
		return nil, err
	}

	// Compensations outlive request cancellation.
	undoCtx := context.WithoutCancel(ctx)
	sg := saga.New("auth: register")

	created, err := s.identities.CreateIdentityUserFromAppUser(ctx, user, in.Password)
	if err != nil {
		return nil, err
	}
	if !created.Succeeded {
		return nil, validation(identityFieldErrors(created.Errors))
	}
	sg.Add("delete identity", func(ctx context.Context) error {
		return s.identities.DeleteIdentityUser(ctx, user)
	})

	if err := s.users.Add(ctx, user); err != nil {
		if cerr := sg.Compensate(undoCtx); cerr != nil {
			return nil, cerr
		}
		if errors.Is(err, userrepo.ErrDuplicateUser) {
			return nil, badRequest(MsgAlreadyExists, err)
		}
		return nil, badRequest(MsgUserFailed, err)
	}
	sg.Add("delete user", func(ctx context.Context) error {
		return s.users.Delete(ctx, user.ID)
	})

	result, err := s.openRegisteredSession(ctx, user, in.RememberMe)
	if err != nil {
		if cerr := sg.Compensate(undoCtx); cerr != nil {
			return nil, cerr
		}
		return nil, badRequest(MsgSessionFailed, err)
	}
	log.Printf("auth: registered user %s", user.ID)
	return result, nil
}

func (s *AuthService) openRegisteredSession(ctx context.Context, user *userdomain.User, rememberMe bool) (*AuthResult, error) {
	roles, err := s.identities.GetRoles(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("get roles: %w", err)
	}
	return s.openSession(ctx, user, roles, rememberMe)
}

// RefreshAccess rotates the session named by an access token, which may be expired but
// must otherwise be valid, and returns a new token pair for the same session.
func (s *AuthService) RefreshAccess(ctx context.Context, accessToken, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.GetValidatedClaimsFromToken(accessToken)
	if err != nil {
		return nil, unauthorized(MsgInvalidAccessToken, err)
	}
	if !s.tokens.ValidateToken(accessToken, false) {
		return nil, unauthorized(MsgInvalidAccessToken, nil)
	}

	user := &userdomain.User{ID: claims.Uid}
	roles, err := s.identities.GetRoles(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("get roles: %w", err)
	}
	newAccess, err := s.tokens.CreateAccessToken(claims.Uid, claims.Name, claims.Email, roles, claims.Sid)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	newRefresh, err := s.tokens.CreateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}
	newClaims, err := s.tokens.GetValidatedClaimsFromToken(newAccess)
	if err != nil {
		return nil, unauthorized(MsgInvalidAccessToken, err)
	}

	err = s.identities.UpdateToken(ctx, refreshToken, newRefresh, claims.Sid, claims.Uid, claims.Jti, newClaims.Jti)
	if err != nil {
		if errors.Is(err, identityservice.ErrUnauthorized) {
			return nil, unauthorized(MsgInvalidAccessToken, err)
		}
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	return &AuthResult{
		AccessToken:  newAccess,
		RefreshToken: newRefresh,
		ExpiresAt:    s.now().Add(s.tokens.AccessTTL()),
		SessionID:    claims.Sid,
		UserID:       claims.Uid,
		Roles:        newClaims.Roles,
	}, nil
}

// Logout ends the session named by the access token. Expired tokens are accepted.
func (s *AuthService) Logout(ctx context.Context, accessToken string) (*security.AccessTokenClaims, error) {
	claims, err := s.tokens.GetValidatedClaimsFromToken(accessToken)
	if err != nil {
		return nil, unauthorized(MsgInvalidAccessToken, err)
	}
	if !s.tokens.ValidateToken(accessToken, false) {
		return nil, unauthorized(MsgInvalidAccessToken, nil)
	}
	if err := s.identities.RevokeToken(ctx, claims.Sid, claims.Uid); err != nil {
		if errors.Is(err, identityservice.ErrUnauthorized) {
			return nil, unauthorized(MsgInvalidAccessToken, err)
		}
		return nil, fmt.Errorf("revoke session: %w", err)
	}
	return claims, nil
}

// openSession mints a token pair for a new session and persists it.
func (s *AuthService) openSession(ctx context.Context, user *userdomain.User, roles []string, rememberMe bool) (*AuthResult, error) {
	access, err := s.tokens.CreateAccessToken(user.ID, user.FullName(), user.Email, roles, "")
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}
	refresh, err := s.tokens.CreateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}
	if err := s.identities.SaveToken(ctx, access, refresh, rememberMe); err != nil {
		return nil, err
	}
	claims, err := s.tokens.GetValidatedClaimsFromToken(access)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(s.tokens.AccessTTL()),
		SessionID:    claims.Sid,
		UserID:       user.ID,
		User:         user,
		Roles:        roles,
	}, nil
}

// identityFieldErrors groups identity store errors by the form field they concern.
func identityFieldErrors(errs []manager.IdentityError) map[string][]string {
	fields := map[string][]string{}
	for _, e := range errs {
		field := "identity"
		switch e.Code {
		case manager.CodePasswordTooShort, manager.CodePasswordNoUpper, manager.CodePasswordNoLower, manager.CodePasswordNoDigit:
			field = "password"
		case manager.CodeDuplicateUserName, manager.CodeInvalidUserName:
			field = "username"
		}
		fields[field] = append(fields[field], e.Description)
	}
	return fields
}
