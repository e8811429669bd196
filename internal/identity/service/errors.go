package service

import (
	"errors"
	"fmt"
	"strings"

	"social-auth/backend/internal/identity/manager"
)

// ErrUnauthorized is matched (errors.Is) by every session rejection the service reports.
var ErrUnauthorized = errors.New("unauthorized")

// Session rejection reasons. Each wraps ErrUnauthorized.
var (
	ErrSessionNotFound = fmt.Errorf("%w: session not found", ErrUnauthorized)
	ErrTokenReplay     = fmt.Errorf("%w: token does not match session; session revoked", ErrUnauthorized)
	ErrSessionExpired  = fmt.Errorf("%w: session expired; session revoked", ErrUnauthorized)
)

// IdentityOperationError reports a failed compensating action on the identity store. The
// user and identity stores may now disagree; callers must not retry.
type IdentityOperationError struct {
	Op     string
	UserID string
	Errors []manager.IdentityError
	Err    error
}

func (e *IdentityOperationError) Error() string {
	var b strings.Builder
	b.WriteString("identity operation ")
	b.WriteString(e.Op)
	b.WriteString(" failed for user ")
	b.WriteString(e.UserID)
	for _, ie := range e.Errors {
		b.WriteString("; ")
		b.WriteString(ie.Code)
		if ie.Description != "" {
			b.WriteString(": ")
			b.WriteString(ie.Description)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *IdentityOperationError) Unwrap() error {
	return e.Err
}
