package service

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies a flow failure for the transport layer.
type Kind int

const (
	// KindUnauthorized covers bad credentials, bad tokens and rejected sessions.
	KindUnauthorized Kind = iota + 1
	// KindBadRequest covers duplicate accounts and persistence failures after valid input.
	KindBadRequest
	// KindValidation carries field-level errors.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindBadRequest:
		return "bad_request"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Client-facing messages. They do not say which check failed.
const (
	MsgInvalidCredentials = "invalid username or password"
	MsgInvalidAccessToken = "invalid access token"
	MsgAlreadyExists      = "username or email already exists"
	MsgSessionFailed      = "unable to create session"
	MsgUserFailed         = "unable to create user"
	MsgValidationFailed   = "one or more validation errors occurred"
)

// AuthError is a business-rule failure of an auth flow. Err, when set, is the internal
// cause and is never shown to clients.
type AuthError struct {
	Kind    Kind
	Message string
	Fields  map[string][]string
	Err     error
}

func (e *AuthError) Error() string {
	msg := e.Kind.String() + ": " + e.Message
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+strings.Join(e.Fields[k], ", "))
		}
		msg += " (" + strings.Join(parts, "; ") + ")"
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *AuthError of the given kind.
func IsKind(err error, kind Kind) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Kind == kind
}

func unauthorized(msg string, cause error) *AuthError {
	return &AuthError{Kind: KindUnauthorized, Message: msg, Err: cause}
}

func badRequest(msg string, cause error) *AuthError {
	return &AuthError{Kind: KindBadRequest, Message: msg, Err: cause}
}

func validation(fields map[string][]string) *AuthError {
	return &AuthError{Kind: KindValidation, Message: MsgValidationFailed, Fields: fields}
}
