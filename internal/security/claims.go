package security

import (
	"errors"
	"strings"
)

// Claim type names as they appear in the access token claim set.
const (
	ClaimSessionID  = "sid"
	ClaimJTI        = "jti"
	ClaimUserID     = "uid"
	ClaimSubject    = "sub"
	ClaimName       = "name"
	ClaimEmail      = "email"
	ClaimRole       = "role"
	ClaimIssuedAt   = "iat"
	ClaimExpiration = "exp"
	ClaimNotBefore  = "nbf"
	ClaimIssuer     = "iss"
	ClaimAudience   = "aud"
)

// ErrInvalidClaims is matched (errors.Is) by every *ClaimsError.
var ErrInvalidClaims = errors.New("invalid access token claims")

// Claim is one (type, value) entry of a token's flattened claim set.
type Claim struct {
	Type  string
	Value string
}

// ClaimsError reports every reason a claim set was rejected.
type ClaimsError struct {
	Missing         []string
	NoRoles         bool
	SubjectMismatch bool
}

func (e *ClaimsError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing claims: "+strings.Join(e.Missing, ", "))
	}
	if e.NoRoles {
		parts = append(parts, "no roles")
	}
	if e.SubjectMismatch {
		parts = append(parts, "uid does not match sub")
	}
	return ErrInvalidClaims.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ClaimsError) Is(target error) bool {
	return target == ErrInvalidClaims
}

// AccessTokenClaims is the validated claim set of an access token. It is rebuilt
// from the token on every request and never persisted.
type AccessTokenClaims struct {
	Sid   string
	Jti   string
	Uid   string
	Sub   string
	Name  string
	Email string
	Roles []string
	Iat   string
	Exp   string
	Nbf   string
	Iss   string
	Aud   string
}

// requiredClaims is the order missing claims are reported in.
var requiredClaims = []string{
	ClaimJTI, ClaimSessionID, ClaimUserID, ClaimName, ClaimEmail,
	ClaimIssuedAt, ClaimExpiration, ClaimNotBefore, ClaimIssuer, ClaimAudience, ClaimSubject,
}

// NewAccessTokenClaims builds AccessTokenClaims from a flat claim list. The first value
// of each claim type wins; every role claim is collected. All failures are reported
// together in a single *ClaimsError.
func NewAccessTokenClaims(claims []Claim) (*AccessTokenClaims, error) {
	first := make(map[string]string, len(requiredClaims))
	var roles []string
	for _, c := range claims {
		if c.Type == ClaimRole {
			if v := strings.TrimSpace(c.Value); v != "" {
				roles = append(roles, v)
			}
			continue
		}
		if _, seen := first[c.Type]; !seen {
			first[c.Type] = c.Value
		}
	}

	cerr := &ClaimsError{}
	for _, typ := range requiredClaims {
		if strings.TrimSpace(first[typ]) == "" {
			cerr.Missing = append(cerr.Missing, typ)
		}
	}
	cerr.NoRoles = len(roles) == 0
	uid, sub := first[ClaimUserID], first[ClaimSubject]
	cerr.SubjectMismatch = uid != "" && sub != "" && uid != sub
	if len(cerr.Missing) > 0 || cerr.NoRoles || cerr.SubjectMismatch {
		return nil, cerr
	}

	return &AccessTokenClaims{
		Sid:   first[ClaimSessionID],
		Jti:   first[ClaimJTI],
		Uid:   uid,
		Sub:   sub,
		Name:  first[ClaimName],
		Email: first[ClaimEmail],
		Roles: roles,
		Iat:   first[ClaimIssuedAt],
		Exp:   first[ClaimExpiration],
		Nbf:   first[ClaimNotBefore],
		Iss:   first[ClaimIssuer],
		Aud:   first[ClaimAudience],
	}, nil
}

// HasRole reports whether role is among the claimed roles.
func (c *AccessTokenClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
