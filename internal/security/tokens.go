package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token is malformed or invalid.
	ErrInvalidToken = errors.New("invalid token")
)

// refreshTokenBytes yields a 64-character base64url refresh token.
const refreshTokenBytes = 48

// AccessClaims holds the JWT claims carried by an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string   `json:"sid"`
	UserID    string   `json:"uid"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Roles     []string `json:"role"`
}

// TokenService issues HS256 access tokens and opaque refresh tokens, and validates access tokens.
type TokenService struct {
	key       []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	now       func() time.Time
}

// NewTokenService returns a TokenService that signs with the given symmetric key.
// issuer and audience are set on every access token and checked on validation.
func NewTokenService(key []byte, issuer, audience string, accessTTL time.Duration) *TokenService {
	return &TokenService{
		key:       key,
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// CreateAccessToken issues a signed access token. When sessionID is empty a new
// session id is generated; otherwise it is carried over unchanged. Every call gets a new jti.
func (s *TokenService) CreateAccessToken(userID, name, email string, roles []string, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := s.now()
	jti, err := newJTI(now)
	if err != nil {
		return "", err
	}
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		SessionID: sessionID,
		UserID:    userID,
		Name:      name,
		Email:     email,
		Roles:     append([]string(nil), roles...),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// CreateRefreshToken returns a cryptographically random opaque refresh token.
// It carries no claims and is only ever compared by hash.
func (s *TokenService) CreateRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GetValidatedClaimsFromToken decodes the token's claim set without verifying the
// signature or expiry and runs it through NewAccessTokenClaims.
func (s *TokenService) GetValidatedClaimsFromToken(tokenString string) (*AccessTokenClaims, error) {
	mc := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithJSONNumber())
	if _, _, err := parser.ParseUnverified(tokenString, mc); err != nil {
		return nil, ErrInvalidToken
	}
	return NewAccessTokenClaims(flattenClaims(mc))
}

// ValidateToken verifies the signature, issuer and audience of an access token, and
// that uid equals sub. Expiry and not-before are only enforced when withExpiration is
// true, so an expired token can still authorize a refresh.
func (s *TokenService) ValidateToken(tokenString string, withExpiration bool) bool {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if withExpiration {
		opts = append(opts, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc, opts...)
	if err != nil || !token.Valid {
		return false
	}
	if claims.Issuer != s.issuer {
		return false
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == s.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return false
	}
	return claims.UserID != "" && claims.UserID == claims.Subject
}

func (s *TokenService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidToken
	}
	return s.key, nil
}

// flattenClaims turns a decoded claim set into (type, value) pairs. Arrays become one
// pair per element; keys are visited in sorted order so the result is deterministic.
func flattenClaims(mc jwt.MapClaims) []Claim {
	keys := make([]string, 0, len(mc))
	for k := range mc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Claim, 0, len(keys))
	for _, k := range keys {
		switch v := mc[k].(type) {
		case []interface{}:
			for _, e := range v {
				if s, ok := claimValue(e); ok {
					out = append(out, Claim{Type: k, Value: s})
				}
			}
		default:
			if s, ok := claimValue(v); ok {
				out = append(out, Claim{Type: k, Value: s})
			}
		}
	}
	return out
}

func claimValue(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatInt(int64(t), 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
