package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"social-auth/backend/internal/security"
)

const bearerPrefix = "bearer "

// TokenValidator verifies access tokens. Implemented by *security.TokenService.
type TokenValidator interface {
	ValidateToken(token string, withExpiration bool) bool
	GetValidatedClaimsFromToken(token string) (*security.AccessTokenClaims, error)
}

// AuthOption configures AuthUnary.
type AuthOption func(*authConfig)

type authConfig struct {
	expiredOK map[string]bool
}

// AllowExpired lets the given methods authenticate with an expired access token. The
// signature, issuer, audience and claim set are still checked. Used for Logout, which must
// work after the access token has lapsed.
func AllowExpired(methods map[string]bool) AuthOption {
	return func(c *authConfig) { c.expiredOK = methods }
}

// AuthUnary returns a unary server interceptor that validates the Bearer (access) token
// from gRPC metadata and sets user_id, session_id, roles and the raw token in context.
// The token must carry a valid signature, issuer and audience, be unexpired, and hold a
// complete claim set. publicMethods is the set of full method names that do not require
// a Bearer token (e.g. AuthService Register, Login, Refresh; grpc.health.v1.Health/Check);
// a valid token on a public method still populates the context.
func AuthUnary(tokens TokenValidator, publicMethods map[string]bool, opts ...AuthOption) grpc.UnaryServerInterceptor {
	var cfg authConfig
	for _, o := range opts {
		o(&cfg)
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		claims, ok := authenticate(tokens, token, !cfg.expiredOK[info.FullMethod])
		if !ok {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		ctx = WithIdentity(ctx, claims.Uid, claims.Sid, claims.Roles)
		ctx = WithAccessToken(ctx, token)
		return handler(ctx, req)
	}
}

func authenticate(tokens TokenValidator, token string, withExpiration bool) (*security.AccessTokenClaims, bool) {
	if !tokens.ValidateToken(token, withExpiration) {
		return nil, false
	}
	claims, err := tokens.GetValidatedClaimsFromToken(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
