package interceptors

import "context"

type contextKey struct{ name string }

var (
	userIDKey      = contextKey{"user_id"}
	sessionIDKey   = contextKey{"session_id"}
	rolesKey       = contextKey{"roles"}
	accessTokenKey = contextKey{"access_token"}
)

// WithIdentity returns a context with user_id, session_id and roles set.
// Handlers read these via GetUserID, GetSessionID, GetRoles.
func WithIdentity(ctx context.Context, userID, sessionID string, roles []string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, sessionIDKey, sessionID)
	ctx = context.WithValue(ctx, rolesKey, append([]string(nil), roles...))
	return ctx
}

// WithAccessToken returns a context carrying the caller's raw bearer token (e.g. for Logout).
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(sessionIDKey).(string)
	return v, ok
}

// GetRoles returns the caller's roles from context, or nil if not set.
func GetRoles(ctx context.Context) []string {
	v, _ := ctx.Value(rolesKey).([]string)
	return v
}

// GetAccessToken returns the caller's bearer token and true if set; otherwise "", false.
func GetAccessToken(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(accessTokenKey).(string)
	return v, ok
}
