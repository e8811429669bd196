// Package server assembles the gRPC server: service registration and the interceptor chain.
package server

import (
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"social-auth/backend/internal/audit"
	audithandler "social-auth/backend/internal/audit/handler"
	auditrepo "social-auth/backend/internal/audit/repository"
	authhandler "social-auth/backend/internal/auth/handler"
	healthhandler "social-auth/backend/internal/health/handler"
	"social-auth/backend/internal/metrics"
	"social-auth/backend/internal/policy/engine"
	"social-auth/backend/internal/server/interceptors"
	sessionhandler "social-auth/backend/internal/session/handler"
	"social-auth/backend/internal/telemetry"
	userhandler "social-auth/backend/internal/user/handler"
)

// Health service methods; public and never audited.
const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthListMethod  = "/grpc.health.v1.Health/List"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"
)

// PublicMethods do not require a Bearer token.
var PublicMethods = map[string]bool{
	authhandler.RegisterFullMethod: true,
	authhandler.LoginFullMethod:    true,
	authhandler.RefreshFullMethod:  true,
	healthCheckMethod:              true,
	healthListMethod:               true,
	healthWatchMethod:              true,
}

// ExpiredTokenMethods accept an expired but otherwise valid access token.
var ExpiredTokenMethods = map[string]bool{
	authhandler.LogoutFullMethod: true,
}

// AuditSkipMethods are not audited by the interceptor. The AuthService handlers and
// RevokeSession write their own entries.
var AuditSkipMethods = map[string]bool{
	authhandler.RegisterFullMethod:         true,
	authhandler.LoginFullMethod:            true,
	authhandler.RefreshFullMethod:          true,
	authhandler.LogoutFullMethod:           true,
	sessionhandler.RevokeSessionFullMethod: true,
	healthCheckMethod:                      true,
	healthListMethod:                       true,
	healthWatchMethod:                      true,
}

// TelemetrySkipMethods are not emitted as grpc_request events.
var TelemetrySkipMethods = map[string]bool{
	healthCheckMethod: true,
	healthListMethod:  true,
	healthWatchMethod: true,
}

// Deps holds service dependencies for gRPC handlers. Any nil dependency leaves the
// RPCs that need it returning Unimplemented.
type Deps struct {
	// Auth runs Register/Login/Refresh/Logout.
	Auth authhandler.Flows
	// Tokens validates Bearer tokens. If nil, no caller is ever authenticated.
	Tokens interceptors.TokenValidator
	// Authorizer decides per-method access. If nil, no authorization interceptor is installed.
	Authorizer engine.Evaluator
	UserRepo    userhandler.UserReader
	SessionRepo sessionhandler.SessionStore
	// AuditRepo backs AuditService and the audit interceptor.
	AuditRepo auditrepo.Repository
	// AuditLogger records flow outcomes written by handlers.
	AuditLogger audit.AuditLogger
	Events      *telemetry.Async
	Metrics     *metrics.Metrics
	// Health backs grpc.health.v1. If nil, the health service is not registered.
	Health *healthhandler.Server
}

// NewGRPCServer returns a grpc.Server with OTel instrumentation and the interceptor chain
// auth → authz → telemetry → audit, and every service registered.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	var chain []grpc.UnaryServerInterceptor
	if deps.Tokens != nil {
		chain = append(chain, interceptors.AuthUnary(deps.Tokens, PublicMethods, interceptors.AllowExpired(ExpiredTokenMethods)))
	}
	if deps.Authorizer != nil {
		chain = append(chain, interceptors.AuthzUnary(deps.Authorizer))
	}
	chain = append(chain, interceptors.TelemetryUnary(deps.Events, TelemetrySkipMethods))
	if deps.AuditRepo != nil {
		chain = append(chain, interceptors.AuditUnary(deps.AuditRepo, AuditSkipMethods))
	}
	serverOpts := append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(chain...),
	}, opts...)
	s := grpc.NewServer(serverOpts...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers all gRPC services with the given server.
//
// Service → handler mapping:
//   - AuthService    → internal/auth/handler
//   - UserService    → internal/user/handler
//   - SessionService → internal/session/handler
//   - AuditService   → internal/audit/handler
//   - Health         → internal/health/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	authOpts := []authhandler.Option{
		authhandler.WithEvents(deps.Events),
		authhandler.WithMetrics(deps.Metrics),
	}
	if deps.AuditLogger != nil {
		authOpts = append(authOpts, authhandler.WithAuditLogger(deps.AuditLogger))
	}
	if deps.Tokens != nil {
		authOpts = append(authOpts, authhandler.WithClaimsReader(deps.Tokens))
	}
	authhandler.RegisterAuthServiceServer(s, authhandler.NewServer(deps.Auth, authOpts...))
	userhandler.RegisterUserServiceServer(s, userhandler.NewServer(deps.UserRepo))
	sessionhandler.RegisterSessionServiceServer(s, sessionhandler.NewServer(deps.SessionRepo, deps.AuditLogger))
	var auditLister audithandler.Lister
	if deps.AuditRepo != nil {
		auditLister = deps.AuditRepo
	}
	audithandler.RegisterAuditServiceServer(s, audithandler.NewServer(auditLister))
	if deps.Health != nil {
		deps.Health.Register(s)
	}
}
