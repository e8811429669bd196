// Package handler serves SessionService: admin inspection and revocation of sessions.
package handler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"social-auth/backend/internal/audit"
	"social-auth/backend/internal/platform/grpcjson"
	"social-auth/backend/internal/server/interceptors"
	"social-auth/backend/internal/session/domain"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "socialauth.session.v1.SessionService"

const (
	GetSessionFullMethod    = "/" + ServiceName + "/GetSession"
	RevokeSessionFullMethod = "/" + ServiceName + "/RevokeSession"
)

// ActionRevoke is the audit action of an admin revocation.
const ActionRevoke = "revoke"

type GetSessionRequest struct {
	SessionID string `json:"session_id"`
}

// Session is the wire view of a session. Token hashes are never exposed.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	IsLongSession bool      `json:"is_long_session"`
	ExpiresAt     time.Time `json:"expires_at"`
	MaxExpiry     time.Time `json:"max_expiry"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	CreatedAt     time.Time `json:"created_at"`
	Expired       bool      `json:"expired"`
}

type GetSessionResponse struct {
	Session *Session `json:"session"`
}

type RevokeSessionRequest struct {
	SessionID string `json:"session_id"`
}

type RevokeSessionResponse struct{}

// SessionStore is the session persistence needed by the server. Implemented by
// sessionrepo.Repository.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionServiceServer is the server API for SessionService.
type SessionServiceServer interface {
	GetSession(context.Context, *GetSessionRequest) (*GetSessionResponse, error)
	RevokeSession(context.Context, *RevokeSessionRequest) (*RevokeSessionResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSession", Handler: grpcjson.Unary(GetSessionFullMethod, SessionServiceServer.GetSession)},
		{MethodName: "RevokeSession", Handler: grpcjson.Unary(RevokeSessionFullMethod, SessionServiceServer.RevokeSession)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "socialauth/session/v1/session.proto",
}

// RegisterSessionServiceServer registers srv on s.
func RegisterSessionServiceServer(s grpc.ServiceRegistrar, srv SessionServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Server implements SessionServiceServer. Role checks happen in the authorization interceptor.
type Server struct {
	sessionRepo SessionStore
	auditLogger audit.AuditLogger
	now         func() time.Time
}

// NewServer returns a new Session gRPC server. If sessionRepo is nil, all RPCs return Unimplemented.
func NewServer(sessionRepo SessionStore, auditLogger audit.AuditLogger) *Server {
	return &Server{
		sessionRepo: sessionRepo,
		auditLogger: auditLogger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetSession returns a session by ID.
func (s *Server) GetSession(ctx context.Context, req *GetSessionRequest) (*GetSessionResponse, error) {
	if s.sessionRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method GetSession not implemented")
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id required")
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, status.Error(codes.InvalidArgument, "session_id must be a UUID")
	}
	ses, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to get session")
	}
	if ses == nil {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	return &GetSessionResponse{Session: s.domainSessionToWire(ses)}, nil
}

// RevokeSession deletes a session. Its refresh token stops working immediately; access
// tokens already issued stay valid until they expire.
func (s *Server) RevokeSession(ctx context.Context, req *RevokeSessionRequest) (*RevokeSessionResponse, error) {
	if s.sessionRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method RevokeSession not implemented")
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		return nil, status.Error(codes.InvalidArgument, "session_id required")
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, status.Error(codes.InvalidArgument, "session_id must be a UUID")
	}
	ses, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to get session")
	}
	if ses == nil {
		return nil, status.Error(codes.NotFound, "session not found")
	}
	if err := s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return nil, status.Error(codes.Internal, "failed to revoke session")
	}
	if s.auditLogger != nil {
		callerID, _ := interceptors.GetUserID(ctx)
		s.auditLogger.LogEvent(ctx, callerID, ActionRevoke, audit.ResourceSession, "session_id="+sessionID+" user_id="+ses.UserID())
	}
	return &RevokeSessionResponse{}, nil
}

func (s *Server) domainSessionToWire(ses *domain.Session) *Session {
	if ses == nil {
		return nil
	}
	return &Session{
		ID:            ses.ID(),
		UserID:        ses.UserID(),
		IsLongSession: ses.IsLongSession(),
		ExpiresAt:     ses.ExpiresAt(),
		MaxExpiry:     ses.MaxExpiry(),
		LastSeenAt:    ses.LastSeenAt(),
		CreatedAt:     ses.CreatedAt(),
		Expired:       ses.IsExpired(s.now()),
	}
}
