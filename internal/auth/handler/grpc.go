// Package handler exposes the auth flows as the AuthService gRPC API and records the
// audit trail, telemetry events and metrics for each flow.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"social-auth/backend/internal/audit"
	authservice "social-auth/backend/internal/auth/service"
	identityservice "social-auth/backend/internal/identity/service"
	"social-auth/backend/internal/metrics"
	"social-auth/backend/internal/platform/saga"
	"social-auth/backend/internal/security"
	"social-auth/backend/internal/server/interceptors"
	"social-auth/backend/internal/telemetry"
	userdomain "social-auth/backend/internal/user/domain"
)

const eventSource = "auth_handler"

// Flows is the auth flow surface served by this handler. Implemented by *authservice.AuthService.
type Flows interface {
	Register(ctx context.Context, in authservice.RegisterInput) (*authservice.AuthResult, error)
	Login(ctx context.Context, username, password string, rememberMe bool) (*authservice.AuthResult, error)
	RefreshAccess(ctx context.Context, accessToken, refreshToken string) (*authservice.AuthResult, error)
	Logout(ctx context.Context, accessToken string) (*security.AccessTokenClaims, error)
}

// ClaimsReader reads the claim set of a token without verifying it. It is only used to
// attribute failed refreshes in the audit trail.
type ClaimsReader interface {
	GetValidatedClaimsFromToken(token string) (*security.AccessTokenClaims, error)
}

// Server implements AuthServiceServer.
type Server struct {
	auth        Flows
	claims      ClaimsReader
	auditLogger audit.AuditLogger
	events      *telemetry.Async
	metrics     *metrics.Metrics
}

// Option configures optional observers on Server.
type Option func(*Server)

// WithAuditLogger records each flow outcome in the audit log.
func WithAuditLogger(l audit.AuditLogger) Option {
	return func(s *Server) { s.auditLogger = l }
}

// WithEvents emits a telemetry event per flow outcome.
func WithEvents(events *telemetry.Async) Option {
	return func(s *Server) { s.events = events }
}

// WithMetrics records flow counters and latencies.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClaimsReader lets failed refreshes be attributed to the user named in the token.
func WithClaimsReader(r ClaimsReader) Option {
	return func(s *Server) { s.claims = r }
}

// NewServer returns an AuthService server. If auth is nil, all RPCs return Unimplemented.
func NewServer(auth Flows, opts ...Option) *Server {
	s := &Server{auth: auth}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account and opens its first session.
func (s *Server) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Register not implemented")
	}
	start := time.Now()
	var dob time.Time
	if req.DateOfBirth != "" {
		d, err := time.Parse(DateLayout, req.DateOfBirth)
		if err != nil {
			err := &authservice.AuthError{
				Kind:    authservice.KindValidation,
				Message: authservice.MsgValidationFailed,
				Fields:  map[string][]string{"dateOfBirth": {"must be a date formatted YYYY-MM-DD"}},
			}
			s.observeFailure(ctx, metrics.FlowRegister, start, "", "", err)
			return nil, toStatus(err)
		}
		dob = d
	}
	res, err := s.auth.Register(ctx, authservice.RegisterInput{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DateOfBirth: dob,
		RememberMe:  req.RememberMe,
	})
	if err != nil {
		s.observeFailure(ctx, metrics.FlowRegister, start, "", "", err)
		return nil, toStatus(err)
	}
	s.observeSuccess(ctx, metrics.FlowRegister, start, res.UserID, res.SessionID)
	return toResponse(res), nil
}

// Login opens a new session for valid credentials.
func (s *Server) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Login not implemented")
	}
	start := time.Now()
	res, err := s.auth.Login(ctx, req.Username, req.Password, req.RememberMe)
	if err != nil {
		s.observeFailure(ctx, metrics.FlowLogin, start, "", "", err)
		return nil, toStatus(err)
	}
	s.observeSuccess(ctx, metrics.FlowLogin, start, res.UserID, res.SessionID)
	return toResponse(res), nil
}

// Refresh rotates the session named by the access token.
func (s *Server) Refresh(ctx context.Context, req *RefreshRequest) (*AuthResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		return nil, status.Error(codes.InvalidArgument, "access_token and refresh_token required")
	}
	start := time.Now()
	res, err := s.auth.RefreshAccess(ctx, req.AccessToken, req.RefreshToken)
	if err != nil {
		userID, sessionID := s.claimedIdentity(req.AccessToken)
		s.observeFailure(ctx, metrics.FlowRefresh, start, userID, sessionID, err)
		return nil, toStatus(err)
	}
	s.observeSuccess(ctx, metrics.FlowRefresh, start, res.UserID, res.SessionID)
	return toResponse(res), nil
}

// Logout ends the session of the calling access token.
func (s *Server) Logout(ctx context.Context, req *LogoutRequest) (*LogoutResponse, error) {
	if s.auth == nil {
		return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
	}
	token, ok := interceptors.GetAccessToken(ctx)
	if !ok || token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing access token")
	}
	start := time.Now()
	claims, err := s.auth.Logout(ctx, token)
	if err != nil {
		userID, _ := interceptors.GetUserID(ctx)
		sessionID, _ := interceptors.GetSessionID(ctx)
		s.observeFailure(ctx, metrics.FlowLogout, start, userID, sessionID, err)
		return nil, toStatus(err)
	}
	s.observeSuccess(ctx, metrics.FlowLogout, start, claims.Uid, claims.Sid)
	return &LogoutResponse{}, nil
}

func (s *Server) claimedIdentity(accessToken string) (userID, sessionID string) {
	if s.claims == nil {
		return "", ""
	}
	c, err := s.claims.GetValidatedClaimsFromToken(accessToken)
	if err != nil {
		return "", ""
	}
	return c.Uid, c.Sid
}

// flowOutcome names the audit action and event type of a flow result.
type flowOutcome struct {
	action   string
	resource string
	event    string
}

var successOutcomes = map[string]flowOutcome{
	metrics.FlowRegister: {audit.ActionRegister, audit.ResourceUser, telemetry.EventRegistered},
	metrics.FlowLogin:    {audit.ActionLoginSuccess, audit.ResourceSession, telemetry.EventLoginSucceeded},
	metrics.FlowRefresh:  {audit.ActionTokenRefresh, audit.ResourceSession, telemetry.EventTokenRefreshed},
	metrics.FlowLogout:   {audit.ActionLogout, audit.ResourceSession, telemetry.EventLoggedOut},
}

var failureOutcomes = map[string]flowOutcome{
	metrics.FlowRegister: {audit.ActionRegisterFailure, audit.ResourceUser, telemetry.EventRegistrationFailed},
	metrics.FlowLogin:    {audit.ActionLoginFailure, audit.ResourceSession, telemetry.EventLoginFailed},
	metrics.FlowRefresh:  {audit.ActionTokenRefreshFailure, audit.ResourceSession, telemetry.EventTokenRefreshFailed},
	metrics.FlowLogout:   {audit.ActionLogoutFailure, audit.ResourceSession, telemetry.EventLogoutFailed},
}

// flowMetadata is the JSON document attached to audit rows and events.
type flowMetadata struct {
	Flow      string `json:"flow"`
	Result    string `json:"result"`
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func (s *Server) observeSuccess(ctx context.Context, flow string, start time.Time, userID, sessionID string) {
	s.metrics.RecordFlow(flow, metrics.ResultSuccess, time.Since(start))
	o := successOutcomes[flow]
	meta := encodeMetadata(flowMetadata{Flow: flow, Result: metrics.ResultSuccess, SessionID: sessionID})
	s.record(ctx, userID, sessionID, o.action, o.resource, o.event, telemetry.SeverityInfo, meta)
}

func (s *Server) observeFailure(ctx context.Context, flow string, start time.Time, userID, sessionID string, err error) {
	result := classify(err)
	s.metrics.RecordFlow(flow, result, time.Since(start))
	meta := flowMetadata{Flow: flow, Result: result, SessionID: sessionID, Reason: reason(err)}

	switch {
	case errors.Is(err, identityservice.ErrTokenReplay):
		s.metrics.RecordReplay()
		log.Printf("auth: refresh token replay detected for session %s", sessionID)
		s.record(ctx, userID, sessionID, audit.ActionTokenReplay, audit.ResourceSession,
			telemetry.EventTokenReplayDetected, telemetry.SeverityWarn, encodeMetadata(meta))
		return
	case saga.IsCompensationError(err):
		s.metrics.RecordCompensationFailure()
		log.Printf("auth: %s compensation failed: %v", flow, err)
		s.record(ctx, userID, sessionID, audit.ActionCompensationFailure, audit.ResourceUser,
			telemetry.EventCompensationFailed, telemetry.SeverityError, encodeMetadata(meta))
		return
	}

	o := failureOutcomes[flow]
	severity := telemetry.SeverityWarn
	if result == metrics.ResultError {
		severity = telemetry.SeverityError
	}
	s.record(ctx, userID, sessionID, o.action, o.resource, o.event, severity, encodeMetadata(meta))
}

func (s *Server) record(ctx context.Context, userID, sessionID, action, resource, eventType string, severity telemetry.Severity, meta []byte) {
	if s.auditLogger != nil {
		s.auditLogger.LogEvent(ctx, userID, action, resource, string(meta))
	}
	s.events.Emit(ctx, &telemetry.Event{
		UserID:    userID,
		SessionID: sessionID,
		EventType: eventType,
		Source:    eventSource,
		Severity:  severity,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	})
}

func encodeMetadata(m flowMetadata) []byte {
	b, _ := json.Marshal(m)
	return b
}

// classify maps a flow error to a metrics result label.
func classify(err error) string {
	switch {
	case authservice.IsKind(err, authservice.KindUnauthorized):
		return metrics.ResultRejected
	case authservice.IsKind(err, authservice.KindValidation), authservice.IsKind(err, authservice.KindBadRequest):
		return metrics.ResultValidation
	default:
		return metrics.ResultError
	}
}

// reason is the client-safe message for an audit row; internal causes are not recorded.
func reason(err error) string {
	var ae *authservice.AuthError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}

// toStatus maps a flow error to a gRPC status. Internal causes are logged, never returned.
func toStatus(err error) error {
	var ae *authservice.AuthError
	if !errors.As(err, &ae) {
		log.Printf("auth: internal error: %v", err)
		return status.Error(codes.Internal, "internal error")
	}
	switch ae.Kind {
	case authservice.KindUnauthorized:
		return status.Error(codes.Unauthenticated, ae.Message)
	case authservice.KindBadRequest:
		return status.Error(codes.InvalidArgument, ae.Message)
	case authservice.KindValidation:
		return validationStatus(ae)
	default:
		log.Printf("auth: unexpected error kind %v: %v", ae.Kind, err)
		return status.Error(codes.Internal, "internal error")
	}
}

// validationStatus returns InvalidArgument carrying one FieldViolation per field message,
// fields in sorted order. The message repeats them for clients that ignore details.
func validationStatus(ae *authservice.AuthError) error {
	fields := make([]string, 0, len(ae.Fields))
	for f := range ae.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	br := &errdetails.BadRequest{}
	for _, f := range fields {
		for _, msg := range ae.Fields[f] {
			br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
				Field:       f,
				Description: msg,
			})
		}
	}
	st := status.New(codes.InvalidArgument, ae.Error())
	if withDetails, err := st.WithDetails(br); err == nil {
		st = withDetails
	}
	return st.Err()
}

func toResponse(res *authservice.AuthResult) *AuthResponse {
	return &AuthResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		SessionID:    res.SessionID,
		UserID:       res.UserID,
		Roles:        res.Roles,
		User:         toUserInfo(res.User),
	}
}

func toUserInfo(u *userdomain.User) *UserInfo {
	if u == nil {
		return nil
	}
	info := &UserInfo{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
	if !u.DateOfBirth.IsZero() {
		info.DateOfBirth = u.DateOfBirth.Format(DateLayout)
	}
	return info
}
