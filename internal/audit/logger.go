package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"social-auth/backend/internal/audit/domain"
	auditrepo "social-auth/backend/internal/audit/repository"
)

// Actions recorded by the auth handlers.
const (
	ActionLoginSuccess        = "login_success"
	ActionLoginFailure        = "login_failure"
	ActionRegister            = "register"
	ActionRegisterFailure     = "register_failure"
	ActionTokenRefresh        = "token_refresh"
	ActionTokenRefreshFailure = "token_refresh_failure"
	ActionTokenReplay         = "token_replay"
	ActionLogout              = "logout"
	ActionLogoutFailure       = "logout_failure"
	ActionCompensationFailure = "compensation_failure"
)

// Resources recorded by the auth handlers.
const (
	ResourceSession = "session"
	ResourceUser    = "user"
)

// IPExtractor returns the client IP from the request context (e.g. gRPC metadata or peer).
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource. Used by the auth handlers.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	now         func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{
		repo:        repo,
		ipExtractor: ipExtractor,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
// The write is detached from ctx cancellation so an aborted RPC still leaves its trail.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.now(),
	}
	if err := l.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("audit: failed to log event %s/%s: %v", action, resource, err)
	}
}
