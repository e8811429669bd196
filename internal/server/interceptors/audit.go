package interceptors

import (
	"context"
	"log"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/google/uuid"

	"social-auth/backend/internal/audit"
	"social-auth/backend/internal/audit/domain"
	auditrepo "social-auth/backend/internal/audit/repository"
)

// AuditUnary returns a unary server interceptor that records an audit entry for every
// authenticated RPC not in skipMethods. The auth handlers and RevokeSession write their own
// entries and are listed there. Metadata carries the caller's session and, on failure, the
// status code. Writes are best-effort: failures are logged and never fail the RPC.
func AuditUnary(auditRepo auditrepo.Repository, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if skipMethods[info.FullMethod] {
			return resp, err
		}
		userID, _ := GetUserID(ctx)
		if userID == "" {
			return resp, err
		}
		sessionID, _ := GetSessionID(ctx)
		ar := audit.ParseFullMethod(info.FullMethod)
		entry := &domain.AuditLog{
			ID:        uuid.New().String(),
			UserID:    userID,
			Action:    ar.Action,
			Resource:  ar.Resource,
			IP:        ClientIP(ctx),
			Metadata:  auditMetadata(sessionID, status.Code(err)),
			CreatedAt: time.Now().UTC(),
		}
		if createErr := auditRepo.Create(context.WithoutCancel(ctx), entry); createErr != nil {
			log.Printf("audit: failed to create audit log for %s: %v", info.FullMethod, createErr)
		}
		return resp, err
	}
}

// auditMetadata renders "session_id=<sid>" followed by " code=<code>" for non-OK results.
func auditMetadata(sessionID string, code codes.Code) string {
	parts := make([]string, 0, 2)
	if sessionID != "" {
		parts = append(parts, "session_id="+sessionID)
	}
	if code != codes.OK {
		parts = append(parts, "code="+code.String())
	}
	return strings.Join(parts, " ")
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
