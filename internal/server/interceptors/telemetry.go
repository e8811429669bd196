package interceptors

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"social-auth/backend/internal/telemetry"
)

// EventGRPCRequest is the event type of per-RPC telemetry.
const EventGRPCRequest = "grpc_request"

// grpcRequestMetadata is the JSON shape stored in Event.Metadata for grpc_request events.
type grpcRequestMetadata struct {
	FullMethod string `json:"full_method"`
	StatusCode string `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// TelemetryUnary returns a unary server interceptor that emits a grpc_request event after each RPC
// not in skipMethods. Emits run in the background via events and never fail the RPC. A nil events
// makes the interceptor a pass-through. Severity follows requestSeverity.
func TelemetryUnary(events *telemetry.Async, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if events == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		code := status.Code(err)
		meta := grpcRequestMetadata{
			FullMethod: info.FullMethod,
			StatusCode: code.String(),
			DurationMs: time.Since(start).Milliseconds(),
			ClientIP:   ClientIP(ctx),
		}
		metaJSON, _ := json.Marshal(meta)
		userID, _ := GetUserID(ctx)
		sessionID, _ := GetSessionID(ctx)
		events.Emit(ctx, &telemetry.Event{
			UserID:    userID,
			SessionID: sessionID,
			EventType: EventGRPCRequest,
			Source:    "grpc_interceptor",
			Severity:  requestSeverity(code),
			Metadata:  metaJSON,
			CreatedAt: time.Now().UTC(),
		})
		return resp, err
	}
}

// requestSeverity is error for server faults and warn for refused callers.
func requestSeverity(code codes.Code) telemetry.Severity {
	switch code {
	case codes.Internal, codes.Unknown, codes.DataLoss:
		return telemetry.SeverityError
	case codes.Unauthenticated, codes.PermissionDenied:
		return telemetry.SeverityWarn
	default:
		return telemetry.SeverityInfo
	}
}
