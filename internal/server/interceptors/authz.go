package interceptors

import (
	"context"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"social-auth/backend/internal/policy/engine"
)

// AuthzUnary returns a unary server interceptor that asks the policy evaluator whether the
// caller (as set in context by AuthUnary) may invoke the method. It must run after AuthUnary.
// Evaluation errors deny the call.
func AuthzUnary(evaluator engine.Evaluator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		userID, authenticated := GetUserID(ctx)
		in := engine.Input{
			Method:        info.FullMethod,
			Authenticated: authenticated && userID != "",
			UserID:        userID,
			Roles:         GetRoles(ctx),
		}
		allowed, err := evaluator.Authorize(ctx, in)
		if err != nil {
			log.Printf("policy: authorize %s: %v", info.FullMethod, err)
			return nil, status.Error(codes.Internal, "authorization unavailable")
		}
		if !allowed {
			if !in.Authenticated {
				return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
			}
			return nil, status.Error(codes.PermissionDenied, "permission denied")
		}
		return handler(ctx, req)
	}
}
