// Package handler serves UserService: profile lookups for the caller and for admins.
package handler

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"social-auth/backend/internal/platform/grpcjson"
	"social-auth/backend/internal/server/interceptors"
	"social-auth/backend/internal/user/domain"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "socialauth.user.v1.UserService"

const (
	GetMeFullMethod   = "/" + ServiceName + "/GetMe"
	GetUserFullMethod = "/" + ServiceName + "/GetUser"
)

type GetMeRequest struct{}

type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// User is the public view of a domain user.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth string    `json:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at"`
}

type GetUserResponse struct {
	User *User `json:"user"`
}

// UserReader is the user lookup needed by the server. Implemented by userrepo.Repository.
type UserReader interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// UserServiceServer is the server API for UserService.
type UserServiceServer interface {
	GetMe(context.Context, *GetMeRequest) (*GetUserResponse, error)
	GetUser(context.Context, *GetUserRequest) (*GetUserResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetMe", Handler: grpcjson.Unary(GetMeFullMethod, UserServiceServer.GetMe)},
		{MethodName: "GetUser", Handler: grpcjson.Unary(GetUserFullMethod, UserServiceServer.GetUser)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "socialauth/user/v1/user.proto",
}

// RegisterUserServiceServer registers srv on s.
func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Server implements UserServiceServer.
type Server struct {
	userRepo UserReader
}

// NewServer returns a new User gRPC server. userRepo may be nil; then all RPCs return Unimplemented.
func NewServer(userRepo UserReader) *Server {
	return &Server{userRepo: userRepo}
}

// GetMe returns the authenticated caller's profile.
func (s *Server) GetMe(ctx context.Context, req *GetMeRequest) (*GetUserResponse, error) {
	if s.userRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method GetMe not implemented")
	}
	userID, ok := interceptors.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, status.Error(codes.Unauthenticated, "not authenticated")
	}
	return s.lookup(ctx, userID)
}

// GetUser returns a user by ID.
func (s *Server) GetUser(ctx context.Context, req *GetUserRequest) (*GetUserResponse, error) {
	if s.userRepo == nil {
		return nil, status.Error(codes.Unimplemented, "method GetUser not implemented")
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id required")
	}
	return s.lookup(ctx, userID)
}

func (s *Server) lookup(ctx context.Context, userID string) (*GetUserResponse, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to look up user")
	}
	if u == nil {
		return nil, status.Error(codes.NotFound, "user not found")
	}
	return &GetUserResponse{User: domainUserToWire(u)}, nil
}

func domainUserToWire(u *domain.User) *User {
	if u == nil {
		return nil
	}
	out := &User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
	if !u.DateOfBirth.IsZero() {
		out.DateOfBirth = u.DateOfBirth.Format("2006-01-02")
	}
	return out
}
