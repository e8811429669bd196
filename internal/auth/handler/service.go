package handler

import (
	"context"

	"google.golang.org/grpc"

	"social-auth/backend/internal/platform/grpcjson"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "socialauth.auth.v1.AuthService"

// Full method names, as seen by interceptors.
const (
	RegisterFullMethod = "/" + ServiceName + "/Register"
	LoginFullMethod    = "/" + ServiceName + "/Login"
	RefreshFullMethod  = "/" + ServiceName + "/Refresh"
	LogoutFullMethod   = "/" + ServiceName + "/Logout"
)

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	Refresh(context.Context, *RefreshRequest) (*AuthResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
}

// ServiceDesc describes AuthService for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: grpcjson.Unary(RegisterFullMethod, AuthServiceServer.Register)},
		{MethodName: "Login", Handler: grpcjson.Unary(LoginFullMethod, AuthServiceServer.Login)},
		{MethodName: "Refresh", Handler: grpcjson.Unary(RefreshFullMethod, AuthServiceServer.Refresh)},
		{MethodName: "Logout", Handler: grpcjson.Unary(LogoutFullMethod, AuthServiceServer.Logout)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "socialauth/auth/v1/auth.proto",
}

// RegisterAuthServiceServer registers srv on s.
func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls AuthService over a JSON-coded connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return grpcjson.Invoke[AuthResponse](ctx, c.cc, RegisterFullMethod, in, opts...)
}

func (c *Client) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return grpcjson.Invoke[AuthResponse](ctx, c.cc, LoginFullMethod, in, opts...)
}

func (c *Client) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return grpcjson.Invoke[AuthResponse](ctx, c.cc, RefreshFullMethod, in, opts...)
}

func (c *Client) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return grpcjson.Invoke[LogoutResponse](ctx, c.cc, LogoutFullMethod, in, opts...)
}
