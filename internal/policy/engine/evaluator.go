package engine

import "context"

// Input is what an authorization decision is made on.
type Input struct {
	// Method is the full gRPC method name, e.g. /socialauth.user.v1.UserService/GetMe.
	Method string
	// Authenticated is true when the caller presented a valid access token.
	Authenticated bool
	UserID        string
	Roles         []string
}

// Evaluator decides whether a caller may invoke a method.
type Evaluator interface {
	// Authorize returns true when the policy allows the call. An error means no decision
	// could be made; callers must deny.
	Authorize(ctx context.Context, in Input) (bool, error)
}
