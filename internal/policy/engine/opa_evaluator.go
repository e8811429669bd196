package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const allowQuery = "data.socialauth.authz.allow"

// DefaultPolicy maps each RPC to the role it requires. Admins may call everything;
// unlisted methods are denied to everyone else.
const DefaultPolicy = `package socialauth.authz

default allow := false

public_methods := {
	"/socialauth.auth.v1.AuthService/Register",
	"/socialauth.auth.v1.AuthService/Login",
	"/socialauth.auth.v1.AuthService/Refresh",
	"/grpc.health.v1.Health/Check",
	"/grpc.health.v1.Health/List",
	"/grpc.health.v1.Health/Watch",
}

required_role := {
	"/socialauth.auth.v1.AuthService/Logout": "user",
	"/socialauth.user.v1.UserService/GetMe": "user",
	"/socialauth.user.v1.UserService/GetUser": "admin",
	"/socialauth.session.v1.SessionService/GetSession": "admin",
	"/socialauth.session.v1.SessionService/RevokeSession": "admin",
	"/socialauth.audit.v1.AuditService/ListAuditLogs": "admin",
}

allow if input.method in public_methods

allow if {
	input.authenticated
	some role in input.roles
	role == required_role[input.method]
}

allow if {
	input.authenticated
	"admin" in input.roles
}
`

// OPAEvaluator authorizes RPCs with an OPA Rego policy compiled once at construction.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the given Rego modules (filename → source). The modules must
// define data.socialauth.authz.allow. With no modules, DefaultPolicy is used.
func NewOPAEvaluator(ctx context.Context, modules map[string]string) (*OPAEvaluator, error) {
	if len(modules) == 0 {
		modules = map[string]string{"authz.rego": DefaultPolicy}
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	q, err := rego.New(
		rego.Query(allowQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy query: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// LoadPolicyModules reads the Rego file at path into the modules map NewOPAEvaluator takes.
// An empty path returns nil, selecting DefaultPolicy.
func LoadPolicyModules(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return map[string]string{filepath.Base(path): string(src)}, nil
}

// Authorize evaluates the allow rule for in.
func (e *OPAEvaluator) Authorize(ctx context.Context, in Input) (bool, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		return false, fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("policy query returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("policy allow is %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}

// HealthCheck verifies that the compiled policy evaluates. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.Authorize(ctx, Input{Method: "/grpc.health.v1.Health/Check"})
	return err
}

func buildInput(in Input) map[string]interface{} {
	roles := make([]interface{}, 0, len(in.Roles))
	for _, r := range in.Roles {
		roles = append(roles, r)
	}
	return map[string]interface{}{
		"method":        in.Method,
		"authenticated": in.Authenticated,
		"user_id":       in.UserID,
		"roles":         roles,
	}
}
