package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newDefaultEvaluator(t *testing.T) *OPAEvaluator {
	t.Helper()
	e, err := NewOPAEvaluator(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	return e
}

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	e := newDefaultEvaluator(t)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestOPAEvaluator_DefaultPolicy(t *testing.T) {
	e := newDefaultEvaluator(t)
	tests := []struct {
		name  string
		input Input
		want  bool
	}{
		{
			name:  "anonymous login",
			input: Input{Method: "/socialauth.auth.v1.AuthService/Login"},
			want:  true,
		},
		{
			name:  "anonymous health",
			input: Input{Method: "/grpc.health.v1.Health/Check"},
			want:  true,
		},
		{
			name:  "anonymous logout",
			input: Input{Method: "/socialauth.auth.v1.AuthService/Logout"},
			want:  false,
		},
		{
			name:  "user logout",
			input: Input{Method: "/socialauth.auth.v1.AuthService/Logout", Authenticated: true, UserID: "u1", Roles: []string{"user"}},
			want:  true,
		},
		{
			name:  "user get me",
			input: Input{Method: "/socialauth.user.v1.UserService/GetMe", Authenticated: true, UserID: "u1", Roles: []string{"user"}},
			want:  true,
		},
		{
			name:  "user lists audit logs",
			input: Input{Method: "/socialauth.audit.v1.AuditService/ListAuditLogs", Authenticated: true, UserID: "u1", Roles: []string{"user"}},
			want:  false,
		},
		{
			name:  "admin lists audit logs",
			input: Input{Method: "/socialauth.audit.v1.AuditService/ListAuditLogs", Authenticated: true, UserID: "a1", Roles: []string{"user", "admin"}},
			want:  true,
		},
		{
			name:  "roles without authentication",
			input: Input{Method: "/socialauth.audit.v1.AuditService/ListAuditLogs", Roles: []string{"admin"}},
			want:  false,
		},
		{
			name:  "user unknown method",
			input: Input{Method: "/socialauth.other.v1.OtherService/Do", Authenticated: true, UserID: "u1", Roles: []string{"user"}},
			want:  false,
		},
		{
			name:  "authenticated without roles",
			input: Input{Method: "/socialauth.user.v1.UserService/GetMe", Authenticated: true, UserID: "u1"},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Authorize(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Authorize: %v", err)
			}
			if got != tt.want {
				t.Errorf("Authorize(%+v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestOPAEvaluator_CustomPolicy(t *testing.T) {
	policy := `package socialauth.authz

default allow := false

allow if input.user_id == "only-me"
`
	e, err := NewOPAEvaluator(context.Background(), map[string]string{"custom.rego": policy})
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	ok, err := e.Authorize(context.Background(), Input{Method: "/x.Y/Z", UserID: "only-me"})
	if err != nil || !ok {
		t.Errorf("Authorize only-me = %v, %v; want true", ok, err)
	}
	ok, err = e.Authorize(context.Background(), Input{Method: "/x.Y/Z", UserID: "someone"})
	if err != nil || ok {
		t.Errorf("Authorize someone = %v, %v; want false", ok, err)
	}
}

func TestNewOPAEvaluator_InvalidPolicy(t *testing.T) {
	_, err := NewOPAEvaluator(context.Background(), map[string]string{"bad.rego": "package socialauth.authz\n\nallow if {"})
	if err == nil {
		t.Fatal("expected compile error for invalid policy")
	}
}

func TestOPAEvaluator_PolicyWithoutAllowRule(t *testing.T) {
	e, err := NewOPAEvaluator(context.Background(), map[string]string{"other.rego": "package socialauth.authz\n\nx := 1\n"})
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	if _, err := e.Authorize(context.Background(), Input{Method: "/x.Y/Z"}); err == nil {
		t.Fatal("expected error when allow is undefined")
	}
}

func TestLoadPolicyModules(t *testing.T) {
	mods, err := LoadPolicyModules("")
	if err != nil || mods != nil {
		t.Fatalf("empty path = %v, %v; want nil, nil", mods, err)
	}

	path := filepath.Join(t.TempDir(), "open.rego")
	if err := os.WriteFile(path, []byte("package socialauth.authz\n\nallow := true\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mods, err = LoadPolicyModules(path)
	if err != nil {
		t.Fatalf("LoadPolicyModules: %v", err)
	}
	e, err := NewOPAEvaluator(context.Background(), mods)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	ok, err := e.Authorize(context.Background(), Input{Method: "/x.Y/Z"})
	if err != nil || !ok {
		t.Errorf("Authorize = %v, %v; want true", ok, err)
	}

	if _, err := LoadPolicyModules(filepath.Join(t.TempDir(), "missing.rego")); err == nil {
		t.Error("expected error for missing file")
	}
}
