package interceptors

import (
	"context"
	"testing"
)

func TestWithIdentity_SetsAllValues(t *testing.T) {
	roles := []string{"user", "admin"}
	ctx := WithIdentity(context.Background(), "user-1", "session-1", roles)
	roles[0] = "mutated"

	userID, ok := GetUserID(ctx)
	if !ok || userID != "user-1" {
		t.Errorf("user_id = %q, ok = %v, want %q", userID, ok, "user-1")
	}
	sessionID, ok := GetSessionID(ctx)
	if !ok || sessionID != "session-1" {
		t.Errorf("session_id = %q, ok = %v, want %q", sessionID, ok, "session-1")
	}
	got := GetRoles(ctx)
	if len(got) != 2 || got[0] != "user" || got[1] != "admin" {
		t.Errorf("roles = %v, want [user admin]", got)
	}
}

func TestGetters_ReturnFalseWhenNotSet(t *testing.T) {
	ctx := context.Background()
	if v, ok := GetUserID(ctx); ok || v != "" {
		t.Errorf("GetUserID = %q, %v; want \"\", false", v, ok)
	}
	if v, ok := GetSessionID(ctx); ok || v != "" {
		t.Errorf("GetSessionID = %q, %v; want \"\", false", v, ok)
	}
	if v, ok := GetAccessToken(ctx); ok || v != "" {
		t.Errorf("GetAccessToken = %q, %v; want \"\", false", v, ok)
	}
	if roles := GetRoles(ctx); roles != nil {
		t.Errorf("GetRoles = %v, want nil", roles)
	}
}

func TestWithAccessToken(t *testing.T) {
	ctx := WithAccessToken(context.Background(), "tok")
	if v, ok := GetAccessToken(ctx); !ok || v != "tok" {
		t.Errorf("GetAccessToken = %q, %v; want tok, true", v, ok)
	}
}

func TestContextKeys_DoNotCollideWithStrings(t *testing.T) {
	ctx := context.WithValue(context.Background(), "user_id", "other")
	if _, ok := GetUserID(ctx); ok {
		t.Error("GetUserID should not read a plain string key")
	}
}
