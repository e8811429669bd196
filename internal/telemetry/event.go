// Package telemetry defines security events and the emitters that ship them (see telemetry/otel).
package telemetry

import (
	"context"
	"time"
)

// Event types emitted by the auth handlers.
const (
	EventLoginSucceeded      = "login_succeeded"
	EventLoginFailed         = "login_failed"
	EventRegistered          = "registered"
	EventRegistrationFailed  = "registration_failed"
	EventTokenRefreshed      = "token_refreshed"
	EventTokenRefreshFailed  = "token_refresh_failed"
	EventTokenReplayDetected = "token_replay_detected"
	EventLoggedOut           = "logged_out"
	EventLogoutFailed        = "logout_failed"
	EventCompensationFailed  = "compensation_failed"
	EventSessionsSwept       = "sessions_swept"
)

// Severity of an event. Zero is SeverityInfo.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

// Event is one security-relevant occurrence. Metadata is an optional JSON document.
type Event struct {
	UserID    string
	SessionID string
	EventType string
	Source    string
	Severity  Severity
	Metadata  []byte
	CreatedAt time.Time
}

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
