// Package domain holds the audit trail record.
package domain

import "time"

// AuditLog is one audited action. UserID is empty for events with no resolved
// caller (e.g. a login attempt for an unknown username). Metadata is free text,
// usually key=value pairs or a JSON document written by the auth handlers.
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	UserID   string
	Action   string
	Resource string
	// Since keeps entries created at or after this instant.
	Since time.Time
}

// Matches reports whether a satisfies f.
func (f Filter) Matches(a *AuditLog) bool {
	if f.UserID != "" && a.UserID != f.UserID {
		return false
	}
	if f.Action != "" && a.Action != f.Action {
		return false
	}
	if f.Resource != "" && a.Resource != f.Resource {
		return false
	}
	return f.Since.IsZero() || !a.CreatedAt.Before(f.Since)
}
