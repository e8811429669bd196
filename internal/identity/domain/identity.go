package domain

import "time"

// Identity is the credential record mirrored from a domain user. ID equals the user's ID.
type Identity struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Role names.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DefaultRole is assigned to every identity at registration.
const DefaultRole = RoleUser

// IsKnownRole reports whether role is one of the defined roles.
func IsKnownRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
