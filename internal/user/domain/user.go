package domain

import (
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"
)

// MinAge is the youngest age accepted at registration.
const MinAge = 13

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,32}$`)

// User is the domain user record. Its ID is shared with the mirrored identity record.
type User struct {
	ID          string
	Username    string
	Email       string
	FirstName   string
	LastName    string
	DateOfBirth time.Time
	CreatedAt   time.Time
}

// FullName is the display name carried in access tokens.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends msg to field.
func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// NewUser validates the registration fields and returns a User with CreatedAt = now.
// All field failures are returned together as FieldErrors.
func NewUser(id, username, email, firstName, lastName string, dob, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	errs := FieldErrors{}
	if id == "" {
		errs.Add("id", "is required")
	}
	if !usernamePattern.MatchString(username) {
		errs.Add("username", "must be 3-32 characters of letters, digits, '_', '.' or '-'")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs.Add("email", "is not a valid email address")
	}
	if firstName == "" {
		errs.Add("firstName", "is required")
	}
	if lastName == "" {
		errs.Add("lastName", "is required")
	}
	switch {
	case dob.IsZero():
		errs.Add("dateOfBirth", "is required")
	case !dob.Before(now):
		errs.Add("dateOfBirth", "must be in the past")
	case dob.After(now.AddDate(-MinAge, 0, 0)):
		errs.Add("dateOfBirth", "must be at least 13 years ago")
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return &User{
		ID:          id,
		Username:    username,
		Email:       email,
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: dob.UTC(),
		CreatedAt:   now.UTC(),
	}, nil
}
