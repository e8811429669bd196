package handler

import "time"

// DateLayout is the wire format of dates of birth.
const DateLayout = "2006-01-02"

// RegisterRequest is the registration form. DateOfBirth uses DateLayout.
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
	RememberMe  bool   `json:"remember_me"`
}

type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// RefreshRequest carries the current pair. The access token may be expired.
type RefreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest is empty; the session is named by the bearer token of the call.
type LogoutRequest struct{}

type LogoutResponse struct{}

// UserInfo is the public view of a domain user.
type UserInfo struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth"`
}

// AuthResponse is returned by Register, Login and Refresh. User is omitted for Refresh.
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	Roles        []string  `json:"roles"`
	User         *UserInfo `json:"user,omitempty"`
}
