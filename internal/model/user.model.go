package model

import (
	"net/mail"
	"strings"
	"time"
)

const (
	MinPasswordLength = 6
	// bcrypt only accepts passwords up to 72 bytes.
	MaxPasswordLength = 72
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims the name and lower-cases the email so lookups are
// case-insensitive.
func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
}

func (r RegisterRequest) Validate() error {
	if r.Name == "" || r.Email == "" || r.Password == "" {
		return NewValidationError("name", "Name, email and password are required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return NewValidationError("email", "Invalid email address")
	}
	if len(r.Password) < MinPasswordLength {
		return NewValidationError("password", "Password must be at least 6 characters")
	}
	if len(r.Password) > MaxPasswordLength {
		return NewValidationError("password", "Password must be at most 72 bytes")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		return NewValidationError("email", "Email and password are required")
	}
	return nil
}

// AuthResult is what register and login hand back to the caller.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
