package auth

import "errors"

var (
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrMissingToken   = errors.New("auth: missing bearer token")
	ErrSessionRevoked = errors.New("auth: session revoked or expired")
	ErrLocked         = errors.New("auth: too many failed logins")
	ErrMissingSecret  = errors.New("auth: signing secret is not configured")
)
