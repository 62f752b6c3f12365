package application

import "errors"

var (
	// ErrNotFound signals a missing target that the caller is allowed to see.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCredentials covers failed login and failed current-password
	// checks; it surfaces as an unauthenticated-class failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken signals a username conflict at signup.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidToken covers expired or unknown verification tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)
