// Package services holds the credential store, auth gate and content store used by the HTTP layer.
package services

import "errors"

var (
	// ErrDuplicateUsername is returned by Register when the username is already taken.
	ErrDuplicateUsername = errors.New("username is already taken")
	// ErrInvalidCredentials is returned by Login for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUnauthenticated is returned by RequireSession when the request carries no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
)
