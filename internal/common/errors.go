// Package common defines shared constants, helpers and sentinel errors used
// across gophauth components. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors. Every failure of an auth operation wraps exactly
	// one of these.
	ErrorValidation         = errors.New("validation failure")
	ErrorDuplicateUsername  = errors.New("username already exists")
	ErrorInvalidCredentials = errors.New("invalid username or password")
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorStorage            = errors.New("storage failure")

	// Session cookie errors (invalid or malformed envelope).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
