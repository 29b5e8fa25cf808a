package domain

import "errors"

// Error kinds surfaced by the services. Callers add detail by wrapping,
// e.g. fmt.Errorf("%w: %s", ErrInvalidRole, role), and test with errors.Is.
var (
	ErrInvalidRequest     = errors.New("invalid request data")
	ErrInvalidRole        = errors.New("invalid role specified")
	ErrUserNotFound       = errors.New("user does not exist")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRoleMismatch       = errors.New("invalid role for user")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrExpired            = errors.New("token expired")
	ErrStoreUnavailable   = errors.New("credential store unavailable")

	ErrNotFound  = errors.New("resource not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
)
