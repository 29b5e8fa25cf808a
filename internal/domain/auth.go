package domain

import "time"

// Identity is the caller decoded from a verified session token.
type Identity struct {
	AccountID string    `json:"username"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"jti,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// IssuedToken is a signed session token together with its expiry.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}
