package dto

import (
	"strings"
	"time"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// Missing lists required fields that are absent.
func (r RegisterRequest) Missing() []string {
	return missing(map[string]string{"username": r.Username, "password": r.Password, "role": string(r.Role)})
}

// LoginRequest payload for login. Role is optional.
type LoginRequest struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role,omitempty"`
}

func (r LoginRequest) Missing() []string {
	return missing(map[string]string{"username": r.Username, "password": r.Password})
}

// LogoutRequest payload for logout.
type LogoutRequest struct {
	Username string `json:"username"`
}

func (r LogoutRequest) Missing() []string {
	return missing(map[string]string{"username": r.Username})
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewAuthResponse converts an issued token.
func NewAuthResponse(token domain.IssuedToken) AuthResponse {
	return AuthResponse{Token: token.Value, ExpiresAt: token.ExpiresAt}
}

// IdentityResponse is the decoded caller returned by GET /auth/verify.
type IdentityResponse struct {
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	IssuedAt  time.Time   `json:"iat"`
	ExpiresAt time.Time   `json:"exp"`
}

func NewIdentityResponse(identity domain.Identity) IdentityResponse {
	return IdentityResponse{
		Username:  identity.AccountID,
		Role:      identity.Role,
		IssuedAt:  identity.IssuedAt,
		ExpiresAt: identity.ExpiresAt,
	}
}

func missing(fields map[string]string) []string {
	var out []string
	for _, name := range []string{"username", "password", "role", "card_id", "recipient", "service", "message"} {
		if value, ok := fields[name]; ok && strings.TrimSpace(value) == "" {
			out = append(out, name)
		}
	}
	return out
}
