package domain

import "time"

// Role enumerates the account kinds allowed to hold a session.
type Role string

const (
	RoleMerchant Role = "MERCHANT"
	RoleConsumer Role = "CONSUMER"
)

// Roles lists every valid role.
var Roles = []Role{RoleMerchant, RoleConsumer}

// Valid reports whether r is one of the fixed roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMerchant, RoleConsumer:
		return true
	default:
		return false
	}
}

// Account is the credential record keyed by username.
// CurrentToken is nil when the account has no active session.
type Account struct {
	ID           string
	PasswordHash string
	Role         Role
	CurrentToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasSession reports whether a token is tracked for the account.
func (a *Account) HasSession() bool {
	return a != nil && a.CurrentToken != nil && *a.CurrentToken != ""
}
