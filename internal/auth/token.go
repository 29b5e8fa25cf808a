package auth

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/giftcard-platform/internal/domain"
)

// Verification failures. Each wraps the domain kind it surfaces as, so
// callers can branch on either the codec error or the domain kind.
var (
	ErrTokenMalformed = fmt.Errorf("token malformed: %w", domain.ErrUnauthorized)
	ErrTokenSignature = fmt.Errorf("token signature invalid: %w", domain.ErrUnauthorized)
	ErrTokenExpired   = fmt.Errorf("token expired: %w", domain.ErrExpired)
)

// DefaultTokenTTL is the session horizon used when none is configured.
const DefaultTokenTTL = time.Hour

// TokenManager handles issuing and validating JWT session tokens.
type TokenManager struct {
	keys atomic.Pointer[Keyring]
	ttl  time.Duration
	now  func() time.Time
}

// TokenOption customizes a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for iat/exp and verification.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(keys *Keyring, ttl time.Duration, opts ...TokenOption) (*TokenManager, error) {
	if keys == nil {
		return nil, errors.New("keyring required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	tm := &TokenManager{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(tm)
	}
	tm.keys.Store(keys)
	return tm, nil
}

// Claims describes JWT payload.
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Rotate swaps the keyring. Tokens whose kid is absent from the new keyring
// stop verifying immediately.
func (tm *TokenManager) Rotate(keys *Keyring) {
	if keys != nil {
		tm.keys.Store(keys)
	}
}

// Keyring returns the keyring currently in use.
func (tm *TokenManager) Keyring() *Keyring {
	return tm.keys.Load()
}

// TTL returns the lifetime given to issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Issue builds and signs a token for the account with the active key.
func (tm *TokenManager) Issue(accountID string, role domain.Role) (domain.IssuedToken, error) {
	keys := tm.keys.Load()
	now := tm.now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = keys.ActiveID
	tokenString, err := token.SignedString(keys.ActiveSecret())
	if err != nil {
		return domain.IssuedToken{}, err
	}
	return domain.IssuedToken{Value: tokenString, ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature and expiry and returns the decoded identity.
// Signature problems are reported before expiry, so a forged token never
// reads as merely expired.
func (tm *TokenManager) Verify(tokenStr string) (domain.Identity, error) {
	if tokenStr == "" {
		return domain.Identity{}, ErrTokenMalformed
	}
	keys := tm.keys.Load()

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
	)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		secret, ok := keys.Secret(kid)
		if !ok {
			return nil, fmt.Errorf("unknown kid %q", kid)
		}
		return secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domain.Identity{}, ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.Identity{}, ErrTokenExpired
	default:
		return domain.Identity{}, ErrTokenSignature
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return domain.Identity{}, ErrTokenMalformed
	}

	identity := domain.Identity{
		AccountID: claims.Subject,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	return identity, nil
}
