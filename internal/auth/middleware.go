package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/giftcard-platform/internal/domain"
	apperrors "github.com/spec-kit/giftcard-platform/pkg/util"
)

const identityKey = "auth_identity"

// TokenVerifier turns a bearer token into the caller's identity.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// CodecVerifier verifies tokens by signature and expiry alone. Services that
// share the keyring but not the credential store gate requests with it.
type CodecVerifier struct {
	Tokens *TokenManager
}

// Authenticate implements TokenVerifier.
func (v CodecVerifier) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	return v.Tokens.Verify(token)
}

// AuthMiddleware validates bearer tokens and attaches the caller identity.
type AuthMiddleware struct {
	verifier TokenVerifier
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	token, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return apperrors.NewUnauthorized("unauthorized")
	}

	identity, err := m.verifier.Authenticate(c.UserContext(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrExpired):
			return apperrors.NewTokenExpired()
		case errors.Is(err, domain.ErrStoreUnavailable):
			return err
		default:
			return apperrors.NewUnauthorized("invalid token")
		}
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// IdentityFromContext retrieves the authenticated caller.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(domain.Identity)
	return identity, ok
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
