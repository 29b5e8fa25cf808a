package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/giftcard-platform/internal/domain"
	apperrors "github.com/spec-kit/giftcard-platform/pkg/util"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newGateApp(tm *TokenManager, roles ...domain.Role) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
		},
	})
	gate := NewAuthMiddleware(CodecVerifier{Tokens: tm})
	app.Get("/me", gate.Handle, RequireRole(roles...), func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.JSON(identity)
	})
	return app
}

func doGate(t *testing.T, app *fiber.App, header string) (int, errorBody, domain.Identity) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	var body errorBody
	var identity domain.Identity
	if resp.StatusCode == http.StatusOK {
		_ = json.NewDecoder(resp.Body).Decode(&identity)
	} else {
		_ = json.NewDecoder(resp.Body).Decode(&body)
	}
	return resp.StatusCode, body, identity
}

func TestAuthMiddleware(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	tm := newTestManager(t, newTestKeyring(t, nil), func() time.Time { return clock() })
	app := newGateApp(tm)

	issued, err := tm.Issue("alice", domain.RoleConsumer)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name    string
		header  string
		later   time.Duration
		status  int
		code    string
		message string
	}{
		{name: "missing header", header: "", status: 401, code: "UNAUTHORIZED", message: "unauthorized"},
		{name: "wrong scheme", header: "Basic abc", status: 401, code: "UNAUTHORIZED", message: "unauthorized"},
		{name: "empty token", header: "Bearer ", status: 401, code: "UNAUTHORIZED", message: "unauthorized"},
		{name: "garbage token", header: "Bearer nope", status: 401, code: "UNAUTHORIZED", message: "invalid token"},
		{name: "expired", header: "Bearer " + issued.Value, later: 2 * time.Hour, status: 401, code: "TOKEN_EXPIRED", message: "token expired"},
		{name: "valid", header: "Bearer " + issued.Value, status: 200},
		{name: "lowercase scheme", header: "bearer " + issued.Value, status: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock = func() time.Time { return now.Add(tt.later) }
			status, body, identity := doGate(t, app, tt.header)
			if status != tt.status {
				t.Fatalf("status = %d, want %d (%+v)", status, tt.status, body)
			}
			if tt.status == 200 {
				if identity.AccountID != "alice" || identity.Role != domain.RoleConsumer {
					t.Fatalf("identity = %+v", identity)
				}
				return
			}
			if body.Error.Code != tt.code || body.Error.Message != tt.message {
				t.Fatalf("error = %+v, want %s/%s", body.Error, tt.code, tt.message)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tm := newTestManager(t, newTestKeyring(t, nil), time.Now)
	app := newGateApp(tm, domain.RoleMerchant)

	consumer, _ := tm.Issue("carol", domain.RoleConsumer)
	status, body, _ := doGate(t, app, "Bearer "+consumer.Value)
	if status != http.StatusForbidden || body.Error.Code != "FORBIDDEN" {
		t.Fatalf("consumer: status=%d body=%+v", status, body)
	}

	merchant, _ := tm.Issue("mike", domain.RoleMerchant)
	if status, _, identity := doGate(t, app, "Bearer "+merchant.Value); status != http.StatusOK || identity.AccountID != "mike" {
		t.Fatalf("merchant: status=%d identity=%+v", status, identity)
	}
}

type failingVerifier struct{ err error }

func (v failingVerifier) Authenticate(context.Context, string) (domain.Identity, error) {
	return domain.Identity{}, v.err
}

func TestAuthMiddlewareStoreUnavailable(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": de.Code, "message": de.Message}})
		},
	})
	gate := NewAuthMiddleware(failingVerifier{err: fmt.Errorf("%w: dial tcp: refused", domain.ErrStoreUnavailable)})
	app.Get("/me", gate.Handle, func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	status, body, _ := doGate(t, app, "Bearer some.token.value")
	if status != http.StatusServiceUnavailable || body.Error.Code != "STORE_UNAVAILABLE" {
		t.Fatalf("status=%d body=%+v", status, body)
	}
	if body.Error.Message != domain.ErrStoreUnavailable.Error() {
		t.Fatalf("message = %q", body.Error.Message)
	}
}
