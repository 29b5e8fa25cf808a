package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/giftcard-platform/internal/api/http/handlers"
	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/config"
	"github.com/spec-kit/giftcard-platform/internal/domain"
	"github.com/spec-kit/giftcard-platform/internal/observability"
	"github.com/spec-kit/giftcard-platform/internal/repository"
	"github.com/spec-kit/giftcard-platform/internal/service"
)

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	User    map[string]any  `json:"user"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type tokenData struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type cardData struct {
	ID      string  `json:"id"`
	Status  string  `json:"status"`
	OwnerID *string `json:"owner_id"`
}

func newTestTokens(t *testing.T) *auth.TokenManager {
	t.Helper()
	keys, err := auth.NewKeyring("k1", "router-test-secret", nil)
	if err != nil {
		t.Fatalf("keyring: %v", err)
	}
	tokens, err := auth.NewTokenManager(keys, time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	return tokens
}

func newBaseApp(name string) (*fiber.App, *observability.Metrics) {
	app := fiber.New()
	metrics := observability.NewMetrics(name)
	RegisterMiddlewares(app, MiddlewareConfig{
		Logger:         zap.NewNop(),
		Metrics:        metrics,
		Timeout:        5 * time.Second,
		AllowedOrigins: []string{"https://shop.example"},
	})
	RegisterCommonRoutes(app, CommonRoutes{
		Health:  handlers.NewHealthHandler(name, "test", nil),
		Metrics: metrics,
	})
	return app, metrics
}

func newAuthApp(t *testing.T, tokens *auth.TokenManager, limiter *ClientRateLimiter) *fiber.App {
	t.Helper()
	app, metrics := newBaseApp("auth-service")
	sessions := service.NewSessionService(config.AuthConfig{}, service.SessionDependencies{
		Accounts: repository.NewMemoryAccountRepository(),
		Tokens:   tokens,
		Hasher:   auth.BcryptHasher{Cost: 4},
		Metrics:  metrics,
	})
	RegisterAuthRoutes(app, AuthRoutes{
		Auth:           handlers.NewAuthHandler(sessions),
		AuthMiddleware: auth.NewAuthMiddleware(sessions),
		RateLimiter:    limiter,
	})
	return app
}

func do(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			raw, _ := json.Marshal(b)
			reader = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env
}

func errCode(env envelope) string {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestAuthRoutesSessionFlow(t *testing.T) {
	app := newAuthApp(t, newTestTokens(t), nil)

	status, env := do(t, app, "POST", "/auth/register", "", map[string]string{"username": "alice", "password": "secret", "role": "CONSUMER"})
	if status != fiber.StatusCreated {
		t.Fatalf("register status = %d (%s)", status, errCode(env))
	}
	var registered tokenData
	_ = json.Unmarshal(env.Data, &registered)
	if registered.Token == "" {
		t.Fatal("no token in register response")
	}

	status, env = do(t, app, "POST", "/auth/login", "", map[string]string{"username": "alice", "password": "secret"})
	if status != fiber.StatusOK {
		t.Fatalf("login status = %d (%s)", status, errCode(env))
	}
	var loggedIn tokenData
	_ = json.Unmarshal(env.Data, &loggedIn)
	if loggedIn.Token != registered.Token {
		t.Fatal("login should reuse the registered token")
	}

	status, env = do(t, app, "GET", "/auth/verify", registered.Token, nil)
	if status != fiber.StatusOK || env.Message != "Token is valid" {
		t.Fatalf("verify = %d %+v", status, env)
	}
	if env.User["username"] != "alice" || env.User["role"] != "CONSUMER" {
		t.Fatalf("user = %v", env.User)
	}

	status, env = do(t, app, "POST", "/auth/logout", "", map[string]string{"username": "alice"})
	if status != fiber.StatusOK {
		t.Fatalf("logout status = %d (%s)", status, errCode(env))
	}

	// stateless verification: the token outlives logout
	status, _ = do(t, app, "GET", "/auth/verify", registered.Token, nil)
	if status != fiber.StatusOK {
		t.Fatalf("verify after logout = %d", status)
	}
}

func TestAuthRoutesErrors(t *testing.T) {
	app := newAuthApp(t, newTestTokens(t), nil)
	do(t, app, "POST", "/auth/register", "", map[string]string{"username": "alice", "password": "secret", "role": "MERCHANT"})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		code   string
	}{
		{"invalid role", "POST", "/auth/register", "", map[string]string{"username": "x", "password": "y", "role": "ADMIN"}, 400, "INVALID_ROLE"},
		{"missing fields", "POST", "/auth/register", "", map[string]string{"username": "x"}, 400, "INVALID_REQUEST"},
		{"malformed json", "POST", "/auth/login", "", `{"username":`, 400, "INVALID_REQUEST"},
		{"wrong type", "POST", "/auth/login", "", `{"username": 5, "password": "p"}`, 400, "INVALID_REQUEST"},
		{"unknown user", "POST", "/auth/login", "", map[string]string{"username": "bob", "password": "p"}, 401, "USER_NOT_FOUND"},
		{"wrong password", "POST", "/auth/login", "", map[string]string{"username": "alice", "password": "nope"}, 401, "INVALID_CREDENTIALS"},
		{"role mismatch", "POST", "/auth/login", "", map[string]string{"username": "alice", "password": "secret", "role": "CONSUMER"}, 401, "ROLE_MISMATCH"},
		{"logout unknown", "POST", "/auth/logout", "", map[string]string{"username": "ghost"}, 401, "USER_NOT_FOUND"},
		{"verify without token", "GET", "/auth/verify", "", nil, 401, "UNAUTHORIZED"},
		{"verify garbage token", "GET", "/auth/verify", "garbage", nil, 401, "UNAUTHORIZED"},
		{"unknown route", "GET", "/auth/nope", "", nil, 404, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, app, tt.method, tt.path, tt.token, tt.body)
			if status != tt.status || errCode(env) != tt.code {
				t.Fatalf("got %d %q, want %d %q", status, errCode(env), tt.status, tt.code)
			}
		})
	}
}

func TestAuthRoutesExpiredToken(t *testing.T) {
	keys, _ := auth.NewKeyring("k1", "router-test-secret", nil)
	past, _ := auth.NewTokenManager(keys, time.Hour, auth.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }))
	expired, err := past.Issue("alice", domain.RoleConsumer)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	app := newAuthApp(t, newTestTokens(t), nil)
	status, env := do(t, app, "GET", "/auth/verify", expired.Value, nil)
	if status != fiber.StatusUnauthorized || errCode(env) != "TOKEN_EXPIRED" {
		t.Fatalf("got %d %q", status, errCode(env))
	}
}

func TestAuthRoutesRateLimited(t *testing.T) {
	app := newAuthApp(t, newTestTokens(t), NewClientRateLimiter(0.001, 1))
	body := map[string]string{"username": "bob", "password": "p"}
	if status, _ := do(t, app, "POST", "/auth/login", "", body); status != fiber.StatusUnauthorized {
		t.Fatalf("first request = %d", status)
	}
	status, env := do(t, app, "POST", "/auth/login", "", body)
	if status != fiber.StatusTooManyRequests || errCode(env) != "RATE_LIMITED" {
		t.Fatalf("second request = %d %q", status, errCode(env))
	}
	// logout is not throttled
	if status, _ := do(t, app, "POST", "/auth/logout", "", map[string]string{"username": "bob"}); status == fiber.StatusTooManyRequests {
		t.Fatal("logout throttled")
	}
}

func TestGiftCardRoutes(t *testing.T) {
	tokens := newTestTokens(t)
	verifier := auth.NewAuthMiddleware(auth.CodecVerifier{Tokens: tokens})
	cards := service.NewGiftCardService(repository.NewMemoryGiftCardRepository(), nil, nil)

	merchantApp, _ := newBaseApp("merchant-service")
	RegisterMerchantRoutes(merchantApp, MerchantRoutes{Merchant: handlers.NewMerchantHandler(cards), AuthMiddleware: verifier})
	consumerApp, _ := newBaseApp("consumer-service")
	RegisterConsumerRoutes(consumerApp, ConsumerRoutes{Consumer: handlers.NewConsumerHandler(cards), AuthMiddleware: verifier})

	shop, _ := tokens.Issue("shop", domain.RoleMerchant)
	alice, _ := tokens.Issue("alice", domain.RoleConsumer)

	status, env := do(t, merchantApp, "POST", "/merchant/create", shop.Value, map[string]any{"amount": 5000})
	if status != fiber.StatusCreated {
		t.Fatalf("create = %d %q", status, errCode(env))
	}
	var card cardData
	_ = json.Unmarshal(env.Data, &card)
	if card.Status != "ISSUED" {
		t.Fatalf("card = %+v", card)
	}

	if status, env := do(t, merchantApp, "POST", "/merchant/create", alice.Value, map[string]any{"amount": 1}); status != fiber.StatusForbidden || errCode(env) != "FORBIDDEN" {
		t.Fatalf("consumer on merchant route = %d %q", status, errCode(env))
	}
	if status, env := do(t, merchantApp, "POST", "/merchant/create", "", map[string]any{"amount": 1}); status != fiber.StatusUnauthorized || errCode(env) != "UNAUTHORIZED" {
		t.Fatalf("anonymous = %d %q", status, errCode(env))
	}
	if status, env := do(t, merchantApp, "POST", "/merchant/create", shop.Value, map[string]any{"amount": "lots"}); status != fiber.StatusBadRequest || errCode(env) != "INVALID_REQUEST" {
		t.Fatalf("bad amount = %d %q", status, errCode(env))
	}

	if status, env := do(t, consumerApp, "POST", "/consumer/buy", alice.Value, map[string]string{"card_id": card.ID}); status != fiber.StatusConflict || errCode(env) != "CONFLICT" {
		t.Fatalf("buy before sale = %d %q", status, errCode(env))
	}
	if status, env := do(t, merchantApp, "POST", "/merchant/sell", shop.Value, map[string]string{"card_id": card.ID}); status != fiber.StatusOK {
		t.Fatalf("sell = %d %q", status, errCode(env))
	}

	status, env = do(t, consumerApp, "POST", "/consumer/buy", alice.Value, map[string]string{"card_id": card.ID})
	if status != fiber.StatusOK {
		t.Fatalf("buy = %d %q", status, errCode(env))
	}
	_ = json.Unmarshal(env.Data, &card)
	if card.Status != "SOLD" || card.OwnerID == nil || *card.OwnerID != "alice" {
		t.Fatalf("bought card = %+v", card)
	}

	if status, env := do(t, consumerApp, "POST", "/consumer/share", alice.Value, map[string]string{"card_id": card.ID}); status != fiber.StatusBadRequest || errCode(env) != "INVALID_REQUEST" {
		t.Fatalf("share without recipient = %d %q", status, errCode(env))
	}
	if status, env := do(t, consumerApp, "POST", "/consumer/share", alice.Value, map[string]string{"card_id": card.ID, "recipient": "bob"}); status != fiber.StatusOK {
		t.Fatalf("share = %d %q", status, errCode(env))
	}

	bob, _ := tokens.Issue("bob", domain.RoleConsumer)
	status, env = do(t, consumerApp, "GET", "/consumer/cards", bob.Value, nil)
	var owned []cardData
	_ = json.Unmarshal(env.Data, &owned)
	if status != fiber.StatusOK || len(owned) != 1 {
		t.Fatalf("bob's cards = %d %v", status, owned)
	}

	if status, env := do(t, consumerApp, "POST", "/consumer/buy", alice.Value, map[string]string{"card_id": "00000000-0000-0000-0000-000000000000"}); status != fiber.StatusNotFound || errCode(env) != "NOT_FOUND" {
		t.Fatalf("unknown card = %d %q", status, errCode(env))
	}
}

func TestLogRoutes(t *testing.T) {
	app, _ := newBaseApp("log-service")
	RegisterLogRoutes(app, LogRoutes{Logs: handlers.NewLogsHandler(service.NewLogService(repository.NewMemoryLogRepository()))})

	for _, msg := range []string{"one", "two"} {
		status, env := do(t, app, "POST", "/logs", "", map[string]any{"service": "auth-service", "message": msg, "meta": map[string]any{"k": 1}})
		if status != fiber.StatusCreated {
			t.Fatalf("capture = %d %q", status, errCode(env))
		}
	}
	if status, env := do(t, app, "POST", "/logs", "", map[string]any{"service": "auth-service"}); status != fiber.StatusBadRequest || errCode(env) != "INVALID_REQUEST" {
		t.Fatalf("missing message = %d %q", status, errCode(env))
	}

	status, env := do(t, app, "GET", "/logs?service=auth-service&limit=1", "", nil)
	var entries []struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(env.Data, &entries)
	if status != fiber.StatusOK || len(entries) != 1 || entries[0].Message != "two" {
		t.Fatalf("list = %d %+v", status, entries)
	}
	if status, env := do(t, app, "GET", "/logs?limit=abc", "", nil); status != fiber.StatusBadRequest || errCode(env) != "INVALID_REQUEST" {
		t.Fatalf("bad limit = %d %q", status, errCode(env))
	}
}

func TestCommonRoutes(t *testing.T) {
	app, _ := newBaseApp("log-service")

	if status, _ := do(t, app, "GET", "/health/live", "", nil); status != fiber.StatusOK {
		t.Fatalf("live = %d", status)
	}
	if status, _ := do(t, app, "GET", "/health/ready", "", nil); status != fiber.StatusOK {
		t.Fatalf("ready = %d", status)
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(body), "giftcard_http_requests_total") {
		t.Fatalf("metrics = %d\n%s", resp.StatusCode, body)
	}
}

func TestCORSPreflight(t *testing.T) {
	app, _ := newBaseApp("auth-service")
	req := httptest.NewRequest("OPTIONS", "/health/live", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://shop.example" {
		t.Fatalf("allow-origin = %q", got)
	}
}
