package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/giftcard-platform/internal/api/http/handlers"
	"github.com/spec-kit/giftcard-platform/internal/auth"
	"github.com/spec-kit/giftcard-platform/internal/domain"
	"github.com/spec-kit/giftcard-platform/internal/observability"
)

// CommonRoutes are served by every service.
type CommonRoutes struct {
	Health  *handlers.HealthHandler
	Metrics *observability.Metrics
}

// RegisterCommonRoutes wires health probes and the metrics endpoint.
func RegisterCommonRoutes(app *fiber.App, cfg CommonRoutes) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}
}

// AuthRoutes bundles dependencies for the auth service.
type AuthRoutes struct {
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *ClientRateLimiter
}

// RegisterAuthRoutes wires the session endpoints. Credential endpoints are
// throttled per client; logout stays ungated and takes the username in the body.
func RegisterAuthRoutes(app *fiber.App, cfg AuthRoutes) {
	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.RateLimiter.Handler(), cfg.Auth.Register)
	authGroup.Post("/login", cfg.RateLimiter.Handler(), cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/verify", cfg.AuthMiddleware.Handle, cfg.Auth.Verify)
}

// MerchantRoutes bundles dependencies for the merchant service.
type MerchantRoutes struct {
	Merchant       *handlers.MerchantHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterMerchantRoutes wires card issuing behind the merchant role.
func RegisterMerchantRoutes(app *fiber.App, cfg MerchantRoutes) {
	merchant := app.Group("/merchant", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleMerchant))
	merchant.Post("/create", cfg.Merchant.Create)
	merchant.Post("/sell", cfg.Merchant.Sell)
	merchant.Get("/cards", cfg.Merchant.List)
}

// ConsumerRoutes bundles dependencies for the consumer service.
type ConsumerRoutes struct {
	Consumer       *handlers.ConsumerHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterConsumerRoutes wires buying and sharing behind the consumer role.
func RegisterConsumerRoutes(app *fiber.App, cfg ConsumerRoutes) {
	consumer := app.Group("/consumer", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleConsumer))
	consumer.Post("/buy", cfg.Consumer.Buy)
	consumer.Post("/share", cfg.Consumer.Share)
	consumer.Get("/cards", cfg.Consumer.List)
}

// LogRoutes bundles dependencies for the log service.
type LogRoutes struct {
	Logs *handlers.LogsHandler
}

// RegisterLogRoutes wires log capture and listing.
func RegisterLogRoutes(app *fiber.App, cfg LogRoutes) {
	logs := app.Group("/logs")
	logs.Post("", cfg.Logs.Capture)
	logs.Get("", cfg.Logs.List)
}
