package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/entitlement-service/internal/api/http/handlers"
	"github.com/spec-kit/entitlement-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Accounts       *handlers.AccountsHandler
	Features       *handlers.FeaturesHandler
	Tokens         *handlers.TokensHandler
	Billing        *handlers.BillingHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Accounts.Register)
	authGroup.Post("/login", cfg.Accounts.Login)

	app.Post("/billing/events", cfg.Billing.HandleEvent)

	app.Post("/tokens", cfg.Tokens.Issue)
	app.Post("/tokens/authenticate", cfg.Tokens.Authenticate)
	app.Post("/features/exchange", cfg.Features.Exchange)

	protected := app.Group("/me", cfg.AuthMiddleware.Handle)
	protected.Get("/features", cfg.Features.Mine)
}
