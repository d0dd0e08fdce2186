package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/entitlement-service/internal/api/dto"
	"github.com/spec-kit/entitlement-service/internal/auth"
	"github.com/spec-kit/entitlement-service/internal/domain"
	"github.com/spec-kit/entitlement-service/internal/entitlement"
)

// FeaturesHandler exposes entitlement resolution endpoints.
type FeaturesHandler struct {
	resolver   *entitlement.FeatureResolver
	exchangers map[domain.ExchangeTokenKind]*auth.ExchangeTokenService
}

// NewFeaturesHandler constructs handler.
func NewFeaturesHandler(resolver *entitlement.FeatureResolver, exchangers map[domain.ExchangeTokenKind]*auth.ExchangeTokenService) *FeaturesHandler {
	return &FeaturesHandler{resolver: resolver, exchangers: exchangers}
}

// Mine handles GET /me/features for an authenticated session.
func (h *FeaturesHandler) Mine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}

	features, err := h.resolver.ResolveForAccount(c.Context(), principal.Account.ID, c.Query("extension_key"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.NewFeatureResponses(features)})
}

// Exchange handles POST /features/exchange: a dashboard token plus its
// bound identity buys one feature resolution without a full session.
func (h *FeaturesHandler) Exchange(c *fiber.Ctx) error {
	var req dto.TokenAuthenticateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.Identity == "" {
		return fiber.NewError(http.StatusBadRequest, "token and identity required")
	}

	exchanger, ok := h.exchangers[domain.TokenKindDashboard]
	if !ok {
		return fiber.NewError(http.StatusNotFound, "unknown token kind")
	}

	subs, err := exchanger.Authenticate(c.Context(), req.Token, req.Identity, domain.UnixMicros(time.Now()))
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid token")
	}

	features, err := h.resolver.Resolve(c.Context(), subs, c.Query("extension_key"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": dto.NewFeatureResponses(features)})
}
