package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/entitlement-service/internal/api/dto"
	"github.com/spec-kit/entitlement-service/internal/auth"
	"github.com/spec-kit/entitlement-service/internal/domain"
)

// TokensHandler exposes exchange-token issuance and redemption.
type TokensHandler struct {
	exchangers map[domain.ExchangeTokenKind]*auth.ExchangeTokenService
}

// NewTokensHandler constructs handler.
func NewTokensHandler(exchangers map[domain.ExchangeTokenKind]*auth.ExchangeTokenService) *TokensHandler {
	return &TokensHandler{exchangers: exchangers}
}

// Issue handles POST /tokens.
func (h *TokensHandler) Issue(c *fiber.Ctx) error {
	var req dto.TokenIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Identity == "" {
		return fiber.NewError(http.StatusBadRequest, "identity required")
	}

	exchanger, ok := h.exchangers[domain.ExchangeTokenKind(req.Kind)]
	if !ok {
		return fiber.NewError(http.StatusNotFound, "unknown token kind")
	}

	token, err := exchanger.Issue(c.Context(), req.Identity)
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": dto.TokenIssueResponse{Token: token.Token, ExpiresAt: token.ExpiresAt},
	})
}

// Authenticate handles POST /tokens/authenticate. All failure modes
// collapse into one generic response.
func (h *TokensHandler) Authenticate(c *fiber.Ctx) error {
	var req dto.TokenAuthenticateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.Identity == "" {
		return fiber.NewError(http.StatusBadRequest, "token and identity required")
	}

	exchanger, ok := h.exchangers[domain.ExchangeTokenKind(req.Kind)]
	if !ok {
		return fiber.NewError(http.StatusNotFound, "unknown token kind")
	}

	subs, err := exchanger.Authenticate(c.Context(), req.Token, req.Identity, domain.UnixMicros(time.Now()))
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, "invalid token")
	}

	return c.JSON(fiber.Map{"data": dto.NewSubscriptionResponses(subs)})
}
