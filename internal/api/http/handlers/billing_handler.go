package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/entitlement-service/internal/api/dto"
	"github.com/spec-kit/entitlement-service/internal/service"
)

// BillingHandler receives upstream billing notifications.
type BillingHandler struct {
	billing *service.BillingService
}

// NewBillingHandler constructs handler.
func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billing: billingService}
}

// HandleEvent handles POST /billing/events.
func (h *BillingHandler) HandleEvent(c *fiber.Ctx) error {
	var req dto.BillingEventRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Type == "" || req.Email == "" || req.Plan == "" {
		return fiber.NewError(http.StatusBadRequest, "type, email, plan required")
	}

	err := h.billing.HandleEvent(c.Context(), service.BillingEvent{
		Type:      service.BillingEventType(req.Type),
		Email:     req.Email,
		Plan:      req.Plan,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return err
	}

	return c.SendStatus(http.StatusAccepted)
}
