package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitcore/fitness-gatekeeper/internal/api/dto"
	"github.com/fitcore/fitness-gatekeeper/internal/service"
)

// WebhookHandler receives billing deliveries.
type WebhookHandler struct {
	billing         *service.BillingWebhookService
	signatureHeader string
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(billing *service.BillingWebhookService, signatureHeader string) *WebhookHandler {
	if signatureHeader == "" {
		signatureHeader = "X-Signature"
	}
	return &WebhookHandler{billing: billing, signatureHeader: signatureHeader}
}

// Billing POST /webhooks/billing. The raw body is verified before it is parsed.
func (h *WebhookHandler) Billing(c *fiber.Ctx) error {
	body := append([]byte(nil), c.Body()...)
	result, err := h.billing.Handle(c.UserContext(), body, c.Get(h.signatureHeader))
	if err != nil {
		return err
	}
	return c.JSON(dto.WebhookAck{
		Received:  true,
		EventID:   result.EventID,
		Applied:   result.Applied,
		Duplicate: result.Duplicate,
	})
}
