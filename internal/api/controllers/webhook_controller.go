package controllers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"nexora/internal/services"
	"nexora/pkg/utils"
)

// Webhook payloads are small; the limit protects against abuse.
const maxWebhookBodySize = 1 << 20 // 1 MiB

// WebhookController terminates the provider's webhook deliveries. The
// endpoint is unauthenticated: signature verification is the auth mechanism.
type WebhookController struct {
	webhookService services.WebhookService
}

func NewWebhookController(webhookService services.WebhookService) *WebhookController {
	return &WebhookController{webhookService: webhookService}
}

func (w *WebhookController) HandleWebhook(c *gin.Context) {
	// The signature covers the exact byte sequence; read raw, parse later.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodySize)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Failed to read request body")
		return
	}

	sigHeader := c.GetHeader("Stripe-Signature")
	if sigHeader == "" {
		utils.RespondError(c, http.StatusBadRequest, "Missing signature header")
		return
	}

	result, err := w.webhookService.ProcessWebhook(c.Request.Context(), payload, sigHeader)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidSignature), errors.Is(err, utils.ErrStaleEvent):
			utils.RespondError(c, http.StatusBadRequest, err.Error())
		default:
			// Non-2xx makes the provider redeliver later.
			log.Printf("webhook: processing failed: %v", err)
			utils.RespondError(c, http.StatusInternalServerError, "Event processing failed")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
