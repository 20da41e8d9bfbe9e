package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hauswerk/hauswerk/internal/pkg/payments"
)

const webhookRequestTimeout = 15 * time.Second

// HandlePaymentWebhook accepts provider event deliveries on
// POST /webhooks/payment.
//
// Response policy: only authenticity failures (400) and configuration or
// storage failures (500) produce non-200 responses. A handler failure is
// recorded on the ledger row and still acknowledged with 200, otherwise the
// provider's retry backoff would hammer a deterministically failing event.
func HandlePaymentWebhook(svc *payments.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// The signature covers the exact bytes on the wire; copy them before
		// fasthttp reuses the buffer.
		rawBody := append([]byte(nil), c.BodyRaw()...)
		signature := c.Get(payments.SignatureHeader)

		ctx, cancel := context.WithTimeout(context.Background(), webhookRequestTimeout)
		defer cancel()

		result, err := svc.Process(ctx, rawBody, signature)
		if err != nil {
			switch {
			case errors.Is(err, payments.ErrSecretNotConfigured):
				// Fatal configuration error: alert operators instead of
				// silently bouncing provider traffic.
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"received": false,
					"error":    "webhook_secret_not_configured",
				})
			case errors.Is(err, payments.ErrMissingSignature), errors.Is(err, payments.ErrSignatureMismatch):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"received": false,
					"error":    "invalid_signature",
				})
			default:
				// Ledger storage failure: non-200 so the provider redelivers.
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"received": false,
					"error":    "event_persist_failed",
				})
			}
		}

		resp := fiber.Map{
			"received":  true,
			"processed": result.Processed,
		}
		if result.Duplicate {
			resp["duplicate"] = true
		}
		if result.HandlerErr != nil {
			resp["error"] = result.HandlerErr.Error()
		}
		return c.Status(fiber.StatusOK).JSON(resp)
	}
}
