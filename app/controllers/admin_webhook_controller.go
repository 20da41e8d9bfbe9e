package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hauswerk/hauswerk/app/models"
	"github.com/hauswerk/hauswerk/app/repository"
	"github.com/hauswerk/hauswerk/internal/pkg/payments"
	"github.com/hauswerk/hauswerk/internal/pkg/statistics"
)

const adminListDefaultLimit = 50
const adminListMaxLimit = 500

// HandleAdminWebhookList lists ledger rows for operator follow-up, newest
// first. ?status=failed narrows to rows needing attention.
func HandleAdminWebhookList(events repository.WebhookEventRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", adminListDefaultLimit)
		if limit < 1 || limit > adminListMaxLimit {
			limit = adminListDefaultLimit
		}

		var (
			rows []models.WebhookEvent
			err  error
		)
		if status := c.Query("status"); status != "" {
			rows, err = events.ListByStatus(status, limit)
		} else {
			rows, err = events.ListRecent(limit)
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_list_failed"})
		}

		failedCount, err := events.CountByStatus(models.WebhookStatusFailed)
		if err != nil {
			failedCount = -1
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"events":       rows,
			"failed_total": failedCount,
		})
	}
}

// HandleAdminWebhookReplay re-runs a stored event from its payload snapshot.
// This is the manual convergence path for rows stuck in failed.
func HandleAdminWebhookReplay(svc *payments.Service, events repository.WebhookEventRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_event_id"})
		}

		stored, err := events.GetByID(uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "event_not_found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_lookup_failed"})
		}
		if stored.Status == models.WebhookStatusProcessed {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "event_already_processed"})
		}

		ctx, cancel := context.WithTimeout(context.Background(), webhookRequestTimeout)
		defer cancel()

		result, err := svc.Replay(ctx, stored)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "replay_failed"})
		}

		resp := fiber.Map{"processed": result.Processed}
		if result.HandlerErr != nil {
			resp["error"] = result.HandlerErr.Error()
		}
		return c.Status(fiber.StatusOK).JSON(resp)
	}
}

// HandleAdminWebhookStats exposes the Redis ingestion counters.
func HandleAdminWebhookStats() fiber.Handler {
	return func(c *fiber.Ctx) error {
		counters, err := statistics.WebhookCounters()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_unavailable"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"counters":     counters,
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
