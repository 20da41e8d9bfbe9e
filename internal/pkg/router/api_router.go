package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/hauswerk/hauswerk/app/controllers"
	"github.com/hauswerk/hauswerk/app/repository"
	"github.com/hauswerk/hauswerk/internal/pkg/database"
	"github.com/hauswerk/hauswerk/internal/pkg/middleware"
	"github.com/hauswerk/hauswerk/internal/pkg/payments"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	v1 := api.Group("/v1")
	v1.Get("/health", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	svc := payments.NewServiceFromDB(database.GetDB())
	events := repository.GetGlobalFactory().GetWebhookEventRepository()

	admin := v1.Group("/admin", middleware.AdminTokenAuthMiddleware())
	admin.Get("/webhooks", controllers.HandleAdminWebhookList(events))
	admin.Get("/webhooks/stats", controllers.HandleAdminWebhookStats())
	admin.Post("/webhooks/:id/replay", controllers.HandleAdminWebhookReplay(svc, events))
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
