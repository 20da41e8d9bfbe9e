package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hauswerk/hauswerk/app/controllers"
	"github.com/hauswerk/hauswerk/internal/pkg/database"
	"github.com/hauswerk/hauswerk/internal/pkg/payments"
)

type WebhookRouter struct {
}

func (h WebhookRouter) InstallRouter(app *fiber.App) {
	svc := payments.NewServiceFromDB(database.GetDB())
	app.Post("/webhooks/payment", controllers.HandlePaymentWebhook(svc))
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
