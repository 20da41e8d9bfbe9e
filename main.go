package main

import (
	"fmt"
	"log"

	"github.com/hauswerk/hauswerk/internal/pkg/cache"
	"github.com/hauswerk/hauswerk/internal/pkg/database"
	"github.com/hauswerk/hauswerk/internal/pkg/env"
	"github.com/hauswerk/hauswerk/internal/pkg/router"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/hauswerk/hauswerk/app/repository"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	app := fiber.New(fiber.Config{
		// Provider events are small; anything larger is not a webhook.
		BodyLimit: 1 << 20, // 1 MiB
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
