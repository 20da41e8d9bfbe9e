package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hauswerk/hauswerk/internal/pkg/env"
)

const adminTokenHeader = "X-Admin-Token"

// AdminTokenAuthMiddleware guards the operator API with a static service
// token. The webhook endpoint itself is authenticated by its signature and
// must stay outside this middleware.
func AdminTokenAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		expected := strings.TrimSpace(env.GetEnv("ADMIN_API_TOKEN", ""))
		if expected == "" {
			log.Print("admin auth middleware: ADMIN_API_TOKEN is not configured")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "admin_api_disabled"})
		}

		got := strings.TrimSpace(c.Get(adminTokenHeader))
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
		}
		return c.Next()
	}
}
