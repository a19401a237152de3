package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/expedition/internal/pkg/logging"
)

// RequestIDLogMiddleware copies the Fiber request ID into the user context,
// so every slog call made with that context downstream logs it.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid != "" {
			c.SetUserContext(logging.WithRequestID(c.UserContext(), rid))
		}
		return c.Next()
	}
}
