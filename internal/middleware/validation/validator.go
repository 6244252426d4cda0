package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const maxBodyBytes = 4 * 1024

// Middleware rejects malformed trigger requests before they reach the
// handlers. The API only accepts small JSON bodies; anything else is noise.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		if len(c.Body()) > maxBodyBytes {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": "Request body too large",
			})
		}

		if len(c.Body()) > 0 {
			contentType := c.Get("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Content-Type must be application/json",
				})
			}
		}

		return c.Next()
	}
}
