package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// RequireBearer rejects requests without "Authorization: Bearer <secret>".
// An empty secret leaves the route open.
func RequireBearer(secret string) fiber.Handler {
	expected := []byte("Bearer " + secret)
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		if subtle.ConstantTimeCompare([]byte(c.Get(fiber.HeaderAuthorization)), expected) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}
