package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/twilio/twilio-go/client"
)

// ValidateTwilioSignature validates that the webhook request is from Twilio.
// When enabled is false every request passes; this is only allowed outside
// production.
func ValidateTwilioSignature(authToken string, enabled bool) fiber.Handler {
	if !enabled {
		log.Println("⚠️  Twilio webhook signature validation is DISABLED")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	validator := client.NewRequestValidator(authToken)
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Twilio signature",
			})
		}

		if authToken == "" {
			log.Println("❌ TWILIO_AUTH_TOKEN not set, cannot validate webhook")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		params := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			params[string(key)] = string(value)
		})

		if !validator.Validate(fullURL(c), params, signature) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}
		return c.Next()
	}
}

// fullURL is the URL Twilio signed: scheme, host, path and query
func fullURL(c *fiber.Ctx) string {
	return c.BaseURL() + c.OriginalURL()
}
