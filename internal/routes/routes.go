package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/Ananth-NQI/appointlab-backend/internal/config"
	"github.com/Ananth-NQI/appointlab-backend/internal/handlers"
	"github.com/Ananth-NQI/appointlab-backend/internal/metrics"
	"github.com/Ananth-NQI/appointlab-backend/internal/middleware"
)

// Handlers are the handler sets a process serves. Nil sets are not routed.
type Handlers struct {
	Health    *handlers.HealthHandler
	Bridge    *handlers.BridgeHandler
	AIReply   *handlers.AIReplyHandler
	Reminders *handlers.ReminderHandler
	Messages  *handlers.MessageHandler
	Settings  *handlers.SettingsHandler
	WhatsApp  *handlers.BridgeProxyHandler
	Webhook   *handlers.WhatsAppHandler
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, cfg *config.Config, h Handlers) {
	endpoints := fiber.Map{
		"health":  "/health",
		"metrics": "/metrics",
	}

	if h.Health != nil {
		app.Get("/health", h.Health.Check)
	}
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// ========== BRIDGE ROUTES ==========
	if h.Bridge != nil {
		app.Get("/status", h.Bridge.Status)
		app.Get("/qr", h.Bridge.QR)
		app.Post("/send", h.Bridge.Send)
		endpoints["bridge"] = []string{"/status", "/qr", "/send"}
	}

	api := app.Group("/api")

	if h.AIReply != nil {
		api.Post("/ai/whatsapp-reply", middleware.RequireBearer(cfg.AIReplySecret), h.AIReply.Reply)
		endpoints["ai_reply"] = "/api/ai/whatsapp-reply"

		// Test WhatsApp endpoint (for development)
		if cfg.Environment != "production" {
			app.Post("/test/whatsapp", h.AIReply.HandleTestWebhook)
			endpoints["test_whatsapp"] = "/test/whatsapp"
		}
	}

	if h.Reminders != nil {
		scheduler := api.Group("/scheduler", middleware.RequireBearer(cfg.SchedulerSecret))
		scheduler.Get("/appointment-reminders", h.Reminders.Scan)
		scheduler.Post("/appointment-reminders", h.Reminders.Trigger)
		api.Post("/notifications/confirmation", middleware.RequireBearer(cfg.AdminSecret), h.Reminders.Confirm)
		endpoints["scheduler"] = "/api/scheduler/appointment-reminders"
	}

	// ========== ADMIN ROUTES ==========
	admin := middleware.RequireBearer(cfg.AdminSecret)
	if h.Messages != nil {
		api.Get("/messages", admin, h.Messages.List)
		api.Post("/messages/send", admin, h.Messages.Send)
	}
	if h.Settings != nil {
		api.Get("/app-settings", admin, h.Settings.GetAppSettings)
		api.Put("/app-settings", admin, h.Settings.UpdateAppSettings)
		api.Get("/blocked-numbers", admin, h.Settings.GetBlockedNumbers)
		api.Put("/blocked-numbers", admin, h.Settings.UpdateBlockedNumbers)
	}
	if h.WhatsApp != nil {
		api.Get("/whatsapp/status", admin, h.WhatsApp.Status)
		api.Get("/whatsapp/qr", admin, h.WhatsApp.QR)
	}

	// ========== WEBHOOK ROUTES ==========
	if h.Webhook != nil {
		webhooks := app.Group("/webhook")
		webhooks.Post("/whatsapp",
			middleware.ValidateTwilioSignature(cfg.TwilioAuthToken, cfg.WebhookValidation),
			h.Webhook.HandleWebhook)
		endpoints["webhook"] = "/webhook/whatsapp"
	}

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Welcome to " + cfg.BrandName + " Backend!",
			"version":   cfg.Version,
			"endpoints": endpoints,
		})
	})
}
