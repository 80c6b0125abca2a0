package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/appointlab-backend/internal/services"
)

// AIReplyHandler answers the bridge's requests for a reply
type AIReplyHandler struct {
	replier services.Replier
}

// NewAIReplyHandler creates a new AI reply handler
func NewAIReplyHandler(replier services.Replier) *AIReplyHandler {
	return &AIReplyHandler{replier: replier}
}

// Reply returns {"reply": text}; text is empty for blocked senders
func (h *AIReplyHandler) Reply(c *fiber.Ctx) error {
	var req services.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	from := strings.TrimSpace(req.FromPhone)
	body := strings.TrimSpace(req.Body)
	if from == "" || body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "fromPhone and body are required",
		})
	}

	reply, err := h.replier.Reply(c.UserContext(), from, body)
	if err != nil {
		log.Printf("❌ WhatsApp AI reply error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate reply",
		})
	}
	return c.JSON(services.ReplyResponse{Reply: reply})
}

// TestWebhookPayload is a simulated inbound message for development
type TestWebhookPayload struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

// HandleTestWebhook generates the reply to a simulated message without
// sending anything
func (h *AIReplyHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil || payload.From == "" || payload.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test webhook received from %s: %s", payload.From, payload.Message)
	response, err := h.replier.Reply(c.UserContext(), payload.From, payload.Message)
	if err != nil {
		return err
	}
	log.Printf("📤 Test response generated: %s", response)

	return c.JSON(fiber.Map{
		"success":  true,
		"response": response,
	})
}
