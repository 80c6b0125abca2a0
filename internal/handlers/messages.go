package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/appointlab-backend/internal/services"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
)

// MessageHandler serves the operator's message log and manual sends
type MessageHandler struct {
	store    storage.Store
	outbound services.Outbound
	brand    string
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(store storage.Store, outbound services.Outbound, brand string) *MessageHandler {
	return &MessageHandler{
		store:    store,
		outbound: outbound,
		brand:    brand,
	}
}

// List returns all messages, optionally only those involving ?contact=
func (h *MessageHandler) List(c *fiber.Ctx) error {
	messages, err := h.store.GetMessages(c.UserContext(), c.Query("contact"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// Send sends an operator-written WhatsApp message
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	var req struct {
		ToPhone string `json:"toPhone"`
		Body    string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	to := strings.TrimSpace(req.ToPhone)
	if to == "" || strings.TrimSpace(req.Body) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "toPhone and body are required",
		})
	}

	return sendResult(c, h.outbound.Send(c.UserContext(), to, req.Body, h.brand))
}
