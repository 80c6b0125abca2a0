package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/appointlab-backend/internal/services"
	"github.com/Ananth-NQI/appointlab-backend/internal/session"
)

// Session is the session state shown on the bridge surface
type Session interface {
	Status() session.Status
	PairingQR() (string, error)
}

// BridgeHandler serves the bridge's status, pairing and send endpoints
type BridgeHandler struct {
	session  Session
	outbound services.Outbound
}

// NewBridgeHandler creates a new bridge handler
func NewBridgeHandler(sess Session, outbound services.Outbound) *BridgeHandler {
	return &BridgeHandler{
		session:  sess,
		outbound: outbound,
	}
}

// Status reports whether the session can send
func (h *BridgeHandler) Status(c *fiber.Ctx) error {
	return c.JSON(h.session.Status())
}

// QR returns the pairing QR as a PNG data URL, null once paired
func (h *BridgeHandler) QR(c *fiber.Ctx) error {
	ready := h.session.Status().Ready
	qr, err := h.session.PairingQR()
	if err != nil {
		log.Printf("❌ QR to image error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate QR image",
		})
	}
	if qr == "" {
		return c.JSON(fiber.Map{"qr": nil, "ready": ready})
	}
	return c.JSON(fiber.Map{"qr": qr, "ready": false})
}

// SendRequest is the body of POST /send
type SendRequest struct {
	To     string  `json:"to"`
	Body   string  `json:"body"`
	Sender *string `json:"sender"`
}

// Send delivers one message through the session
func (h *BridgeHandler) Send(c *fiber.Ctx) error {
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	to := strings.TrimSpace(req.To)
	if to == "" || req.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "to and body are required",
		})
	}

	sender := ""
	if req.Sender != nil {
		sender = *req.Sender
	}
	return sendResult(c, h.outbound.Send(c.UserContext(), to, req.Body, sender))
}

// sendResult maps an Outbound.Send error to the HTTP response
func sendResult(c *fiber.Ctx, err error) error {
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"ok": true})
	case errors.Is(err, services.ErrRecipientBlocked):
		return c.JSON(fiber.Map{"ok": true, "blocked": true})
	case errors.Is(err, session.ErrNotReady):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "WhatsApp client not ready",
		})
	}
	log.Printf("❌ Send failed: %v", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
