package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/appointlab-backend/internal/services"
	"github.com/Ananth-NQI/appointlab-backend/internal/session"
)

// InboundSink accepts messages received by webhook
type InboundSink interface {
	Deliver(msg session.Inbound) error
}

// WhatsAppHandler handles the Twilio webhook
type WhatsAppHandler struct {
	sink InboundSink
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(sink InboundSink) *WhatsAppHandler {
	return &WhatsAppHandler{sink: sink}
}

// TwilioWebhookPayload represents incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid          string `form:"MessageSid"`
	AccountSid          string `form:"AccountSid"`
	MessagingServiceSid string `form:"MessagingServiceSid"`
	From                string `form:"From"` // WhatsApp number (whatsapp:+212612345678)
	To                  string `form:"To"`   // Your Twilio number
	Body                string `form:"Body"` // Message text
	ProfileName         string `form:"ProfileName"`
	NumMedia            string `form:"NumMedia"`
	MediaUrl0           string `form:"MediaUrl0"`
	MediaContentType0   string `form:"MediaContentType0"`
}

// HandleWebhook feeds incoming WhatsApp messages into the session
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Status callbacks carry no body
	if payload.Body == "" || payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	err := h.sink.Deliver(session.Inbound{
		From:     payload.From,
		To:       payload.To,
		Body:     payload.Body,
		PushName: payload.ProfileName,
	})
	if err != nil {
		log.Printf("❌ Could not accept webhook message %s: %v", payload.MessageSid, err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.SendStatus(fiber.StatusOK)
}

// BridgeStatus is the bridge as seen from the application
type BridgeStatus interface {
	Status(ctx context.Context) (session.Status, error)
	QR(ctx context.Context) (services.QRResponse, error)
}

// BridgeProxyHandler lets the application UI poll a separate bridge
type BridgeProxyHandler struct {
	bridge BridgeStatus
}

// NewBridgeProxyHandler creates a new bridge proxy handler
func NewBridgeProxyHandler(bridge BridgeStatus) *BridgeProxyHandler {
	return &BridgeProxyHandler{bridge: bridge}
}

// Status returns the bridge status, or not ready when it is unreachable
func (h *BridgeProxyHandler) Status(c *fiber.Ctx) error {
	st, err := h.bridge.Status(c.UserContext())
	if err != nil {
		log.Printf("⚠️  WhatsApp bridge status unavailable: %v", err)
		return c.JSON(fiber.Map{"ready": false})
	}
	return c.JSON(st)
}

// QR returns the bridge pairing QR, or none when it is unreachable
func (h *BridgeProxyHandler) QR(c *fiber.Ctx) error {
	qr, err := h.bridge.QR(c.UserContext())
	if err != nil {
		log.Printf("⚠️  WhatsApp bridge QR unavailable: %v", err)
		return c.JSON(fiber.Map{"qr": nil, "ready": false})
	}
	return c.JSON(qr)
}

// LocalBridge serves the proxy endpoints from a session in this process
func LocalBridge(sess Session) BridgeStatus {
	return localBridge{sess}
}

type localBridge struct {
	sess Session
}

func (l localBridge) Status(ctx context.Context) (session.Status, error) {
	return l.sess.Status(), nil
}

func (l localBridge) QR(ctx context.Context) (services.QRResponse, error) {
	qr, err := l.sess.PairingQR()
	if err != nil {
		return services.QRResponse{}, err
	}
	if qr == "" {
		return services.QRResponse{Ready: l.sess.Status().Ready}, nil
	}
	return services.QRResponse{QR: &qr}, nil
}
