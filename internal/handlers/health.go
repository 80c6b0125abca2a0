package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/appointlab-backend/internal/session"
)

// SessionStatus reports the local session state
type SessionStatus interface {
	Status() session.Status
}

// HealthHandler handles health check requests
type HealthHandler struct {
	Version string
	Service string
	Session SessionStatus // nil when this process hosts no session
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service, version string, sess SessionStatus) *HealthHandler {
	return &HealthHandler{
		Version: version,
		Service: service,
		Session: sess,
	}
}

// Check returns the health status of the service
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":  "OK",
		"service": h.Service,
		"version": h.Version,
	}
	if h.Session != nil {
		body["session"] = h.Session.Status().State
	}
	return c.JSON(body)
}
