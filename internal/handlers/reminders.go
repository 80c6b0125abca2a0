package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/appointlab-backend/internal/jobs"
	"github.com/Ananth-NQI/appointlab-backend/internal/models"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
)

// Dispatcher is the reminder dispatcher as used over HTTP
type Dispatcher interface {
	RunScan(ctx context.Context, now time.Time) (*jobs.ScanReport, error)
	TriggerManual(ctx context.Context, appointmentID string) (*models.ManualReminderResult, error)
	SendConfirmation(ctx context.Context, appointmentID string) (*models.ManualReminderResult, error)
}

// ReminderHandler exposes the reminder scan and single-appointment sends
type ReminderHandler struct {
	dispatcher Dispatcher
	now        func() time.Time
}

// NewReminderHandler creates a new reminder handler
func NewReminderHandler(d Dispatcher) *ReminderHandler {
	return &ReminderHandler{
		dispatcher: d,
		now:        time.Now,
	}
}

// Scan runs one reminder scan. It is meant to be called every few minutes
// by an external scheduler.
func (h *ReminderHandler) Scan(c *fiber.Ctx) error {
	report, err := h.dispatcher.RunScan(c.UserContext(), h.now())
	if err != nil {
		log.Printf("❌ Error in appointment reminder scheduler: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to process appointment reminders",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   fmt.Sprintf("Checked %d appointments. Sent %d reminders.", report.Checked, len(report.Reminders)),
		"reminders": report.Reminders,
		"checkedAt": report.CheckedAt.UTC().Format(time.RFC3339Nano),
	})
}

// appointmentRef accepts an appointment id given as a JSON string or number
type appointmentRef string

func (r *appointmentRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = appointmentRef(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = appointmentRef(n.String())
	return nil
}

type appointmentRequest struct {
	AppointmentID appointmentRef `json:"appointmentId"`
}

// Trigger sends a reminder for one appointment, ignoring the sent markers
func (h *ReminderHandler) Trigger(c *fiber.Ctx) error {
	return h.single(c, h.dispatcher.TriggerManual)
}

// Confirm sends the booking confirmation for one appointment
func (h *ReminderHandler) Confirm(c *fiber.Ctx) error {
	return h.single(c, h.dispatcher.SendConfirmation)
}

func (h *ReminderHandler) single(c *fiber.Ctx, send func(context.Context, string) (*models.ManualReminderResult, error)) error {
	var req appointmentRequest
	if err := c.BodyParser(&req); err != nil || req.AppointmentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "appointmentId is required",
		})
	}
	id := string(req.AppointmentID)

	res, err := send(c.UserContext(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Appointment not found",
		})
	}
	if err != nil {
		log.Printf("❌ Error sending notification for %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to send reminder",
			"details": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":       len(res.Errors) == 0,
		"results":       res,
		"appointmentId": id,
	})
}
