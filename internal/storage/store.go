package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Ananth-NQI/appointlab-backend/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Store defines the interface for storage operations
type Store interface {
	// Message operations
	AppendMessage(ctx context.Context, msg *models.Message) (uint, error)
	GetMessagesByParticipant(ctx context.Context, identifier string, limit int) ([]*models.Message, error)
	GetMessages(ctx context.Context, contact string) ([]*models.Message, error)

	// Appointment operations
	CreateAppointment(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	GetUpcomingAppointments(ctx context.Context, statuses []string, fromDate string) ([]*models.Appointment, error)
	GetAppointmentsByPhone(ctx context.Context, phone string) ([]*models.Appointment, error)

	// MarkReminderSent sets the marker for kind only if it is still unset.
	// It reports false when another caller already holds the marker.
	MarkReminderSent(ctx context.Context, appointmentID string, kind models.ReminderKind, at time.Time) (bool, error)
	// ReleaseReminder clears the marker for kind after a failed delivery so
	// the next scan claims it again.
	ReleaseReminder(ctx context.Context, appointmentID string, kind models.ReminderKind) error

	// Settings operations
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// markerColumn maps a reminder kind to its appointment column
func markerColumn(kind models.ReminderKind) (string, bool) {
	switch kind {
	case models.ReminderConfirmation:
		return "confirmation_sent_at", true
	case models.Reminder1Day:
		return "reminder1_day_sent_at", true
	case models.Reminder1Hour:
		return "reminder1_hour_sent_at", true
	case models.ReminderEmail:
		return "email_reminder_sent_at", true
	}
	return "", false
}

// ReminderMarker returns a pointer to the marker field for kind
func ReminderMarker(a *models.Appointment, kind models.ReminderKind) **time.Time {
	switch kind {
	case models.ReminderConfirmation:
		return &a.ConfirmationSentAt
	case models.Reminder1Day:
		return &a.Reminder1DaySentAt
	case models.Reminder1Hour:
		return &a.Reminder1HourSentAt
	case models.ReminderEmail:
		return &a.EmailReminderSentAt
	}
	return nil
}
