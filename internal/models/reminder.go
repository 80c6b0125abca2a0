package models

// ReminderKind identifies one idempotent notification of an appointment.
type ReminderKind string

// Reminder kinds, each backed by its own *SentAt marker
const (
	ReminderConfirmation ReminderKind = "confirmation"
	Reminder1Day         ReminderKind = "1day"
	Reminder1Hour        ReminderKind = "1hour"
	ReminderEmail        ReminderKind = "email"
)

// Notification channels
const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
)

// ReminderResult is reported per appointment and channel by a scan
type ReminderResult struct {
	Success       bool         `json:"success"`
	Type          string       `json:"type"` // channel
	AppointmentID string       `json:"appointmentId"`
	ReminderKind  ReminderKind `json:"reminderKind,omitempty"`
	Phone         string       `json:"phone,omitempty"`
	Email         string       `json:"email,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// ManualReminderResult is returned by the single-appointment trigger
type ManualReminderResult struct {
	WhatsApp *ChannelDelivery `json:"whatsapp"`
	Email    *ChannelDelivery `json:"email"`
	Errors   []string         `json:"errors"`
}

// ChannelDelivery describes one delivered notification
type ChannelDelivery struct {
	To      string `json:"to"`
	Skipped bool   `json:"skipped,omitempty"`
}
