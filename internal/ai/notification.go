package ai

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// NotificationKind selects the appointment notification to write
type NotificationKind string

const (
	NotificationConfirmation  NotificationKind = "confirmation"
	NotificationReminder1Day  NotificationKind = "reminder_1day"
	NotificationReminder1Hour NotificationKind = "reminder_1hour"
)

var kindInstructions = map[NotificationKind]string{
	NotificationConfirmation:  "Write a short, friendly WhatsApp message confirming that the client has just booked an appointment. Thank them and remind them of the key details. Purpose: confirm booking and set expectations. Keep to 2-4 sentences.",
	NotificationReminder1Day:  "Write a short, friendly WhatsApp reminder that the client has an appointment TOMORROW. Mention the time and that we look forward to seeing them. Purpose: remind and alert so they don't forget. Keep to 2-3 sentences.",
	NotificationReminder1Hour: "Write a short WhatsApp reminder that the client has an appointment in about one hour. Mention service and time. Purpose: alert them so they can get ready. Keep to 1-2 sentences.",
}

// NotificationDetails are the appointment facts a notification mentions
type NotificationDetails struct {
	BookingID       string
	Name            string
	ServiceName     string
	AppointmentDate string
	AppointmentTime string
	DayDate         string // e.g. "Monday, March 2, 2026"
}

// Notification writes a confirmation or reminder. Provider text is preferred,
// the fixed template is used otherwise. The result is never empty.
func (g *Generator) Notification(ctx context.Context, kind NotificationKind, d NotificationDetails) string {
	instruction, ok := kindInstructions[kind]
	if !ok {
		return NotificationTemplate(kind, d)
	}

	prompt := Prompt{
		System: notificationSystemPrompt,
		Turns: []Turn{{
			Role:    RoleUser,
			Content: instruction + "\n\n" + notificationUserPrompt(kind, d),
		}},
		MaxTokens:   notificationMaxTokens,
		Temperature: notificationTemperature,
	}
	if text, ok := g.complete(ctx, prompt, acceptNotification); ok {
		return text
	}
	return NotificationTemplate(kind, d)
}

func notificationUserPrompt(kind NotificationKind, d NotificationDetails) string {
	date := d.AppointmentDate
	if d.DayDate != "" {
		date += " (" + d.DayDate + ")"
	}
	return fmt.Sprintf("Generate the %s message with these details:\nClient name: %s\nService: %s\nDate: %s\nTime: %s",
		kind, d.Name, d.ServiceName, date, d.AppointmentTime)
}

func acceptNotification(raw string) (string, bool) {
	text := strings.Trim(strings.TrimSpace(raw), `"`)
	if utf8.RuneCountInString(text) <= minReplyRunes {
		return "", false
	}
	return text, true
}

// NotificationTemplate is the fixed text for kind
func NotificationTemplate(kind NotificationKind, d NotificationDetails) string {
	switch kind {
	case NotificationConfirmation:
		return fmt.Sprintf(`Hi %s! 👋

Your appointment has been confirmed!

📋 Service: %s
📅 Date: %s
🕐 Time: %s
🆔 Booking ID: #%s

Please arrive 10 minutes early. You'll receive appointment reminders before your visit.

Thank you for choosing us!`, d.Name, d.ServiceName, d.AppointmentDate, d.AppointmentTime, d.BookingID)
	case NotificationReminder1Day:
		return fmt.Sprintf(`Hi %s! 👋

📅 Reminder: you have an appointment tomorrow.

📋 Service: %s
📅 Date: %s
🕐 Time: %s

We look forward to seeing you! Contact us if you need to reschedule.`, d.Name, d.ServiceName, d.AppointmentDate, d.AppointmentTime)
	default:
		return fmt.Sprintf(`⏰ Reminder: Your appointment is coming up!

📋 Service: %s
📅 Date: %s
🕐 Time: %s
🆔 Booking ID: #%s

Please arrive 10 minutes early. Contact us if you need to reschedule.

See you soon! 👋`, d.ServiceName, d.AppointmentDate, d.AppointmentTime, d.BookingID)
	}
}
