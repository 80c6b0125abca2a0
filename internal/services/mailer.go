package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/Ananth-NQI/appointlab-backend/internal/ai"
)

// Email is one HTML message
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers email notifications
type Mailer interface {
	SendEmail(ctx context.Context, email Email) error
}

// dialer is the part of gomail.Dialer used to deliver
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends email through an SMTP relay
type SMTPMailer struct {
	from   string
	dialer dialer
}

// NewSMTPMailer creates a mailer for the given relay
func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	if from == "" {
		from = user
	}
	return &SMTPMailer{
		from:   from,
		dialer: gomail.NewDialer(host, port, user, pass),
	}
}

// SendEmail delivers the message. gomail has no context support, so ctx is
// only checked before dialing.
func (m *SMTPMailer) SendEmail(ctx context.Context, email Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/html", email.HTML)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email.To, err)
	}
	log.Printf("✅ Email sent to %s: %s", email.To, email.Subject)
	return nil
}

// LogMailer only logs emails. It is used when no SMTP relay is configured.
type LogMailer struct{}

// SendEmail logs the email
func (LogMailer) SendEmail(ctx context.Context, email Email) error {
	log.Printf("📧 Email (not sent, SMTP disabled) to %s: %s", email.To, email.Subject)
	return nil
}

var emailTemplates = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <div style="background: linear-gradient(135deg, #7c3aed 0%, #2563eb 100%); color: white; padding: 20px; border-radius: 8px;">
        <h1>Appointment Confirmed! ✓</h1>
      </div>
      <div style="background: #f9fafb; padding: 20px; margin-top: 20px; border-radius: 8px;">
        <p>Hi {{.Name}},</p>
        <p>Thank you for booking with us! Your appointment has been confirmed.</p>
        <h3>Appointment Details</h3>
        <p>Service: <strong>{{.ServiceName}}</strong></p>
        <p>Date: <strong>{{.AppointmentDate}}</strong></p>
        <p>Time: <strong>{{.AppointmentTime}}</strong></p>
        <p>Booking ID: <strong>#{{.BookingID}}</strong></p>
        <h3>Important Information</h3>
        <ul>
          <li>Please arrive 10 minutes early</li>
          <li>Bring a valid ID and insurance card</li>
          <li>Contact us if you need to reschedule</li>
        </ul>
        {{if .BookingURL}}<p><a href="{{.BookingURL}}">View Booking</a></p>{{end}}
        <p>Best regards,<br>{{.Brand}} Team</p>
      </div>
    </div>
  </body>
</html>`))

func init() {
	template.Must(emailTemplates.New("reminder").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
      <h2>Appointment Reminder</h2>
      <div style="background: #fef3c7; border-left: 4px solid #f59e0b; padding: 15px; border-radius: 4px;">
        <p>Hi {{.Name}},</p>
        <p>This is a friendly reminder about your upcoming appointment:</p>
        <p><strong>{{.ServiceName}}</strong></p>
        <p><strong>Date:</strong> {{.AppointmentDate}}</p>
        <p><strong>Time:</strong> {{.AppointmentTime}}</p>
        <p>Please arrive 10 minutes early. If you need to reschedule, please let us know as soon as possible.</p>
      </div>
    </div>
  </body>
</html>`))
}

type emailData struct {
	ai.NotificationDetails
	Brand      string
	BookingURL string
}

// EmailComposer renders the notification emails
type EmailComposer struct {
	Brand   string
	BaseURL string
}

// Confirmation renders the booking confirmation email
func (c EmailComposer) Confirmation(to string, d ai.NotificationDetails) (Email, error) {
	data := emailData{NotificationDetails: d, Brand: c.Brand}
	if c.BaseURL != "" && d.BookingID != "" {
		data.BookingURL = strings.TrimRight(c.BaseURL, "/") + "/checkout/" + d.BookingID
	}
	html, err := render("confirmation", data)
	if err != nil {
		return Email{}, err
	}
	return Email{To: to, Subject: "Appointment Confirmed - " + d.ServiceName, HTML: html}, nil
}

// Reminder renders the upcoming appointment reminder email
func (c EmailComposer) Reminder(to string, d ai.NotificationDetails) (Email, error) {
	html, err := render("reminder", emailData{NotificationDetails: d, Brand: c.Brand})
	if err != nil {
		return Email{}, err
	}
	return Email{To: to, Subject: "Reminder: Your appointment is coming up", HTML: html}, nil
}

func render(name string, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return buf.String(), nil
}
