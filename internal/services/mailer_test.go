package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/Ananth-NQI/appointlab-backend/internal/ai"
)

type fakeDialer struct {
	err  error
	sent []*gomail.Message
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, m...)
	return nil
}

func TestSMTPMailerSendEmail(t *testing.T) {
	d := &fakeDialer{}
	m := &SMTPMailer{from: "noreply@appointlab.test", dialer: d}

	err := m.SendEmail(context.Background(), Email{To: "sara@example.com", Subject: "Reminder", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	assert.Equal(t, []string{"sara@example.com"}, d.sent[0].GetHeader("To"))
	assert.Equal(t, []string{"noreply@appointlab.test"}, d.sent[0].GetHeader("From"))
	assert.Equal(t, []string{"Reminder"}, d.sent[0].GetHeader("Subject"))
}

func TestSMTPMailerErrors(t *testing.T) {
	m := &SMTPMailer{from: "noreply@appointlab.test", dialer: &fakeDialer{err: errors.New("connection refused")}}
	err := m.SendEmail(context.Background(), Email{To: "sara@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sara@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendEmail(ctx, Email{To: "sara@example.com"}), context.Canceled)
}

func TestNewSMTPMailerDefaultsFromToUser(t *testing.T) {
	m := NewSMTPMailer("smtp.example.com", 587, "bot@example.com", "pw", "")
	assert.Equal(t, "bot@example.com", m.from)
}

func TestEmailComposer(t *testing.T) {
	c := EmailComposer{Brand: "AppointLab", BaseURL: "https://appointlab.test/"}
	d := ai.NotificationDetails{
		BookingID:       "APT00001",
		Name:            "<Sara>",
		ServiceName:     "Blood test",
		AppointmentDate: "2026-03-02",
		AppointmentTime: "09:30",
	}

	conf, err := c.Confirmation("sara@example.com", d)
	require.NoError(t, err)
	assert.Equal(t, "Appointment Confirmed - Blood test", conf.Subject)
	assert.Contains(t, conf.HTML, "&lt;Sara&gt;")
	assert.Contains(t, conf.HTML, "https://appointlab.test/checkout/APT00001")
	assert.Contains(t, conf.HTML, "AppointLab Team")

	rem, err := c.Reminder("sara@example.com", d)
	require.NoError(t, err)
	assert.Equal(t, "sara@example.com", rem.To)
	assert.Equal(t, "Reminder: Your appointment is coming up", rem.Subject)
	assert.Contains(t, rem.HTML, "<strong>Blood test</strong>")
	assert.Contains(t, rem.HTML, "09:30")
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.SendEmail(context.Background(), Email{To: "x@example.com"}))
}
