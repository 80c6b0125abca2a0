package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Ananth-NQI/appointlab-backend/internal/metrics"
	"github.com/Ananth-NQI/appointlab-backend/internal/models"
	"github.com/Ananth-NQI/appointlab-backend/internal/session"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
	"github.com/Ananth-NQI/appointlab-backend/internal/utils"
)

// ErrRecipientBlocked is returned when the recipient is on the blocklist.
// Callers treat it as a silent no-op.
var ErrRecipientBlocked = errors.New("recipient is blocked")

// Outbound sends a WhatsApp message on behalf of the application
type Outbound interface {
	Send(ctx context.Context, to, body, sender string) error
}

// Session is the part of the session manager used for sending
type Session interface {
	Send(ctx context.Context, to, body string) error
	Status() session.Status
}

// Messenger sends through the local session and records every sent message
type Messenger struct {
	store   storage.Store
	session Session
	access  *AccessFilter
}

// NewMessenger creates a new messenger
func NewMessenger(store storage.Store, sess Session, access *AccessFilter) *Messenger {
	return &Messenger{
		store:   store,
		session: sess,
		access:  access,
	}
}

// Send delivers body to the recipient and appends the outbound record.
// It returns session.ErrNotReady when the session cannot send.
func (m *Messenger) Send(ctx context.Context, to, body, sender string) error {
	blocked, err := m.access.IsBlocked(ctx, to)
	if err != nil {
		return err
	}
	if blocked {
		log.Printf("🚫 Not sending to blocked recipient %s", to)
		metrics.RecordBlocked("outbound")
		return ErrRecipientBlocked
	}

	if err := m.session.Send(ctx, to, body); err != nil {
		return fmt.Errorf("failed to send WhatsApp message: %w", err)
	}
	log.Printf("✅ WhatsApp message sent to %s", to)

	msg := &models.Message{
		FromPhone: m.selfNumber(ctx),
		ToPhone:   recordedIdentifier(to),
		Body:      body,
		Direction: models.DirectionOutbound,
	}
	if sender != "" {
		msg.Sender = &sender
	}
	if _, err := m.store.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("message sent but not recorded: %w", err)
	}
	metrics.RecordMessage(models.DirectionOutbound)
	return nil
}

// selfNumber is the paired number, or the configured sender number before
// the session has reported one.
func (m *Messenger) selfNumber(ctx context.Context) string {
	if self := m.session.Status().Self; self != "" {
		return self
	}
	phone, err := m.store.GetSetting(ctx, models.SettingWhatsAppPhone)
	if err != nil {
		log.Printf("⚠️  Could not read %s setting: %v", models.SettingWhatsAppPhone, err)
		return ""
	}
	return utils.Digits(phone)
}

func recordedIdentifier(id string) string {
	if utils.IsGroupID(id) {
		return Normalize(id)
	}
	return utils.Digits(id)
}
