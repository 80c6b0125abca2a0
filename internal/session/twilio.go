package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/appointlab-backend/internal/utils"
)

// messageCreator is the part of the Twilio REST client used for sending
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioTransport sends through the Twilio WhatsApp API. It needs no
// pairing; inbound messages arrive through the webhook and Deliver.
type TwilioTransport struct {
	api  messageCreator
	from string // Format: "whatsapp:+14155238886"

	mu     sync.Mutex
	events chan Event
}

// NewTwilioTransport creates a Twilio transport instance
func NewTwilioTransport(accountSid, authToken, from string) (*TwilioTransport, error) {
	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})
	return newTwilioTransport(client.Api, from), nil
}

func newTwilioTransport(api messageCreator, from string) *TwilioTransport {
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}
	return &TwilioTransport{api: api, from: from}
}

// Connect reports the session ready at once
func (t *TwilioTransport) Connect(ctx context.Context) (<-chan Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	events := make(chan Event, 64)
	events <- Event{Type: EventReady, Self: strings.TrimPrefix(t.from, "whatsapp:")}
	t.events = events

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		if t.events == events {
			close(events)
			t.events = nil
		}
		t.mu.Unlock()
	}()
	return events, nil
}

// Deliver feeds a webhook message into the session. It never blocks.
func (t *TwilioTransport) Deliver(msg Inbound) error {
	msg.From = strings.TrimPrefix(msg.From, "whatsapp:")
	msg.To = strings.TrimPrefix(msg.To, "whatsapp:")

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.events == nil {
		return ErrNotReady
	}
	select {
	case t.events <- Event{Type: EventMessage, Message: msg}:
		return nil
	default:
		return errors.New("inbound queue full")
	}
}

// Send sends a WhatsApp message via Twilio
func (t *TwilioTransport) Send(ctx context.Context, to, body string) error {
	if utils.IsGroupID(to) {
		return fmt.Errorf("twilio cannot send to group %s", to)
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo("whatsapp:+" + utils.NormalizeIdentifier(to))
	params.SetBody(body)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send WhatsApp message: %v", err)
		return err
	}
	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	if resp.Sid != nil {
		log.Printf("✅ WhatsApp message sent! SID: %s", *resp.Sid)
	}
	return nil
}

// Close ends the current event stream
func (t *TwilioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.events != nil {
		close(t.events)
		t.events = nil
	}
	return nil
}
