package session

import (
	"context"
	"errors"
)

// ErrNotReady is returned by Send while the session is not paired
var ErrNotReady = errors.New("whatsapp session not ready")

// State of the single chat-network session
type State int

const (
	StateUnpaired State = iota
	StatePairingPending
	StateReady
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnpaired:
		return "unpaired"
	case StatePairingPending:
		return "pairing"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Inbound is a message delivered to the session
type Inbound struct {
	From     string // phone number or group handle
	To       string // own number
	Body     string
	PushName string
}

// EventType of a transport event
type EventType string

const (
	EventQR           EventType = "qr"
	EventReady        EventType = "ready"
	EventMessage      EventType = "message"
	EventDisconnected EventType = "disconnected"
)

// Event is emitted by a transport while connected
type Event struct {
	Type    EventType
	QRCode  string // EventQR
	Self    string // EventReady
	Message Inbound
	Reason  string // EventDisconnected
}

// Transport is one connection to the chat network. Connect delivers events
// on the returned channel; the channel is closed when the connection is lost.
type Transport interface {
	Connect(ctx context.Context) (<-chan Event, error)
	Send(ctx context.Context, to, body string) error
	Close() error
}

// Status is the externally visible session state
type Status struct {
	Ready bool   `json:"ready"`
	State string `json:"state"`
	Self  string `json:"self,omitempty"`
}
