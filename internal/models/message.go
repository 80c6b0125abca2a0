package models

import "time"

// Message is one WhatsApp message sent or received through the bridge.
// Rows are append-only; nothing updates or deletes them.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	FromPhone string    `json:"fromPhone" gorm:"index;not null"`
	ToPhone   string    `json:"toPhone" gorm:"index;not null"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	Sender    *string   `json:"sender"`
	Direction string    `json:"direction" gorm:"not null"` // inbound, outbound
	CreatedAt time.Time `json:"createdAt" gorm:"index"`
}

// Message directions
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// IsInbound reports whether the message was received from a counterpart.
func (m *Message) IsInbound() bool {
	return m.Direction == DirectionInbound
}
