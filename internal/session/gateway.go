package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Ananth-NQI/appointlab-backend/internal/utils"
)

const gatewayWriteTimeout = 10 * time.Second

// frame is one JSON message exchanged with the pairing gateway
type frame struct {
	Type     string `json:"type"`
	ID       string `json:"id,omitempty"`
	Code     string `json:"code,omitempty"`
	Self     string `json:"self,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Body     string `json:"body,omitempty"`
	PushName string `json:"pushName,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Error    string `json:"error,omitempty"`
}

// GatewayTransport drives a QR-paired web session through a websocket
// gateway. The gateway pushes qr, ready, message and disconnected frames and
// acknowledges every send frame by id.
type GatewayTransport struct {
	url    string
	header http.Header
	dialer *websocket.Dialer

	writeMu sync.Mutex
	connMu  sync.RWMutex
	conn    *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan error
}

// NewGatewayTransport creates a transport for the gateway at url. token is
// sent as a bearer credential when set.
func NewGatewayTransport(url, token string) *GatewayTransport {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return &GatewayTransport{
		url:     url,
		header:  header,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		pending: make(map[string]chan error),
	}
}

// Connect dials the gateway and starts reading frames
func (g *GatewayTransport) Connect(ctx context.Context) (<-chan Event, error) {
	conn, _, err := g.dialer.DialContext(ctx, g.url, g.header)
	if err != nil {
		return nil, fmt.Errorf("dial gateway %s: %w", g.url, err)
	}

	g.connMu.Lock()
	g.conn = conn
	g.connMu.Unlock()

	events := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	go g.readLoop(ctx, conn, events, done)
	return events, nil
}

func (g *GatewayTransport) readLoop(ctx context.Context, conn *websocket.Conn, events chan<- Event, done chan struct{}) {
	defer close(events)
	defer close(done)
	defer g.drop(conn)

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() == nil {
				log.Printf("⚠️  Gateway read failed: %v", err)
			}
			return
		}

		var ev Event
		switch f.Type {
		case "ack":
			g.resolve(f.ID, f.Error)
			continue
		case "qr":
			ev = Event{Type: EventQR, QRCode: f.Code}
		case "ready":
			ev = Event{Type: EventReady, Self: utils.StripChatSuffix(f.Self)}
		case "message":
			ev = Event{Type: EventMessage, Message: Inbound{
				From:     utils.StripChatSuffix(f.From),
				To:       utils.StripChatSuffix(f.To),
				Body:     f.Body,
				PushName: f.PushName,
			}}
		case "disconnected":
			ev = Event{Type: EventDisconnected, Reason: f.Reason}
		default:
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
		if ev.Type == EventDisconnected {
			return
		}
	}
}

// drop forgets conn and fails every send still waiting for an ack
func (g *GatewayTransport) drop(conn *websocket.Conn) {
	_ = conn.Close()

	g.connMu.Lock()
	if g.conn == conn {
		g.conn = nil
	}
	g.connMu.Unlock()

	g.pendingMu.Lock()
	for id, ch := range g.pending {
		ch <- ErrNotReady
		delete(g.pending, id)
	}
	g.pendingMu.Unlock()
}

func (g *GatewayTransport) resolve(id, errMsg string) {
	g.pendingMu.Lock()
	ch, ok := g.pending[id]
	delete(g.pending, id)
	g.pendingMu.Unlock()
	if !ok {
		return
	}
	if errMsg != "" {
		ch <- errors.New(errMsg)
		return
	}
	ch <- nil
}

// Send writes a send frame and waits for its ack
func (g *GatewayTransport) Send(ctx context.Context, to, body string) error {
	g.connMu.RLock()
	conn := g.conn
	g.connMu.RUnlock()
	if conn == nil {
		return ErrNotReady
	}

	id := uuid.NewString()
	ack := make(chan error, 1)
	g.pendingMu.Lock()
	g.pending[id] = ack
	g.pendingMu.Unlock()

	g.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(gatewayWriteTimeout))
	err := conn.WriteJSON(frame{Type: "send", ID: id, To: utils.ChatID(to), Body: body})
	g.writeMu.Unlock()
	if err != nil {
		g.forget(id)
		return fmt.Errorf("write send frame: %w", err)
	}

	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		g.forget(id)
		return ctx.Err()
	}
}

func (g *GatewayTransport) forget(id string) {
	g.pendingMu.Lock()
	delete(g.pending, id)
	g.pendingMu.Unlock()
}

// Close closes the current connection, if any
func (g *GatewayTransport) Close() error {
	g.connMu.RLock()
	conn := g.conn
	g.connMu.RUnlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
