package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
	"golang.org/x/sync/semaphore"

	"github.com/Ananth-NQI/appointlab-backend/internal/metrics"
)

var errSessionLost = errors.New("session lost")

// InboundHandler processes one inbound message. It runs on its own goroutine.
type InboundHandler func(ctx context.Context, msg Inbound)

// Manager owns the single session. It reconnects after every loss and hands
// inbound messages to the handler without blocking the event stream.
type Manager struct {
	transport Transport
	clock     clock.Clock
	minDelay  time.Duration
	maxDelay  time.Duration
	inflight  *semaphore.Weighted

	sendTimeout time.Duration

	mu      sync.RWMutex
	state   State
	qrCode  string
	self    string
	handler InboundHandler

	tasks sync.WaitGroup
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the clock used for reconnect delays
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithBackoff sets the reconnect delay range
func WithBackoff(min, max time.Duration) Option {
	return func(m *Manager) {
		m.minDelay = min
		m.maxDelay = max
	}
}

// WithSendTimeout bounds each Send, whatever deadline the caller passes
func WithSendTimeout(d time.Duration) Option {
	return func(m *Manager) { m.sendTimeout = d }
}

// WithMaxInflight caps concurrently running inbound handlers
func WithMaxInflight(n int64) Option {
	return func(m *Manager) { m.inflight = semaphore.NewWeighted(n) }
}

// NewManager creates the session manager for transport
func NewManager(transport Transport, opts ...Option) *Manager {
	m := &Manager{
		transport: transport,
		clock:     clock.WallClock,
		minDelay:  2 * time.Second,
		maxDelay:  time.Minute,
		inflight:  semaphore.NewWeighted(16),
		state:     StateUnpaired,

		sendTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	metrics.SetSessionState(int(m.state))
	return m
}

// OnInbound registers the inbound message handler
func (m *Manager) OnInbound(h InboundHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Status never blocks and never fails
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Ready: m.state == StateReady,
		State: m.state.String(),
		Self:  m.self,
	}
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsReady reports whether messages can be sent
func (m *Manager) IsReady() bool {
	return m.State() == StateReady
}

// PairingQR returns the current pairing code as a PNG data URL, or "" when
// there is nothing to scan.
func (m *Manager) PairingQR() (string, error) {
	m.mu.RLock()
	code, state := m.qrCode, m.state
	m.mu.RUnlock()

	if state == StateReady || code == "" {
		return "", nil
	}
	return QRDataURL(code)
}

// Send delivers body to the recipient, failing fast when not ready. A
// transport that never confirms the send fails after the send timeout.
func (m *Manager) Send(ctx context.Context, to, body string) error {
	if !m.IsReady() {
		return ErrNotReady
	}
	if m.sendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.sendTimeout)
		defer cancel()
	}
	return m.transport.Send(ctx, to, body)
}

// Run keeps the session connected until ctx ends
func (m *Manager) Run(ctx context.Context) error {
	for {
		var events <-chan Event
		err := retry.Call(retry.CallArgs{
			Func: func() error {
				var err error
				events, err = m.transport.Connect(ctx)
				return err
			},
			NotifyFunc: func(err error, attempt int) {
				log.Printf("⚠️  WhatsApp connect attempt %d failed: %v", attempt, err)
			},
			Attempts:    -1,
			Delay:       m.minDelay,
			MaxDelay:    m.maxDelay,
			BackoffFunc: retry.DoubleDelay,
			Clock:       m.clock,
			Stop:        ctx.Done(),
		})
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}

		log.Println("🔌 WhatsApp transport connected")
		if err := m.consume(ctx, events); err != nil && ctx.Err() == nil {
			log.Printf("⚠️  WhatsApp session lost: %v", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-m.clock.After(m.minDelay):
		}
	}
}

func (m *Manager) consume(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				m.lost("connection closed")
				return errSessionLost
			}
			switch ev.Type {
			case EventQR:
				m.setPairing(ev.QRCode)
			case EventReady:
				m.setReady(ev.Self)
			case EventMessage:
				m.dispatch(ctx, ev.Message)
			case EventDisconnected:
				m.lost(ev.Reason)
				return errSessionLost
			}
		}
	}
}

func (m *Manager) setPairing(code string) {
	m.mu.Lock()
	m.state = StatePairingPending
	m.qrCode = code
	m.mu.Unlock()

	metrics.SetSessionState(int(StatePairingPending))
	log.Println("📷 New pairing QR code issued")
}

func (m *Manager) setReady(self string) {
	m.mu.Lock()
	m.state = StateReady
	m.qrCode = ""
	if self != "" {
		m.self = self
	}
	m.mu.Unlock()

	metrics.SetSessionState(int(StateReady))
	log.Printf("✅ WhatsApp session ready (%s)", self)
}

func (m *Manager) lost(reason string) {
	m.mu.Lock()
	if m.state != StateUnpaired {
		m.state = StateDisconnected
	}
	m.qrCode = ""
	state := m.state
	m.mu.Unlock()

	metrics.SetSessionState(int(state))
	log.Printf("❌ WhatsApp disconnected: %s", reason)
}

// dispatch hands the message to the handler on its own goroutine. The
// semaphore bounds how many handlers do work at once.
func (m *Manager) dispatch(ctx context.Context, msg Inbound) {
	m.mu.RLock()
	handler := m.handler
	m.mu.RUnlock()
	if handler == nil || msg.Body == "" {
		return
	}

	m.tasks.Add(1)
	go func() {
		defer m.tasks.Done()
		if err := m.inflight.Acquire(ctx, 1); err != nil {
			return
		}
		defer m.inflight.Release(1)
		handler(ctx, msg)
	}()
}

// Close shuts the transport and waits for running inbound handlers
func (m *Manager) Close() error {
	err := m.transport.Close()
	m.tasks.Wait()
	return err
}
