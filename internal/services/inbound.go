package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Ananth-NQI/appointlab-backend/internal/metrics"
	"github.com/Ananth-NQI/appointlab-backend/internal/models"
	"github.com/Ananth-NQI/appointlab-backend/internal/session"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
	"github.com/Ananth-NQI/appointlab-backend/internal/utils"
)

// InboundProcessor turns each inbound WhatsApp message into at most one reply
type InboundProcessor struct {
	store    storage.Store
	replier  Replier
	outbound Outbound
	brand    string

	perMinute int
	mu        sync.Mutex
	limiters  map[string]*replyLimiter
	lastSweep time.Time
	now       func() time.Time
}

// limiterIdle is how long a counterpart's limiter survives without messages.
// It is well past the minute a limiter needs to refill, so a dropped limiter
// is indistinguishable from a new one.
const limiterIdle = 10 * time.Minute

type replyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewInboundProcessor creates a new processor. replyPerMinute caps the
// replies sent to one counterpart; zero disables the cap.
func NewInboundProcessor(store storage.Store, replier Replier, outbound Outbound, brand string, replyPerMinute int) *InboundProcessor {
	return &InboundProcessor{
		store:     store,
		replier:   replier,
		outbound:  outbound,
		brand:     brand,
		perMinute: replyPerMinute,
		limiters:  make(map[string]*replyLimiter),
		now:       time.Now,
	}
}

// Handle records the inbound message, asks for a reply and sends it.
// It is registered as the session's inbound handler.
func (p *InboundProcessor) Handle(ctx context.Context, in session.Inbound) {
	msg := &models.Message{
		FromPhone: in.From,
		ToPhone:   in.To,
		Body:      in.Body,
		Direction: models.DirectionInbound,
	}
	if in.PushName != "" {
		name := in.PushName
		msg.Sender = &name
	}
	if _, err := p.store.AppendMessage(ctx, msg); err != nil {
		log.Printf("❌ Error saving inbound message from %s: %v", in.From, err)
		return
	}
	metrics.RecordMessage(models.DirectionInbound)
	log.Printf("📨 Received WhatsApp message from %s", in.From)

	if !p.allow(in.From) {
		log.Printf("⚠️  Reply budget exhausted for %s, not replying", in.From)
		return
	}

	reply, err := p.replier.Reply(ctx, in.From, in.Body)
	if err != nil {
		log.Printf("❌ Error getting AI reply for %s: %v", in.From, err)
		return
	}
	if reply == "" {
		return
	}

	err = p.outbound.Send(ctx, in.From, reply, p.brand)
	switch {
	case errors.Is(err, ErrRecipientBlocked):
	case err != nil:
		log.Printf("❌ Error sending AI reply to %s: %v", in.From, err)
	}
}

func (p *InboundProcessor) allow(from string) bool {
	if p.perMinute <= 0 {
		return true
	}
	key := utils.Suffix(from)
	now := p.now()

	p.mu.Lock()
	if now.Sub(p.lastSweep) >= limiterIdle {
		p.sweep(now)
	}
	l, ok := p.limiters[key]
	if !ok {
		l = &replyLimiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(p.perMinute)), p.perMinute)}
		p.limiters[key] = l
	}
	l.lastSeen = now
	p.mu.Unlock()

	return l.limiter.AllowN(now, 1)
}

// sweep drops idle limiters. Callers hold p.mu.
func (p *InboundProcessor) sweep(now time.Time) {
	for key, l := range p.limiters {
		if now.Sub(l.lastSeen) >= limiterIdle {
			delete(p.limiters, key)
		}
	}
	p.lastSweep = now
}
