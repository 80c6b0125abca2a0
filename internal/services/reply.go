package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Ananth-NQI/appointlab-backend/internal/ai"
	"github.com/Ananth-NQI/appointlab-backend/internal/metrics"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
	"github.com/Ananth-NQI/appointlab-backend/internal/utils"
)

// ConversationWindow is how many stored messages are loaded as context
const ConversationWindow = 10

// ReplyService builds the AI reply to an inbound WhatsApp message
type ReplyService struct {
	store     storage.Store
	access    *AccessFilter
	generator *ai.Generator
	loc       *time.Location
	now       func() time.Time
}

// NewReplyService creates a new reply service. loc is the zone the
// appointment dates are written in.
func NewReplyService(store storage.Store, access *AccessFilter, generator *ai.Generator, loc *time.Location) *ReplyService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReplyService{
		store:     store,
		access:    access,
		generator: generator,
		loc:       loc,
		now:       time.Now,
	}
}

// Reply returns the text to send back to fromPhone, or "" when the sender
// is blocked. Only storage failures are returned as errors.
func (s *ReplyService) Reply(ctx context.Context, fromPhone, body string) (string, error) {
	body = strings.TrimSpace(body)

	blocked, err := s.access.IsBlocked(ctx, fromPhone)
	if err != nil {
		return "", err
	}
	if blocked {
		log.Printf("🚫 Ignoring message from blocked sender %s", fromPhone)
		metrics.RecordBlocked("reply")
		return "", nil
	}

	history, err := s.history(ctx, fromPhone)
	if err != nil {
		return "", err
	}

	req := ai.ReplyRequest{Message: body, History: history}
	if ai.IsAskingAboutAppointments(body) {
		if req.Summary, err = s.summary(ctx, fromPhone); err != nil {
			return "", err
		}
	}

	return s.generator.Reply(ctx, req), nil
}

func (s *ReplyService) history(ctx context.Context, fromPhone string) ([]ai.Turn, error) {
	msgs, err := s.store.GetMessagesByParticipant(ctx, fromPhone, ConversationWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	turns := make([]ai.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := ai.RoleAssistant
		if m.IsInbound() {
			role = ai.RoleUser
		}
		turns = append(turns, ai.Turn{Role: role, Content: m.Body})
	}
	return turns, nil
}

func (s *ReplyService) summary(ctx context.Context, fromPhone string) (*ai.Summary, error) {
	if utils.IsGroupID(fromPhone) || utils.Digits(fromPhone) == "" {
		return ai.NotLoggedInSummary(), nil
	}
	appts, err := s.store.GetAppointmentsByPhone(ctx, fromPhone)
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	return ai.BuildSummary(appts, s.now(), s.loc), nil
}
