package ai

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Ananth-NQI/appointlab-backend/internal/metrics"
)

// historyTurns is how many previous turns are sent as context
const historyTurns = 8

// DefaultProviderTimeout bounds a single provider request
const DefaultProviderTimeout = 8 * time.Second

// Generator produces reply and notification text. It tries every model of
// every provider in order and ends at a fixed template, so it never fails.
type Generator struct {
	providers []Provider
	policy    TopicPolicy
	timeout   time.Duration
}

// NewGenerator creates a generator. providers are tried in the given order.
func NewGenerator(policy TopicPolicy, timeout time.Duration, providers ...Provider) *Generator {
	if policy == nil {
		policy = PermissivePolicy{}
	}
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &Generator{
		providers: providers,
		policy:    policy,
		timeout:   timeout,
	}
}

// Policy returns the topic policy in use
func (g *Generator) Policy() TopicPolicy {
	return g.policy
}

// ReplyRequest is everything known about one inbound message
type ReplyRequest struct {
	Message string
	History []Turn   // chronological, may end with Message itself
	Summary *Summary // nil when the message is not about appointments
}

// Reply returns the text to send back. It is never empty.
func (g *Generator) Reply(ctx context.Context, req ReplyRequest) string {
	message := strings.TrimSpace(req.Message)
	prior := priorTurns(req.History, message)

	if len(prior) == 0 {
		if g.policy.IsOffTopic(message) {
			return RefusalMessage
		}
		if IsGreeting(message) {
			return GreetingMessage
		}
	}

	prompt := Prompt{
		System:      replySystemPrompt,
		Turns:       contextTurns(prior, message, req.Summary),
		MaxTokens:   replyMaxTokens,
		Temperature: replyTemperature,
	}
	if text, ok := g.complete(ctx, prompt, Sanitize); ok {
		return text
	}

	log.Printf("⚠️  No provider produced a reply, using fallback")
	return Fallback(message, req.Summary)
}

// priorTurns drops user turns that repeat the current message, which the
// store usually holds already by the time a reply is requested.
func priorTurns(history []Turn, message string) []Turn {
	prior := make([]Turn, 0, len(history))
	for _, t := range history {
		if t.Role == RoleUser && strings.TrimSpace(t.Content) == message {
			continue
		}
		prior = append(prior, t)
	}
	return prior
}

// contextTurns keeps the last turns of prior conversation and appends the
// current message with the appointment block.
func contextTurns(prior []Turn, message string, summary *Summary) []Turn {
	if len(prior) > historyTurns {
		prior = prior[len(prior)-historyTurns:]
	}

	turns := make([]Turn, 0, len(prior)+1)
	turns = append(turns, prior...)

	current := message
	if summary != nil {
		current = message + "\n\n" + appointmentContextHeader + "\n" + summary.Render()
	}
	return append(turns, Turn{Role: RoleUser, Content: current})
}

// complete walks the provider chain. accept cleans a candidate text and
// reports whether it is usable.
func (g *Generator) complete(ctx context.Context, prompt Prompt, accept func(string) (string, bool)) (string, bool) {
	for _, p := range g.providers {
		for _, model := range p.Models() {
			if ctx.Err() != nil {
				return "", false
			}

			raw, err := g.attempt(ctx, p, model, prompt)
			if err != nil {
				metrics.RecordProviderAttempt(p.Name(), model, metrics.OutcomeError)
				if !errors.Is(err, ErrEmptyResponse) {
					log.Printf("⚠️  %s model %s failed: %v", p.Name(), model, err)
				}
				continue
			}
			if text, ok := accept(raw); ok {
				metrics.RecordProviderAttempt(p.Name(), model, metrics.OutcomeSuccess)
				return text, true
			}
			metrics.RecordProviderAttempt(p.Name(), model, metrics.OutcomeEmpty)
		}
	}
	return "", false
}

func (g *Generator) attempt(ctx context.Context, p Provider, model string, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return p.Complete(ctx, model, prompt)
}
