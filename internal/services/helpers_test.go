package services

import (
	"context"
	"sync"

	"github.com/Ananth-NQI/appointlab-backend/internal/ai"
	"github.com/Ananth-NQI/appointlab-backend/internal/session"
)

type fakeSession struct {
	mu    sync.Mutex
	self  string
	ready bool
	sent  []string
}

func (f *fakeSession) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ready {
		return session.ErrNotReady
	}
	f.sent = append(f.sent, to+": "+body)
	return nil
}

func (f *fakeSession) Status() session.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return session.Status{Ready: f.ready, Self: f.self}
}

func (f *fakeSession) Sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type sentMessage struct {
	to, body, sender string
}

type fakeOutbound struct {
	mu   sync.Mutex
	err  error
	sent []sentMessage
}

func (f *fakeOutbound) Send(ctx context.Context, to, body, sender string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{to, body, sender})
	return nil
}

func (f *fakeOutbound) Sent() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// stubProvider answers every model with the same text
type stubProvider struct {
	text string

	mu      sync.Mutex
	prompts []ai.Prompt
}

func (p *stubProvider) Name() string     { return "stub" }
func (p *stubProvider) Models() []string { return []string{"stub-model"} }

func (p *stubProvider) Complete(ctx context.Context, model string, prompt ai.Prompt) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return p.text, nil
}

func (p *stubProvider) Prompts() []ai.Prompt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ai.Prompt(nil), p.prompts...)
}

type replierFunc func(ctx context.Context, fromPhone, body string) (string, error)

func (f replierFunc) Reply(ctx context.Context, fromPhone, body string) (string, error) {
	return f(ctx, fromPhone, body)
}
