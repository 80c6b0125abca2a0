package ai

import (
	"context"
	"errors"
)

// Role of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of the conversation sent as context
type Turn struct {
	Role    Role
	Content string
}

// Prompt is the provider-neutral request. Each provider maps it to its own
// wire format.
type Prompt struct {
	System      string
	Turns       []Turn
	MaxTokens   int
	Temperature float32
}

// Provider is one external language-model service. Models lists the model
// identifiers tried in order; Complete issues exactly one request.
type Provider interface {
	Name() string
	Models() []string
	Complete(ctx context.Context, model string, prompt Prompt) (string, error)
}

// ErrEmptyResponse is returned by providers when the response carries no text
var ErrEmptyResponse = errors.New("provider returned no text")
