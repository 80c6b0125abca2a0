package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenRouterConfig configures the chat-completions provider
type OpenRouterConfig struct {
	APIKey     string
	BaseURL    string
	Models     []string
	Referer    string
	Title      string
	HTTPClient *http.Client
}

// OpenRouterProvider talks to OpenRouter's OpenAI-compatible API
type OpenRouterProvider struct {
	client *openai.Client
	models []string
}

// NewOpenRouterProvider creates the provider. It returns nil when no API key
// is configured so callers can leave it out of the chain.
func NewOpenRouterProvider(cfg OpenRouterConfig) *OpenRouterProvider {
	if cfg.APIKey == "" {
		return nil
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: base.Timeout,
		Transport: &headerTransport{
			next: transport,
			headers: map[string]string{
				"HTTP-Referer": cfg.Referer,
				"X-Title":      cfg.Title,
			},
		},
	}

	return &OpenRouterProvider{
		client: openai.NewClientWithConfig(clientConfig),
		models: append([]string(nil), cfg.Models...),
	}
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

func (p *OpenRouterProvider) Models() []string { return p.models }

// Complete sends one chat-completion request for model
func (p *OpenRouterProvider) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(prompt.Turns)+1)
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	for _, t := range prompt.Turns {
		role := openai.ChatMessageRoleUser
		if t.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   prompt.MaxTokens,
		Temperature: prompt.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openrouter %s: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// headerTransport adds the attribution headers OpenRouter asks for
type headerTransport struct {
	next    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	return t.next.RoundTrip(req)
}
