package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// GeminiConfig configures the generateContent provider
type GeminiConfig struct {
	APIKey     string
	Model      string
	BaseURL    string // tests only
	HTTPClient *http.Client
}

// GeminiProvider calls the Gemini API with a single model
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates the provider. It returns nil without error when
// no API key is configured.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Models() []string { return []string{p.model} }

// Complete sends one generateContent request
func (p *GeminiProvider) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(prompt.Temperature),
	}
	if prompt.MaxTokens > 0 {
		config.MaxOutputTokens = int32(prompt.MaxTokens)
	}
	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		}
	}

	contents := make([]*genai.Content, 0, len(prompt.Turns))
	for _, t := range prompt.Turns {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: t.Content}},
		})
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", model, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
