package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Replier produces the reply to one inbound message. An empty reply means
// nothing is sent.
type Replier interface {
	Reply(ctx context.Context, fromPhone, body string) (string, error)
}

// RemoteReplier asks the application's AI reply endpoint for the reply.
// The bridge uses it when running as its own process.
type RemoteReplier struct {
	url    string
	secret string
	http   *http.Client
}

// NewRemoteReplier creates a replier for the application at appURL
func NewRemoteReplier(appURL, secret string, httpClient *http.Client) *RemoteReplier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &RemoteReplier{
		url:    strings.TrimRight(appURL, "/") + "/api/ai/whatsapp-reply",
		secret: secret,
		http:   httpClient,
	}
}

// ReplyRequest is the body of POST /api/ai/whatsapp-reply
type ReplyRequest struct {
	FromPhone string `json:"fromPhone"`
	Body      string `json:"body"`
}

// ReplyResponse is the answer of POST /api/ai/whatsapp-reply
type ReplyResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

// Reply posts the message to the application and returns its reply
func (r *RemoteReplier) Reply(ctx context.Context, fromPhone, body string) (string, error) {
	payload, err := json.Marshal(ReplyRequest{FromPhone: fromPhone, Body: body})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		req.Header.Set("Authorization", "Bearer "+r.secret)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai reply request failed: %w", err)
	}
	defer resp.Body.Close()

	var out ReplyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("invalid ai reply response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai reply endpoint returned %d: %s", resp.StatusCode, out.Error)
	}
	return strings.TrimSpace(out.Reply), nil
}
