package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Ananth-NQI/appointlab-backend/internal/session"
)

// BridgeClient talks to a stand-alone bridge process over HTTP
type BridgeClient struct {
	baseURL string
	http    *http.Client
}

// NewBridgeClient creates a client for the bridge at baseURL
func NewBridgeClient(baseURL string, httpClient *http.Client) *BridgeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// QRResponse is the body of the bridge's GET /qr
type QRResponse struct {
	QR    *string `json:"qr"`
	Ready bool    `json:"ready"`
}

type sendRequest struct {
	To     string `json:"to"`
	Body   string `json:"body"`
	Sender string `json:"sender,omitempty"`
}

type sendResponse struct {
	OK      bool   `json:"ok"`
	Blocked bool   `json:"blocked"`
	Error   string `json:"error"`
}

// Send asks the bridge to deliver the message. A 503 from the bridge maps
// to session.ErrNotReady.
func (c *BridgeClient) Send(ctx context.Context, to, body, sender string) error {
	payload, err := json.Marshal(sendRequest{To: to, Body: body, Sender: sender})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	var out sendResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out)

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return session.ErrNotReady
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, out.Error)
	case out.Blocked:
		return ErrRecipientBlocked
	}
	return nil
}

// Status returns the bridge session status
func (c *BridgeClient) Status(ctx context.Context) (session.Status, error) {
	var st session.Status
	err := c.getJSON(ctx, "/status", &st)
	return st, err
}

// QR returns the bridge pairing artifact
func (c *BridgeClient) QR(ctx context.Context) (QRResponse, error) {
	var qr QRResponse
	err := c.getJSON(ctx, "/qr", &qr)
	return qr, err
}

func (c *BridgeClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge %s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
