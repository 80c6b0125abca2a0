package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookURL = "http://example.com/webhook/whatsapp"

func twilioSignature(token, u string, form url.Values) string {
	pairs := make([]string, 0, len(form))
	for k := range form {
		pairs = append(pairs, k+form.Get(k))
	}
	sort.Strings(pairs)

	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(u + strings.Join(pairs, "")))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func webhookApp(token string, enabled bool) *fiber.App {
	app := fiber.New()
	app.Post("/webhook/whatsapp", ValidateTwilioSignature(token, enabled), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func webhookRequest(form url.Values, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, webhookURL, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	return req
}

func TestValidateTwilioSignature(t *testing.T) {
	form := url.Values{"From": {"whatsapp:+212612345678"}, "Body": {"hello"}, "MessageSid": {"SM123"}}
	valid := twilioSignature("secret-token", webhookURL, form)

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"valid", valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong", twilioSignature("other-token", webhookURL, form), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := webhookApp("secret-token", true).Test(webhookRequest(form, tt.signature))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestValidateTwilioSignatureWithoutToken(t *testing.T) {
	resp, err := webhookApp("", true).Test(webhookRequest(url.Values{"Body": {"x"}}, "abc"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestValidateTwilioSignatureDisabled(t *testing.T) {
	resp, err := webhookApp("secret-token", false).Test(webhookRequest(url.Values{"Body": {"x"}}, ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequireBearer(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"open when no secret", "", "", http.StatusOK},
		{"valid", "s3cret", "Bearer s3cret", http.StatusOK},
		{"missing", "s3cret", "", http.StatusUnauthorized},
		{"wrong", "s3cret", "Bearer nope", http.StatusUnauthorized},
		{"no scheme", "s3cret", "s3cret", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", RequireBearer(tt.secret), func(c *fiber.Ctx) error { return c.SendString("ok") })

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
