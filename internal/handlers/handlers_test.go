package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ananth-NQI/appointlab-backend/internal/jobs"
	"github.com/Ananth-NQI/appointlab-backend/internal/models"
	"github.com/Ananth-NQI/appointlab-backend/internal/services"
	"github.com/Ananth-NQI/appointlab-backend/internal/session"
	"github.com/Ananth-NQI/appointlab-backend/internal/storage"
)

type fakeSession struct {
	status session.Status
	qr     string
	qrErr  error
}

func (f *fakeSession) Status() session.Status     { return f.status }
func (f *fakeSession) PairingQR() (string, error) { return f.qr, f.qrErr }

type outboundCall struct {
	to, body, sender string
}

type fakeOutbound struct {
	mu    sync.Mutex
	err   error
	calls []outboundCall
}

func (f *fakeOutbound) Send(ctx context.Context, to, body, sender string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, outboundCall{to, body, sender})
	return f.err
}

type fakeReplier struct {
	reply string
	err   error
	asked []string
}

func (f *fakeReplier) Reply(ctx context.Context, from, body string) (string, error) {
	f.asked = append(f.asked, from+"|"+body)
	return f.reply, f.err
}

type fakeDispatcher struct {
	report    *jobs.ScanReport
	scanErr   error
	manual    *models.ManualReminderResult
	manualErr error
	ids       []string
}

func (f *fakeDispatcher) RunScan(ctx context.Context, now time.Time) (*jobs.ScanReport, error) {
	return f.report, f.scanErr
}

func (f *fakeDispatcher) TriggerManual(ctx context.Context, id string) (*models.ManualReminderResult, error) {
	f.ids = append(f.ids, "manual:"+id)
	return f.manual, f.manualErr
}

func (f *fakeDispatcher) SendConfirmation(ctx context.Context, id string) (*models.ManualReminderResult, error) {
	f.ids = append(f.ids, "confirm:"+id)
	return f.manual, f.manualErr
}

type fakeSink struct {
	err error
	got []session.Inbound
}

func (f *fakeSink) Deliver(msg session.Inbound) error {
	f.got = append(f.got, msg)
	return f.err
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp.StatusCode, out
}

func bridgeApp(sess *fakeSession, out *fakeOutbound) *fiber.App {
	h := NewBridgeHandler(sess, out)
	app := fiber.New()
	app.Get("/status", h.Status)
	app.Get("/qr", h.QR)
	app.Post("/send", h.Send)
	return app
}

func TestBridgeStatus(t *testing.T) {
	app := bridgeApp(&fakeSession{status: session.Status{Ready: true, State: "ready", Self: "212600000001"}}, &fakeOutbound{})

	code, body := doJSON(t, app, http.MethodGet, "/status", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ready"])
}

func TestBridgeQR(t *testing.T) {
	app := bridgeApp(&fakeSession{status: session.Status{State: "pairing"}, qr: "data:image/png;base64,AAAA"}, &fakeOutbound{})
	code, body := doJSON(t, app, http.MethodGet, "/qr", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "data:image/png;base64,AAAA", body["qr"])
	assert.Equal(t, false, body["ready"])

	app = bridgeApp(&fakeSession{status: session.Status{Ready: true}}, &fakeOutbound{})
	code, body = doJSON(t, app, http.MethodGet, "/qr", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Nil(t, body["qr"])
	assert.Equal(t, true, body["ready"])

	app = bridgeApp(&fakeSession{qrErr: errors.New("encode failed")}, &fakeOutbound{})
	code, _ = doJSON(t, app, http.MethodGet, "/qr", "")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestBridgeSend(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		sendErr error
		want    int
		calls   int
	}{
		{"ok", `{"to":"212612345678","body":"hello","sender":"Admin"}`, nil, http.StatusOK, 1},
		{"missing to", `{"body":"hello"}`, nil, http.StatusBadRequest, 0},
		{"blank to", `{"to":"  ","body":"hello"}`, nil, http.StatusBadRequest, 0},
		{"missing body", `{"to":"212612345678"}`, nil, http.StatusBadRequest, 0},
		{"invalid json", `{"to":`, nil, http.StatusBadRequest, 0},
		{"not ready", `{"to":"212612345678","body":"hello"}`, session.ErrNotReady, http.StatusServiceUnavailable, 1},
		{"blocked", `{"to":"212612345678","body":"hello"}`, services.ErrRecipientBlocked, http.StatusOK, 1},
		{"storage", `{"to":"212612345678","body":"hello"}`, errors.New("disk full"), http.StatusInternalServerError, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &fakeOutbound{err: tt.sendErr}
			code, _ := doJSON(t, bridgeApp(&fakeSession{}, out), http.MethodPost, "/send", tt.body)
			assert.Equal(t, tt.want, code)
			assert.Len(t, out.calls, tt.calls)
		})
	}
}

func TestBridgeSendPassesSender(t *testing.T) {
	out := &fakeOutbound{}
	code, body := doJSON(t, bridgeApp(&fakeSession{}, out), http.MethodPost, "/send", `{"to":" 212612345678 ","body":"hello","sender":"Admin"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, []outboundCall{{"212612345678", "hello", "Admin"}}, out.calls)
}

func aiReplyApp(r *fakeReplier) *fiber.App {
	h := NewAIReplyHandler(r)
	app := fiber.New()
	app.Post("/api/ai/whatsapp-reply", h.Reply)
	app.Post("/test/whatsapp", h.HandleTestWebhook)
	return app
}

func TestAIReply(t *testing.T) {
	r := &fakeReplier{reply: "Hello! How can I help?"}
	code, body := doJSON(t, aiReplyApp(r), http.MethodPost, "/api/ai/whatsapp-reply", `{"fromPhone":" 212612345678 ","body":" hi "}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Hello! How can I help?", body["reply"])
	assert.Equal(t, []string{"212612345678|hi"}, r.asked)
}

func TestAIReplyValidation(t *testing.T) {
	r := &fakeReplier{}
	for _, payload := range []string{`{"fromPhone":"212612345678"}`, `{"body":"hi"}`, `{"fromPhone":"1","body":"   "}`, `nope`} {
		code, body := doJSON(t, aiReplyApp(r), http.MethodPost, "/api/ai/whatsapp-reply", payload)
		assert.Equal(t, http.StatusBadRequest, code, payload)
		assert.NotEmpty(t, body["error"])
	}
	assert.Empty(t, r.asked)
}

func TestAIReplyFailure(t *testing.T) {
	r := &fakeReplier{err: errors.New("db down")}
	code, body := doJSON(t, aiReplyApp(r), http.MethodPost, "/api/ai/whatsapp-reply", `{"fromPhone":"1","body":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Failed to generate reply", body["error"])
}

func TestAIReplyTestWebhook(t *testing.T) {
	r := &fakeReplier{reply: "pong reply"}
	code, body := doJSON(t, aiReplyApp(r), http.MethodPost, "/test/whatsapp", `{"from":"212612345678","message":"ping"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pong reply", body["response"])
}

func reminderApp(d *fakeDispatcher) *fiber.App {
	h := NewReminderHandler(d)
	app := fiber.New()
	app.Get("/api/scheduler/appointment-reminders", h.Scan)
	app.Post("/api/scheduler/appointment-reminders", h.Trigger)
	app.Post("/api/notifications/confirmation", h.Confirm)
	return app
}

func TestReminderScan(t *testing.T) {
	checked := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	d := &fakeDispatcher{report: &jobs.ScanReport{
		Checked:   3,
		CheckedAt: checked,
		Reminders: []models.ReminderResult{
			{Success: true, Type: "whatsapp", AppointmentID: "APT00001", ReminderKind: models.Reminder1Day, Phone: "212612345678"},
			{Success: false, Type: "email", AppointmentID: "APT00002", Error: "smtp down"},
		},
	}}

	code, body := doJSON(t, reminderApp(d), http.MethodGet, "/api/scheduler/appointment-reminders", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Checked 3 appointments. Sent 2 reminders.", body["message"])
	assert.Equal(t, "2026-03-01T10:00:00Z", body["checkedAt"])
	reminders, ok := body["reminders"].([]interface{})
	require.True(t, ok)
	require.Len(t, reminders, 2)
	first := reminders[0].(map[string]interface{})
	assert.Equal(t, "1day", first["reminderKind"])
	assert.Equal(t, "APT00001", first["appointmentId"])
}

func TestReminderScanFailure(t *testing.T) {
	d := &fakeDispatcher{scanErr: errors.New("connection refused")}
	code, body := doJSON(t, reminderApp(d), http.MethodGet, "/api/scheduler/appointment-reminders", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "connection refused", body["details"])
}

func TestReminderTrigger(t *testing.T) {
	d := &fakeDispatcher{manual: &models.ManualReminderResult{
		WhatsApp: &models.ChannelDelivery{To: "212612345678"},
		Errors:   []string{},
	}}

	code, body := doJSON(t, reminderApp(d), http.MethodPost, "/api/scheduler/appointment-reminders", `{"appointmentId":"APT00001"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "APT00001", body["appointmentId"])
	results := body["results"].(map[string]interface{})
	assert.NotNil(t, results["whatsapp"])
	assert.Nil(t, results["email"])

	code, body = doJSON(t, reminderApp(d), http.MethodPost, "/api/scheduler/appointment-reminders", `{"appointmentId":42}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "42", body["appointmentId"])
	assert.Equal(t, []string{"manual:APT00001", "manual:42"}, d.ids)
}

func TestReminderTriggerErrors(t *testing.T) {
	code, _ := doJSON(t, reminderApp(&fakeDispatcher{}), http.MethodPost, "/api/scheduler/appointment-reminders", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	d := &fakeDispatcher{manualErr: storage.ErrNotFound}
	code, body := doJSON(t, reminderApp(d), http.MethodPost, "/api/scheduler/appointment-reminders", `{"appointmentId":"APT404"}`)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Appointment not found", body["error"])

	d = &fakeDispatcher{manual: &models.ManualReminderResult{Errors: []string{"WhatsApp: not ready"}}}
	code, body = doJSON(t, reminderApp(d), http.MethodPost, "/api/scheduler/appointment-reminders", `{"appointmentId":"APT00001"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["success"])
}

func TestReminderConfirm(t *testing.T) {
	d := &fakeDispatcher{manual: &models.ManualReminderResult{Errors: []string{}}}
	code, _ := doJSON(t, reminderApp(d), http.MethodPost, "/api/notifications/confirmation", `{"appointmentId":"APT00007"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"confirm:APT00007"}, d.ids)
}

func TestMessagesListAndSend(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	for _, m := range []*models.Message{
		{FromPhone: "212612345678", ToPhone: "212600000001", Body: "hi", Direction: models.DirectionInbound},
		{FromPhone: "212699999999", ToPhone: "212600000001", Body: "yo", Direction: models.DirectionInbound},
	} {
		_, err := store.AppendMessage(ctx, m)
		require.NoError(t, err)
	}
	out := &fakeOutbound{}
	h := NewMessageHandler(store, out, "AppointLab")
	app := fiber.New()
	app.Get("/api/messages", h.List)
	app.Post("/api/messages/send", h.Send)

	code, body := doJSON(t, app, http.MethodGet, "/api/messages", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["messages"], 2)

	code, body = doJSON(t, app, http.MethodGet, "/api/messages?contact="+url.QueryEscape("612345678"), "")
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["messages"], 1)

	code, _ = doJSON(t, app, http.MethodPost, "/api/messages/send", `{"toPhone":"212612345678","body":"Your results are ready"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []outboundCall{{"212612345678", "Your results are ready", "AppointLab"}}, out.calls)

	code, _ = doJSON(t, app, http.MethodPost, "/api/messages/send", `{"toPhone":"212612345678"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSettings(t *testing.T) {
	store := storage.NewMemoryStore()
	h := NewSettingsHandler(store, services.NewAccessFilter(store))
	app := fiber.New()
	app.Get("/api/app-settings", h.GetAppSettings)
	app.Put("/api/app-settings", h.UpdateAppSettings)
	app.Get("/api/blocked-numbers", h.GetBlockedNumbers)
	app.Put("/api/blocked-numbers", h.UpdateBlockedNumbers)

	code, body := doJSON(t, app, http.MethodGet, "/api/app-settings", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "", body["whatsappPhone"])

	code, body = doJSON(t, app, http.MethodPut, "/api/app-settings", `{"whatsappPhone":" +212600000001 "}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "+212600000001", body["whatsappPhone"])

	code, body = doJSON(t, app, http.MethodGet, "/api/blocked-numbers", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{}, body["blockedNumbers"])

	code, body = doJSON(t, app, http.MethodPut, "/api/blocked-numbers", `{"blockedNumbers":["0612345678"," 0612345678 ","120363@g.us",""]}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []interface{}{"0612345678", "120363@g.us"}, body["blockedNumbers"])

	code, _ = doJSON(t, app, http.MethodPut, "/api/blocked-numbers", `{"blockedNumbers":"0612345678"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWebhookDeliversInbound(t *testing.T) {
	sink := &fakeSink{}
	app := fiber.New()
	app.Post("/webhook/whatsapp", NewWhatsAppHandler(sink).HandleWebhook)

	form := url.Values{
		"From":        {"whatsapp:+212612345678"},
		"To":          {"whatsapp:+14155238886"},
		"Body":        {"hello"},
		"ProfileName": {"Sara"},
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, sink.got, 1)
	assert.Equal(t, "hello", sink.got[0].Body)
	assert.Equal(t, "Sara", sink.got[0].PushName)

	// status callback without a body
	req = httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader("MessageSid=SM1&MessageStatus=delivered"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, sink.got, 1)

	sink.err = session.ErrNotReady
	req = httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

type fakeBridge struct {
	err error
}

func (f *fakeBridge) Status(ctx context.Context) (session.Status, error) {
	return session.Status{Ready: true, State: "ready"}, f.err
}

func (f *fakeBridge) QR(ctx context.Context) (services.QRResponse, error) {
	return services.QRResponse{Ready: true}, f.err
}

func TestBridgeProxy(t *testing.T) {
	for _, tt := range []struct {
		name  string
		err   error
		ready bool
	}{
		{"reachable", nil, true},
		{"unreachable", errors.New("connection refused"), false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBridgeProxyHandler(&fakeBridge{err: tt.err})
			app := fiber.New()
			app.Get("/api/whatsapp/status", h.Status)
			app.Get("/api/whatsapp/qr", h.QR)

			code, body := doJSON(t, app, http.MethodGet, "/api/whatsapp/status", "")
			assert.Equal(t, http.StatusOK, code)
			assert.Equal(t, tt.ready, body["ready"])

			code, body = doJSON(t, app, http.MethodGet, "/api/whatsapp/qr", "")
			assert.Equal(t, http.StatusOK, code)
			assert.Nil(t, body["qr"])
			assert.Equal(t, tt.ready, body["ready"])
		})
	}
}

func TestLocalBridge(t *testing.T) {
	b := LocalBridge(&fakeSession{status: session.Status{State: "pairing"}, qr: "data:image/png;base64,AAAA"})
	qr, err := b.QR(context.Background())
	require.NoError(t, err)
	require.NotNil(t, qr.QR)
	assert.False(t, qr.Ready)

	b = LocalBridge(&fakeSession{status: session.Status{Ready: true, State: "ready"}})
	qr, err = b.QR(context.Background())
	require.NoError(t, err)
	assert.Nil(t, qr.QR)
	assert.True(t, qr.Ready)
}

func TestHealth(t *testing.T) {
	app := fiber.New()
	app.Get("/health", NewHealthHandler("AppointLab Backend", "1.0.0", &fakeSession{status: session.Status{State: "ready"}}).Check)

	code, body := doJSON(t, app, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "ready", body["session"])
}
