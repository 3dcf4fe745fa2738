package http

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ai-call-relay-service/internal/app"
	"ai-call-relay-service/internal/config"
	"ai-call-relay-service/internal/models"
	"ai-call-relay-service/internal/store"
)

func testApplication(t *testing.T) *app.Application {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.PublicHost = "calls.example.com"
	application, err := app.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return application
}

func TestHealthEndpoints(t *testing.T) {
	router := NewRouter(testApplication(t))

	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != 200 {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestVoiceWebhookConnectsStream(t *testing.T) {
	router := NewRouter(testApplication(t))

	form := url.Values{"CallSid": {"CA1"}, "From": {"+15550001111"}}
	req := httptest.NewRequest("POST", "/v1/twilio/voice?businessId=biz_1", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/xml" {
		t.Errorf("Content-Type = %q, want text/xml", got)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<Connect>") {
		t.Errorf("response should contain <Connect>: %s", body)
	}
	if !strings.Contains(body, `url="wss://calls.example.com/v1/twilio/stream"`) {
		t.Errorf("response should carry the stream URL: %s", body)
	}
	if !strings.Contains(body, `name="businessId" value="biz_1"`) {
		t.Errorf("response should carry the businessId parameter: %s", body)
	}
}

func TestVoiceWebhookMissingBusinessID(t *testing.T) {
	router := NewRouter(testApplication(t))

	req := httptest.NewRequest("POST", "/v1/twilio/voice", strings.NewReader("CallSid=CA1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "<Hangup></Hangup>") {
		t.Errorf("response should hang up: %s", body)
	}
	if strings.Contains(body, "<Connect>") {
		t.Errorf("response must not connect a stream: %s", body)
	}
}

type notFoundStore struct{}

func (notFoundStore) GetBusinessContext(ctx context.Context, businessID string) (*models.BusinessContext, error) {
	return nil, store.ErrBusinessNotFound
}

func TestVoiceWebhookUnknownBusiness(t *testing.T) {
	handler := voiceHandler(notFoundStore{}, "calls.example.com")

	req := httptest.NewRequest("POST", "/voice?businessId=nope", strings.NewReader("CallSid=CA1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	handler(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "not in service") {
		t.Errorf("response should reject the call: %s", body)
	}
	if strings.Contains(body, "<Connect>") {
		t.Errorf("response must not connect a stream: %s", body)
	}
}
