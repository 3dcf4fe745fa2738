package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Disabled(t *testing.T) {
	c := New(Config{})

	got, err := c.GetRelevantContext(context.Background(), "hours", "biz-1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != noResultsMessage {
		t.Errorf("expected no-results message, got %q", got)
	}
}

func TestClient_FormatsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/retrieval/query" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "opening hours" || req.BusinessID != "biz-1" || req.Limit != 3 {
			t.Errorf("unexpected request %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Hours", "content": "Open 9-5 weekdays"},
				{"title": "Location", "content": "12 Main St"},
			},
		})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	got, err := c.GetRelevantContext(context.Background(), "opening hours", "biz-1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "1. Hours\nOpen 9-5 weekdays") {
		t.Errorf("missing first result in %q", got)
	}
	if !strings.Contains(got, "2. Location") {
		t.Errorf("missing second result in %q", got)
	}
}

func TestClient_EmptyResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	got, err := c.GetRelevantContext(context.Background(), "anything", "biz-1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != noResultsMessage {
		t.Errorf("expected no-results message, got %q", got)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})

	if _, err := c.GetRelevantContext(context.Background(), "anything", "biz-1", 3); err == nil {
		t.Error("expected error on 500 response")
	}
}
