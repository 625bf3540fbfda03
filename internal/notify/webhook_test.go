package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSendAdWebhookDeliversPayload(t *testing.T) {
	var got WebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
	}))
	defer srv.Close()

	if err := SendAdWebhook(srv.URL, "ad_started", "Spot", "Sponsor"); err != nil {
		t.Fatalf("SendAdWebhook: %v", err)
	}

	if got.Event != "ad_started" || got.Title != "Spot" || got.Artist != "Sponsor" {
		t.Errorf("payload = %+v", got)
	}
	if got.Timestamp == "" {
		t.Error("payload timestamp is empty")
	}
}

func TestSendWebhookSkipsWhenUnconfigured(t *testing.T) {
	if err := SendAdWebhook("", "ad_started", "", ""); err != nil {
		t.Errorf("unconfigured webhook returned %v, want nil", err)
	}
}

func TestSendWebhookDoesNotRetryClientErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if err := SendAdWebhook(srv.URL, "ad_started", "Spot", ""); err == nil {
		t.Fatal("4xx response reported success")
	}
	if n := attempts.Load(); n != 1 {
		t.Errorf("made %d attempts for a 4xx, want 1", n)
	}
}

func TestSendTestWebhookRequiresURL(t *testing.T) {
	if err := SendTestWebhook(""); err == nil {
		t.Error("SendTestWebhook with empty URL reported success")
	}
}
