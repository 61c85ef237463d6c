package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(nil)
	if err := n.Notify(context.Background(), Event{Type: EventRegionChanged, Message: "FI -> DE", Region: "DE"}); err != nil {
		t.Errorf("Notify failed: %v", err)
	}
}

func TestWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("posts event", func(t *testing.T) {
		var received Event
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("expected POST, got %s", r.Method)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", r.Header.Get("Content-Type"))
			}
			if r.Header.Get("X-Token") != "abc" {
				t.Errorf("expected X-Token header, got %q", r.Header.Get("X-Token"))
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("failed to decode request body: %v", err)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		webhook := NewWebhook(WebhookConfig{URL: server.URL, Headers: map[string]string{"X-Token": "abc"}}, nil)
		event := Event{
			Type:       EventDispatchExhausted,
			Message:    "3 attempts failed",
			Timestamp:  time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC),
			Region:     "FI",
			DecisionID: "d-1",
			Kind:       "retry_exhausted",
		}
		if err := webhook.Notify(ctx, event); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
		if !received.Timestamp.Equal(event.Timestamp) {
			t.Errorf("Timestamp = %v, want %v", received.Timestamp, event.Timestamp)
		}
		received.Timestamp = event.Timestamp
		if received != event {
			t.Errorf("received %+v, want %+v", received, event)
		}
	})

	t.Run("filters events", func(t *testing.T) {
		var mu sync.Mutex
		var got []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var e Event
			json.NewDecoder(r.Body).Decode(&e)
			mu.Lock()
			got = append(got, e.Type)
			mu.Unlock()
		}))
		defer server.Close()

		webhook := NewWebhook(WebhookConfig{URL: server.URL, Events: []string{EventTickFailed}}, nil)
		webhook.Notify(ctx, Event{Type: EventRegionChanged})
		webhook.Notify(ctx, Event{Type: EventTickFailed})

		mu.Lock()
		defer mu.Unlock()
		if len(got) != 1 || got[0] != EventTickFailed {
			t.Errorf("delivered %v, want [tick_failed]", got)
		}
	})

	t.Run("returns error on non-2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}))
		defer server.Close()

		webhook := NewWebhook(WebhookConfig{URL: server.URL}, nil)
		if err := webhook.Notify(ctx, Event{Type: EventTickFailed}); err == nil {
			t.Error("expected error")
		}
	})
}
