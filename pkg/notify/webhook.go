package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

// WebhookConfig configures the webhook notifier.
type WebhookConfig struct {
	// URL receives every event as a JSON POST.
	URL string `yaml:"url"`

	// Events limits delivery to these types. Empty means all.
	Events []string `yaml:"events,omitempty"`

	// Timeout for webhook requests. Defaults to 10s.
	Timeout time.Duration `yaml:"-"`

	// Headers to include in webhook requests (e.g., for authentication).
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Webhook posts events to an HTTP endpoint.
type Webhook struct {
	config WebhookConfig
	client *http.Client
	logger *slog.Logger
}

// NewWebhook creates a new webhook notifier.
func NewWebhook(config WebhookConfig, logger *slog.Logger) *Webhook {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With(slog.String("component", "notify")),
	}
}

// Notify posts event unless its type is filtered out.
func (w *Webhook) Notify(ctx context.Context, event Event) error {
	if len(w.config.Events) > 0 && !slices.Contains(w.config.Events, event.Type) {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(body))
	}

	w.logger.DebugContext(ctx, "webhook sent",
		slog.String("url", w.config.URL),
		slog.String("event", event.Type),
	)
	return nil
}
