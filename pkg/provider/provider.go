// Package provider defines the cloud adapter interface used to hand a job to
// a region's execution endpoint, plus the HTTP plumbing the adapters share.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// Payload is the JSON body handed to a worker endpoint.
type Payload map[string]any

// JobID returns the payload's job_id or task_id, or "unknown".
func (p Payload) JobID() string {
	for _, k := range []string{"job_id", "task_id"} {
		if v, ok := p[k].(string); ok && v != "" {
			return v
		}
	}
	return "unknown"
}

// DeployResult is a provider's acknowledgment of a job.
type DeployResult struct {
	JobID      string         `json:"job_id"`
	Region     string         `json:"region"`
	Provider   string         `json:"provider"`
	URL        string         `json:"url"`
	Message    string         `json:"message"`
	StatusCode int            `json:"status_code"`
	Response   map[string]any `json:"response,omitempty"`
}

// Adapter translates a generic dispatch into a provider-specific request.
type Adapter interface {
	// Name returns the provider name, e.g. "gcp".
	Name() string
	// DeployJob posts payload to the region's endpoint. Any error is a
	// failed attempt.
	DeployJob(ctx context.Context, region string, payload Payload) (*DeployResult, error)
	// Regions returns the region identifiers the adapter accepts.
	Regions() []string
}

// ErrUnknownRegion is returned when a region is not in the adapter's catalog.
var ErrUnknownRegion = errors.New("unknown region")

// ValidateRegion checks region against an adapter's catalog.
func ValidateRegion(a Adapter, region string) error {
	if !slices.Contains(a.Regions(), region) {
		return fmt.Errorf("%s: %w %q", a.Name(), ErrUnknownRegion, region)
	}
	return nil
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Response is a decoded acknowledgment.
type Response struct {
	StatusCode int
	Body       map[string]any
}

const maxErrorBody = 1024

// PostJSON marshals body, posts it to url and decodes the JSON reply.
// Any 2xx status with a JSON body (or no body) is an acknowledgment. A
// non-object body is returned under the "result" key.
func PostJSON(ctx context.Context, client *http.Client, url string, body any, headers http.Header) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}

	decoded := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		if m, ok := v.(map[string]any); ok {
			decoded = m
		} else {
			decoded["result"] = v
		}
	}
	return &Response{StatusCode: resp.StatusCode, Body: decoded}, nil
}
