package aws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cass-sched/cass/pkg/provider"
)

func TestAdapter_URL(t *testing.T) {
	a := NewWithClient(Config{FunctionID: "abc123"}, &http.Client{})
	want := "https://abc123.lambda-url.eu-west-1.on.aws/"
	if got := a.URL("eu-west-1"); got != want {
		t.Errorf("URL() = %v, want %v", got, want)
	}
	if got := a.Name(); got != "aws" {
		t.Errorf("Name() = %v, want aws", got)
	}
}

func TestAdapter_DeployJobEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env struct {
			Body    map[string]any    `json:"body"`
			Headers map[string]string `json:"headers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Errorf("failed to decode envelope: %v", err)
		}
		if env.Body["task_id"] != "task-9" {
			t.Errorf("envelope body = %v", env.Body)
		}
		if env.Headers["Content-Type"] != "application/json" {
			t.Errorf("envelope headers = %v", env.Headers)
		}
		w.Write([]byte(`{"statusCode":200}`))
	}))
	defer server.Close()

	a := NewWithClient(Config{WorkerURL: server.URL}, server.Client())
	res, err := a.DeployJob(context.Background(), "us-west-2", provider.Payload{"task_id": "task-9"})
	if err != nil {
		t.Fatalf("DeployJob() error = %v", err)
	}
	if res.Provider != "aws" || res.JobID != "task-9" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAdapter_DeployJobUnknownRegion(t *testing.T) {
	a := NewWithClient(Config{WorkerURL: "http://127.0.0.1:1"}, &http.Client{})
	_, err := a.DeployJob(context.Background(), "us-central1", provider.Payload{})
	if !errors.Is(err, provider.ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
}

func TestAdapter_DeployJobForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	a := NewWithClient(Config{WorkerURL: server.URL}, server.Client())
	if _, err := a.DeployJob(context.Background(), "us-east-1", provider.Payload{}); err == nil {
		t.Error("expected error for 403")
	}
}
