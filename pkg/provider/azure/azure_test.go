package azure

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
	a := NewWithClient(Config{}, &http.Client{})
	want := "https://cass-function-app-westeurope.azurewebsites.net/api/cass-worker"
	if got := a.URL("westeurope"); got != want {
		t.Errorf("URL() = %v, want %v", got, want)
	}
}

func TestAdapter_DeployJob(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if _, wrapped := body["body"]; wrapped {
			t.Error("azure payload must not be wrapped")
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	a := NewWithClient(Config{WorkerURL: server.URL}, server.Client())
	res, err := a.DeployJob(context.Background(), "uksouth", provider.Payload{"job_id": "j-1"})
	if err != nil {
		t.Fatalf("DeployJob() error = %v", err)
	}
	if res.StatusCode != http.StatusAccepted || res.JobID != "j-1" || res.Provider != "azure" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAdapter_DeployJobUnknownRegion(t *testing.T) {
	a := NewWithClient(Config{}, &http.Client{})
	if _, err := a.DeployJob(context.Background(), "FI", provider.Payload{}); !errors.Is(err, provider.ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
}

func TestAdapter_Regions(t *testing.T) {
	if got := len(New(Config{}).Regions()); got != 12 {
		t.Errorf("expected 12 regions, got %d", got)
	}
}
