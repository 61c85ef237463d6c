// Package gcp dispatches jobs to Google Cloud Functions.
package gcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"

	"github.com/cass-sched/cass/pkg/provider"
)

const (
	defaultProjectID    = "cass-lite"
	defaultFunctionName = "cass-worker"
	defaultTimeout      = 30 * time.Second

	invokeScope = "https://www.googleapis.com/auth/cloud-platform"
)

var regions = []string{
	"us-central1", "us-east1", "us-west1", "us-west2",
	"europe-west1", "europe-west2", "europe-west3",
	"asia-east1", "asia-northeast1", "asia-south1", "asia-southeast1",
}

// Config holds configuration for the GCP adapter.
type Config struct {
	ProjectID    string        `yaml:"project_id"`
	FunctionName string        `yaml:"function_name"`
	WorkerURL    string        `yaml:"worker_url"` // Overrides the per-region URL
	Auth         bool          `yaml:"auth"`       // Use Application Default Credentials
	Timeout      time.Duration `yaml:"-"`
}

// Adapter implements provider.Adapter for Cloud Functions.
type Adapter struct {
	projectID    string
	functionName string
	workerURL    string
	client       *http.Client
}

// New creates a GCP adapter. With Auth set, requests carry an OAuth2 token
// from Application Default Credentials.
func New(cfg Config) (*Adapter, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	client := &http.Client{Timeout: timeout}
	if cfg.Auth {
		var err error
		client, err = google.DefaultClient(context.Background(), invokeScope)
		if err != nil {
			return nil, fmt.Errorf("failed to create authenticated client: %w", err)
		}
		client.Timeout = timeout
	}
	return NewWithClient(cfg, client), nil
}

// NewWithClient creates a GCP adapter with a custom HTTP client (for testing).
func NewWithClient(cfg Config, client *http.Client) *Adapter {
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = defaultProjectID
	}
	functionName := cfg.FunctionName
	if functionName == "" {
		functionName = defaultFunctionName
	}
	return &Adapter{
		projectID:    projectID,
		functionName: functionName,
		workerURL:    cfg.WorkerURL,
		client:       client,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "gcp"
}

// Regions returns the supported Cloud Functions regions.
func (a *Adapter) Regions() []string {
	return append([]string(nil), regions...)
}

// URL returns the function endpoint for region.
func (a *Adapter) URL(region string) string {
	if a.workerURL != "" {
		return a.workerURL
	}
	return fmt.Sprintf("https://%s-%s.cloudfunctions.net/%s", region, a.projectID, a.functionName)
}

// DeployJob posts the payload as the raw request body.
func (a *Adapter) DeployJob(ctx context.Context, region string, payload provider.Payload) (*provider.DeployResult, error) {
	if err := provider.ValidateRegion(a, region); err != nil {
		return nil, err
	}

	url := a.URL(region)
	resp, err := provider.PostJSON(ctx, a.client, url, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("gcp %s: %w", region, err)
	}

	return &provider.DeployResult{
		JobID:      payload.JobID(),
		Region:     region,
		Provider:   "gcp",
		URL:        url,
		Message:    fmt.Sprintf("job deployed to Cloud Function in %s", region),
		StatusCode: resp.StatusCode,
		Response:   resp.Body,
	}, nil
}
