// Package aws dispatches jobs to AWS Lambda function URLs.
package aws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cass-sched/cass/pkg/provider"
)

const (
	defaultFunctionID = "cass-worker"
	defaultTimeout    = 30 * time.Second
)

var regions = []string{
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	"eu-west-1", "eu-west-2", "eu-central-1",
	"ap-south-1", "ap-southeast-1", "ap-southeast-2", "ap-northeast-1",
}

// Config holds configuration for the AWS adapter.
type Config struct {
	FunctionID string        `yaml:"function_id"` // Lambda function URL id
	WorkerURL  string        `yaml:"worker_url"`  // Overrides the per-region URL
	Timeout    time.Duration `yaml:"-"`
}

// Adapter implements provider.Adapter for Lambda function URLs.
type Adapter struct {
	functionID string
	workerURL  string
	client     *http.Client
}

// New creates an AWS adapter.
func New(cfg Config) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return NewWithClient(cfg, &http.Client{Timeout: timeout})
}

// NewWithClient creates an AWS adapter with a custom HTTP client (for testing).
func NewWithClient(cfg Config, client *http.Client) *Adapter {
	functionID := cfg.FunctionID
	if functionID == "" {
		functionID = defaultFunctionID
	}
	return &Adapter{
		functionID: functionID,
		workerURL:  cfg.WorkerURL,
		client:     client,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "aws"
}

// Regions returns the supported Lambda regions.
func (a *Adapter) Regions() []string {
	return append([]string(nil), regions...)
}

// URL returns the function URL for region.
func (a *Adapter) URL(region string) string {
	if a.workerURL != "" {
		return a.workerURL
	}
	return fmt.Sprintf("https://%s.lambda-url.%s.on.aws/", a.functionID, region)
}

// envelope mirrors the API Gateway proxy event shape Lambda handlers expect.
type envelope struct {
	Body    provider.Payload  `json:"body"`
	Headers map[string]string `json:"headers"`
}

// DeployJob wraps the payload in a gateway-style envelope and posts it.
func (a *Adapter) DeployJob(ctx context.Context, region string, payload provider.Payload) (*provider.DeployResult, error) {
	if err := provider.ValidateRegion(a, region); err != nil {
		return nil, err
	}

	url := a.URL(region)
	body := envelope{
		Body:    payload,
		Headers: map[string]string{"Content-Type": "application/json"},
	}
	resp, err := provider.PostJSON(ctx, a.client, url, body, nil)
	if err != nil {
		return nil, fmt.Errorf("aws %s: %w", region, err)
	}

	return &provider.DeployResult{
		JobID:      payload.JobID(),
		Region:     region,
		Provider:   "aws",
		URL:        url,
		Message:    fmt.Sprintf("job deployed to Lambda in %s", region),
		StatusCode: resp.StatusCode,
		Response:   resp.Body,
	}, nil
}
