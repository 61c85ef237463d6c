// Package azure dispatches jobs to Azure Functions.
package azure

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cass-sched/cass/pkg/provider"
)

const (
	defaultAppName      = "cass-function-app"
	defaultFunctionName = "cass-worker"
	defaultTimeout      = 30 * time.Second
)

var regions = []string{
	"eastus", "eastus2", "westus", "westus2", "centralus",
	"northeurope", "westeurope", "uksouth",
	"southeastasia", "eastasia", "australiaeast", "centralindia",
}

// Config holds configuration for the Azure adapter.
type Config struct {
	AppName      string        `yaml:"app_name"`
	FunctionName string        `yaml:"function_name"`
	WorkerURL    string        `yaml:"worker_url"` // Overrides the per-region URL
	Timeout      time.Duration `yaml:"-"`
}

// Adapter implements provider.Adapter for Azure Functions.
type Adapter struct {
	appName      string
	functionName string
	workerURL    string
	client       *http.Client
}

// New creates an Azure adapter.
func New(cfg Config) *Adapter {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return NewWithClient(cfg, &http.Client{Timeout: timeout})
}

// NewWithClient creates an Azure adapter with a custom HTTP client (for testing).
func NewWithClient(cfg Config, client *http.Client) *Adapter {
	appName := cfg.AppName
	if appName == "" {
		appName = defaultAppName
	}
	functionName := cfg.FunctionName
	if functionName == "" {
		functionName = defaultFunctionName
	}
	return &Adapter{
		appName:      appName,
		functionName: functionName,
		workerURL:    cfg.WorkerURL,
		client:       client,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return "azure"
}

// Regions returns the supported Azure regions.
func (a *Adapter) Regions() []string {
	return append([]string(nil), regions...)
}

// URL returns the function endpoint for region.
func (a *Adapter) URL(region string) string {
	if a.workerURL != "" {
		return a.workerURL
	}
	return fmt.Sprintf("https://%s-%s.azurewebsites.net/api/%s", a.appName, region, a.functionName)
}

// DeployJob posts the payload as the raw request body.
func (a *Adapter) DeployJob(ctx context.Context, region string, payload provider.Payload) (*provider.DeployResult, error) {
	if err := provider.ValidateRegion(a, region); err != nil {
		return nil, err
	}

	url := a.URL(region)
	resp, err := provider.PostJSON(ctx, a.client, url, payload, nil)
	if err != nil {
		return nil, fmt.Errorf("azure %s: %w", region, err)
	}

	return &provider.DeployResult{
		JobID:      payload.JobID(),
		Region:     region,
		Provider:   "azure",
		URL:        url,
		Message:    fmt.Sprintf("job deployed to Azure Function in %s", region),
		StatusCode: resp.StatusCode,
		Response:   resp.Body,
	}, nil
}
