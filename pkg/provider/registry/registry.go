// Package registry resolves provider names to cloud adapters.
package registry

import (
	"sort"
	"strings"

	"github.com/cass-sched/cass/pkg/failure"
	"github.com/cass-sched/cass/pkg/provider"
	"github.com/cass-sched/cass/pkg/provider/aws"
	"github.com/cass-sched/cass/pkg/provider/azure"
	"github.com/cass-sched/cass/pkg/provider/gcp"
)

// Config carries the per-provider settings; only the selected provider's
// section is used.
type Config struct {
	GCP   gcp.Config   `yaml:"gcp"`
	AWS   aws.Config   `yaml:"aws"`
	Azure azure.Config `yaml:"azure"`
}

var aliases = map[string]string{
	"gcp":             "gcp",
	"google":          "gcp",
	"google-cloud":    "gcp",
	"aws":             "aws",
	"amazon":          "aws",
	"azure":           "azure",
	"microsoft-azure": "azure",
}

// Canonical returns the canonical provider name for name, matching
// case-insensitively and accepting synonyms such as "google". The empty
// string and "none" map to "".
func Canonical(name string) (string, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || n == "none" {
		return "", nil
	}
	if c, ok := aliases[n]; ok {
		return c, nil
	}
	return "", failure.Newf(failure.ConfigurationError, "registry",
		"unknown provider %q (supported: %s)", name, strings.Join(Supported(), ", "))
}

// Supported returns the accepted provider names, synonyms included.
func Supported() []string {
	out := make([]string, 0, len(aliases))
	for k := range aliases {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the adapter for name. It returns a nil adapter for "" or
// "none", meaning dispatch should use the direct fallback. Unknown names
// are a configuration error.
func New(name string, cfg Config) (provider.Adapter, error) {
	canonical, err := Canonical(name)
	if err != nil {
		return nil, err
	}
	switch canonical {
	case "gcp":
		a, err := gcp.New(cfg.GCP)
		if err != nil {
			return nil, failure.New(failure.ConfigurationError, "registry", err)
		}
		return a, nil
	case "aws":
		return aws.New(cfg.AWS), nil
	case "azure":
		return azure.New(cfg.Azure), nil
	}
	return nil, nil
}
