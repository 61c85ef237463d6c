package registry

import (
	"testing"

	"github.com/cass-sched/cass/pkg/failure"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{"gcp", "gcp", "gcp", false, false},
		{"google synonym", "Google", "gcp", false, false},
		{"google-cloud trimmed", "  google-cloud ", "gcp", false, false},
		{"aws", "AWS", "aws", false, false},
		{"amazon", "amazon", "aws", false, false},
		{"azure", "Azure", "azure", false, false},
		{"microsoft-azure", "microsoft-azure", "azure", false, false},
		{"empty", "", "", true, false},
		{"none", "None", "", true, false},
		{"unknown", "ibm", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.input, Config{})
			if tt.wantErr {
				if !failure.Is(err, failure.ConfigurationError) {
					t.Errorf("expected ConfigurationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) error = %v", tt.input, err)
			}
			if tt.wantNil {
				if a != nil {
					t.Errorf("New(%q) = %v, want nil", tt.input, a)
				}
				return
			}
			if a.Name() != tt.wantName {
				t.Errorf("New(%q).Name() = %v, want %v", tt.input, a.Name(), tt.wantName)
			}
		})
	}
}

func TestCanonical(t *testing.T) {
	got, err := Canonical("GOOGLE")
	if err != nil || got != "gcp" {
		t.Errorf("Canonical(GOOGLE) = %q, %v", got, err)
	}
}
