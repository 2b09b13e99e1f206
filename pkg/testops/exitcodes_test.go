package testops_test

import (
	"testing"

	"github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/pkg/testops"
)

// TestExitCodeConsistency verifies that public exit code constants match
// the internal errors package constants.
func TestExitCodeConsistency(t *testing.T) {
	tests := []struct {
		name     string
		public   int
		internal int
	}{
		{"Success", testops.ExitSuccess, errors.ExitSuccess},
		{"Failure/RuntimeError", testops.ExitFailure, errors.ExitRuntimeError},
		{"ConfigError", testops.ExitConfigError, errors.ExitConfigError},
		{"EnvError/EnvironmentError", testops.ExitEnvError, errors.ExitEnvironmentError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.public != tt.internal {
				t.Errorf("exit code mismatch: public = %d, internal = %d", tt.public, tt.internal)
			}
		})
	}
}
