package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestReporterError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ReporterError
		expected string
	}{
		{
			name:     "message only",
			err:      &ReporterError{Message: "something failed"},
			expected: "something failed",
		},
		{
			name:     "with project",
			err:      &ReporterError{Project: "DEMO", Message: "upload failed"},
			expected: "[DEMO] upload failed",
		},
		{
			name:     "with project and operation",
			err:      &ReporterError{Project: "DEMO", Operation: "create run", Message: "unauthorized"},
			expected: "[DEMO] create run: unauthorized",
		},
		{
			name:     "operation without project not included",
			err:      &ReporterError{Operation: "create run", Message: "something failed"},
			expected: "something failed",
		},
		{
			name:     "cause appended to message",
			err:      &ReporterError{Message: "read report", Cause: errors.New("no such file")},
			expected: "read report: no such file",
		},
		{
			name:     "cause only",
			err:      &ReporterError{Project: "P1", Operation: "complete run", Cause: errors.New("status 500")},
			expected: "[P1] complete run: status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestReporterError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ReporterError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}

	errNoCause := &ReporterError{Message: "no cause"}
	if got := errNoCause.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestReporterError_ExitCode(t *testing.T) {
	tests := []struct {
		name     string
		kind     ErrorKind
		expected int
	}{
		{"runtime", KindRuntime, ExitRuntimeError},
		{"config", KindConfig, ExitConfigError},
		{"validation", KindValidation, ExitConfigError},
		{"not found", KindNotFound, ExitRuntimeError},
		{"environment", KindEnvironment, ExitEnvironmentError},
		{"api", KindAPI, ExitRuntimeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &ReporterError{Kind: tt.kind}
			if got := err.ExitCode(); got != tt.expected {
				t.Errorf("ExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestConfigf(t *testing.T) {
	err := Configf("field %q: %s", "project", "is required")

	if err.Kind != KindConfig {
		t.Errorf("Kind = %v, want %v", err.Kind, KindConfig)
	}
	expected := `field "project": is required`
	if err.Message != expected {
		t.Errorf("Message = %q, want %q", err.Message, expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("original error")
	err := Wrap(cause, "wrapped message")

	if err.Kind != KindRuntime {
		t.Errorf("Kind = %v, want %v", err.Kind, KindRuntime)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find original cause")
	}
}

func TestAPI(t *testing.T) {
	cause := errors.New("status 401")
	err := API("DEMO", "create run", cause)

	if err.Kind != KindAPI {
		t.Errorf("Kind = %v, want %v", err.Kind, KindAPI)
	}
	if err.Error() != "[DEMO] create run: status 401" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestProjectError(t *testing.T) {
	err := ProjectError("DEMO", "upload results", "empty batch")

	if err.Project != "DEMO" || err.Operation != "upload results" {
		t.Errorf("Project/Operation = %q/%q", err.Project, err.Operation)
	}
	if err.Error() != "[DEMO] upload results: empty batch" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("format", "nunit")

	if err.Kind != KindNotFound {
		t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
	}
	expected := "format not found: nunit"
	if err.Message != expected {
		t.Errorf("Message = %q, want %q", err.Message, expected)
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, ExitSuccess},
		{"ReporterError runtime", New("runtime"), ExitRuntimeError},
		{"ReporterError config", Config("config"), ExitConfigError},
		{"ReporterError validation", &ReporterError{Kind: KindValidation}, ExitConfigError},
		{"ReporterError environment", Environment("env"), ExitEnvironmentError},
		{"wrapped config error", fmt.Errorf("load: %w", Config("bad")), ExitConfigError},
		{"generic error", errors.New("generic"), ExitRuntimeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.expected {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	inner := Config("bad batch size")
	outer := Wrap(inner, "load config")

	if !IsKind(outer, KindConfig) {
		t.Error("IsKind(outer, KindConfig) = false, want true")
	}
	if !IsKind(outer, KindRuntime) {
		t.Error("IsKind(outer, KindRuntime) = false, want true")
	}
	if IsKind(outer, KindAPI) {
		t.Error("IsKind(outer, KindAPI) = true, want false")
	}
	if IsKind(errors.New("plain"), KindRuntime) {
		t.Error("IsKind(plain) = true, want false")
	}
}

func TestErrorKind_String(t *testing.T) {
	if KindAPI.String() != "api" {
		t.Errorf("KindAPI.String() = %q", KindAPI.String())
	}
	if KindRuntime.String() != "runtime" {
		t.Errorf("KindRuntime.String() = %q", KindRuntime.String())
	}
}
