package config

import (
	"fmt"
	"regexp"
)

// Limits on the batch size accepted by the bulk endpoint.
const (
	MinBatchSize = 1
	MaxBatchSize = 2000
)

// projectCodePattern matches TestOps project codes.
var projectCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration (after defaults) for errors and returns
// warnings for non-fatal issues.
func Validate(cfg *Config) (warnings []string, err error) {
	if err := validateProjects(cfg); err != nil {
		return nil, err
	}
	if cfg.BatchSize < MinBatchSize || cfg.BatchSize > MaxBatchSize {
		return nil, &ValidationError{
			Field:   "batch_size",
			Message: fmt.Sprintf("must be between %d and %d, got %d", MinBatchSize, MaxBatchSize, cfg.BatchSize),
		}
	}
	if cfg.API.MaxRetries != nil && *cfg.API.MaxRetries < 0 {
		return nil, &ValidationError{Field: "api.max_retries", Message: "must not be negative"}
	}
	if cfg.API.RetryDelay < 0 {
		return nil, &ValidationError{Field: "api.retry_delay", Message: "must not be negative"}
	}
	if cfg.API.Timeout < 0 {
		return nil, &ValidationError{Field: "api.timeout", Message: "must not be negative"}
	}
	if cfg.Run.ID < 0 {
		return nil, &ValidationError{Field: "run.id", Message: "must be positive"}
	}

	if cfg.Run.ID > 0 && len(cfg.Projects) > 1 {
		warnings = append(warnings, fmt.Sprintf("run.id %d applies to every project; set it per project instead", cfg.Run.ID))
	}
	return warnings, nil
}

func validateProjects(cfg *Config) error {
	if len(cfg.Projects) == 0 {
		return &ValidationError{Field: "projects", Message: "at least one project is required"}
	}
	seen := make(map[string]bool, len(cfg.Projects))
	for i, p := range cfg.Projects {
		field := fmt.Sprintf("projects[%d].code", i)
		if msg := checkProjectCode(p.Code); msg != "" {
			return &ValidationError{Field: field, Message: msg}
		}
		if seen[p.Code] {
			return &ValidationError{Field: field, Message: fmt.Sprintf("duplicate project %q", p.Code)}
		}
		seen[p.Code] = true
		if p.Run != nil && p.Run.ID < 0 {
			return &ValidationError{Field: fmt.Sprintf("projects[%d].run.id", i), Message: "must be positive"}
		}
	}
	if cfg.DefaultProject != "" && !seen[cfg.DefaultProject] {
		return &ValidationError{
			Field:   "default_project",
			Message: fmt.Sprintf("project %q is not configured", cfg.DefaultProject),
		}
	}
	return nil
}

// ValidateProjectCode checks if a project code is valid.
func ValidateProjectCode(code string) error {
	if msg := checkProjectCode(code); msg != "" {
		return &ValidationError{Field: "project code", Message: msg}
	}
	return nil
}

func checkProjectCode(code string) string {
	if code == "" {
		return "is required"
	}
	if !projectCodePattern.MatchString(code) {
		return fmt.Sprintf("%q must match pattern ^[A-Z0-9]{2,10}$ (uppercase letters and digits)", code)
	}
	return ""
}
