package config

import (
	"strconv"
	"strings"
)

// Environment variables that override the configuration file.
const (
	EnvAPIToken          = "TESTOPS_API_TOKEN"
	EnvAPIHost           = "TESTOPS_API_HOST"
	EnvProject           = "TESTOPS_PROJECT"
	EnvRunTitle          = "TESTOPS_RUN_TITLE"
	EnvRunDescription    = "TESTOPS_RUN_DESCRIPTION"
	EnvRunID             = "TESTOPS_RUN_ID"
	EnvEnvironment       = "TESTOPS_ENVIRONMENT"
	EnvBatchSize         = "TESTOPS_BATCH_SIZE"
	EnvUploadAttachments = "TESTOPS_UPLOAD_ATTACHMENTS"
)

// EnvVars lists the supported overrides with a short description, in help order.
var EnvVars = [][2]string{
	{EnvAPIToken, "API token"},
	{EnvAPIHost, "API host (default " + DefaultAPIHost + ")"},
	{EnvProject, "Default project code; added to projects if missing"},
	{EnvRunTitle, "Run title"},
	{EnvRunDescription, "Run description"},
	{EnvRunID, "Report into an existing run"},
	{EnvEnvironment, "Environment slug"},
	{EnvBatchSize, "Results per upload (1-2000)"},
	{EnvUploadAttachments, "Upload attachments (true/false)"},
}

// applyEnv applies environment overrides. Empty variables are ignored.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvAPIToken)); v != "" {
		cfg.API.Token = v
	}
	if v := strings.TrimSpace(getenv(EnvAPIHost)); v != "" {
		cfg.API.Host = v
	}
	if v := strings.TrimSpace(getenv(EnvProject)); v != "" {
		cfg.DefaultProject = v
		found := false
		for _, p := range cfg.Projects {
			if p.Code == v {
				found = true
				break
			}
		}
		if !found {
			cfg.Projects = append(cfg.Projects, ProjectConfig{Code: v})
		}
	}
	if v := getenv(EnvRunTitle); v != "" {
		cfg.Run.Title = v
	}
	if v := getenv(EnvRunDescription); v != "" {
		cfg.Run.Description = v
	}
	if v := strings.TrimSpace(getenv(EnvRunID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return &ValidationError{Field: EnvRunID, Message: "must be a positive integer"}
		}
		cfg.Run.ID = id
	}
	if v := strings.TrimSpace(getenv(EnvEnvironment)); v != "" {
		cfg.Environment = v
	}
	if v := strings.TrimSpace(getenv(EnvBatchSize)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < MinBatchSize || n > MaxBatchSize {
			return &ValidationError{Field: EnvBatchSize, Message: "must be an integer between 1 and 2000"}
		}
		cfg.BatchSize = n
	}
	if v := strings.TrimSpace(getenv(EnvUploadAttachments)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return &ValidationError{Field: EnvUploadAttachments, Message: "must be true or false"}
		}
		cfg.UploadAttachments = &b
	}
	return nil
}
