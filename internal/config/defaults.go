package config

import "time"

// Default configuration values.
const (
	DefaultAPIHost    = "api.qase.io"
	DefaultAppHost    = "app.qase.io"
	DefaultBatchSize  = 200
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 30 * time.Second
	DefaultListen     = "127.0.0.1:8089"
	DefaultRunPrefix  = "Automated run "
)

// applyDefaults fills in default values for unset configuration fields.
func applyDefaults(cfg *Config, now time.Time) {
	applyAPIDefaults(cfg)
	if cfg.App.Host == "" {
		cfg.App.Host = DefaultAppHost
	}
	if cfg.DefaultProject == "" && len(cfg.Projects) > 0 {
		cfg.DefaultProject = cfg.Projects[0].Code
	}
	if cfg.Run.Title == "" {
		cfg.Run.Title = DefaultRunPrefix + now.Format(time.RFC3339)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.UploadAttachments == nil {
		enabled := true
		cfg.UploadAttachments = &enabled
	}
	if cfg.Intake.Listen == "" {
		cfg.Intake.Listen = DefaultListen
	}
}

func applyAPIDefaults(cfg *Config) {
	if cfg.API.Host == "" {
		cfg.API.Host = DefaultAPIHost
	}
	if cfg.API.MaxRetries == nil {
		retries := DefaultMaxRetries
		cfg.API.MaxRetries = &retries
	}
	if cfg.API.RetryDelay == 0 {
		cfg.API.RetryDelay = DefaultRetryDelay
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = DefaultTimeout
	}
}
