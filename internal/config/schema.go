// Package config provides loading and validation for testops.yaml.
package config

import "time"

// Config represents the complete testops.yaml configuration.
type Config struct {
	Schema            string          `yaml:"$schema,omitempty" json:"$schema,omitempty"`
	API               APIConfig       `yaml:"api" json:"api"`
	App               AppConfig       `yaml:"app,omitempty" json:"app,omitempty"`
	DefaultProject    string          `yaml:"default_project,omitempty" json:"default_project,omitempty"`
	Projects          []ProjectConfig `yaml:"projects,omitempty" json:"projects,omitempty"`
	Run               RunConfig       `yaml:"run,omitempty" json:"run,omitempty"`
	Environment       string          `yaml:"environment,omitempty" json:"environment,omitempty"`
	BatchSize         int             `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
	UploadAttachments *bool           `yaml:"upload_attachments,omitempty" json:"upload_attachments,omitempty"`
	Intake            IntakeConfig    `yaml:"intake,omitempty" json:"intake,omitempty"`
}

// APIConfig configures the REST client.
type APIConfig struct {
	Token      string        `yaml:"token,omitempty" json:"token,omitempty"`
	Host       string        `yaml:"host,omitempty" json:"host,omitempty"`
	MaxRetries *int          `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	RetryDelay time.Duration `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// AppConfig configures the web UI used in diagnostic links.
type AppConfig struct {
	Host string `yaml:"host,omitempty" json:"host,omitempty"`
}

// ProjectConfig defines one destination project.
type ProjectConfig struct {
	Code        string     `yaml:"code" json:"code"`
	Run         *RunConfig `yaml:"run,omitempty" json:"run,omitempty"` // Overrides the top-level run settings
	Environment string     `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// RunConfig configures the run created (or reused) in a project.
type RunConfig struct {
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	ID          int64  `yaml:"id,omitempty" json:"id,omitempty"`             // Report into an existing run
	Complete    *bool  `yaml:"complete,omitempty" json:"complete,omitempty"` // Complete the run at the end (default: true)
}

// IntakeConfig configures the WebSocket intake server.
type IntakeConfig struct {
	Listen string `yaml:"listen,omitempty" json:"listen,omitempty"`
}

// ProjectCodes returns the configured project codes in order.
func (c *Config) ProjectCodes() []string {
	codes := make([]string, len(c.Projects))
	for i, p := range c.Projects {
		codes[i] = p.Code
	}
	return codes
}

// ProjectRun returns the effective run settings of a project: its own
// settings layered over the top-level run section.
func (c *Config) ProjectRun(p ProjectConfig) RunConfig {
	run := c.Run
	if p.Run == nil {
		return run
	}
	if p.Run.Title != "" {
		run.Title = p.Run.Title
	}
	if p.Run.Description != "" {
		run.Description = p.Run.Description
	}
	if p.Run.ID != 0 {
		run.ID = p.Run.ID
	}
	if p.Run.Complete != nil {
		run.Complete = p.Run.Complete
	}
	return run
}

// ProjectEnvironment returns the environment slug of a project.
func (c *Config) ProjectEnvironment(p ProjectConfig) string {
	if p.Environment != "" {
		return p.Environment
	}
	return c.Environment
}

// ShouldUploadAttachments reports whether attachments are uploaded.
func (c *Config) ShouldUploadAttachments() bool {
	return c.UploadAttachments == nil || *c.UploadAttachments
}

// ShouldComplete reports whether a run should be completed.
func (r RunConfig) ShouldComplete() bool {
	return r.Complete == nil || *r.Complete
}
