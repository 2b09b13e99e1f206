package config

import (
	"testing"
	"time"
)

// FuzzLoadWithWarnings tests parsing of arbitrary config documents.
// Run: go test -fuzz=FuzzLoadWithWarnings -fuzztime=30s ./internal/config
func FuzzLoadWithWarnings(f *testing.F) {
	seeds := []string{
		"projects:\n  - code: DEMO\n",
		"api:\n  token: x\n  retry_delay: 2s\nprojects:\n  - code: DEMO\n    run:\n      id: 3\n",
		`{"projects": [{"code": "DEMO"}], "batch_size": 10}`,
		``,
		`null`,
		`[]`,
		`"string"`,
		`123`,
		"projects: DEMO\n",
		"projects:\n  - 1\n  - [a]\n",
		"api:\n  timeout: forever\n",
		"run:\n  id: -1\n",
		"projects: [\n",
		"{projects: [{code: DEMO}]",
		"\t- bad indent",
		"a: &x 1\nb: *x\n",
		"projects:\n  - code: \"\\u0000\"\n",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, data string) {
		cfg, _, err := LoadWithWarnings([]byte(data))
		if err != nil {
			return
		}
		// Defaults and validation must never panic on a parsed config.
		applyDefaults(cfg, time.Unix(0, 0))
		_, _ = Validate(cfg)
		_ = cfg.ProjectCodes()
		for _, p := range cfg.Projects {
			_ = cfg.ProjectRun(p)
		}
	})
}

// FuzzApplyEnv tests environment overrides with arbitrary values.
func FuzzApplyEnv(f *testing.F) {
	f.Add("DEMO", "17", "200", "true")
	f.Add("", "", "", "")
	f.Add("x", "-1", "0", "maybe")
	f.Add("API", "99999999999999999999", "2001", "1")

	f.Fuzz(func(t *testing.T, project, runID, batch, attachments string) {
		cfg := &Config{}
		err := applyEnv(cfg, envMap(map[string]string{
			EnvProject:           project,
			EnvRunID:             runID,
			EnvBatchSize:         batch,
			EnvUploadAttachments: attachments,
		}))
		if err != nil {
			return
		}
		if cfg.BatchSize != 0 && (cfg.BatchSize < MinBatchSize || cfg.BatchSize > MaxBatchSize) {
			t.Errorf("BatchSize %d accepted from %q", cfg.BatchSize, batch)
		}
		if cfg.Run.ID < 0 {
			t.Errorf("negative run id accepted from %q", runID)
		}
	})
}
