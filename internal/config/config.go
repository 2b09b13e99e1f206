package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AndreyAkinshin/testops/internal/schema"
)

// FileNames are the config file names searched for, in order.
var FileNames = []string{"testops.yaml", "testops.yml", "testops.json"}

// ErrNoConfig is returned when no config file is found.
var ErrNoConfig = errors.New("testops.yaml not found in the current directory or any parent")

// Load reads and parses a configuration file. JSON files are parsed as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults reads a config file and applies default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg, time.Now())
	return cfg, nil
}

// Options controls LoadAndValidate.
type Options struct {
	// Getenv reads environment overrides; nil disables them.
	Getenv func(string) string
	// Now stamps the default run title; time.Now when nil.
	Now func() time.Time
}

// LoadAndValidate reads a config file, checks it against the schema,
// applies environment overrides and defaults, validates, and returns
// warnings. An empty path skips the file, so a configuration may come from
// the environment alone.
func LoadAndValidate(path string, opts Options) (*Config, []string, error) {
	cfg := &Config{}
	var unknownWarnings []string

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := schema.ValidateConfig(data); err != nil {
			return nil, nil, err
		}
		cfg, unknownWarnings, err = LoadWithWarnings(data)
		if err != nil {
			return nil, nil, err
		}
	}

	if opts.Getenv != nil {
		if err := applyEnv(cfg, opts.Getenv); err != nil {
			return nil, unknownWarnings, err
		}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	applyDefaults(cfg, now())

	validationWarnings, err := Validate(cfg)

	// Combine warnings from both sources.
	allWarnings := make([]string, 0, len(unknownWarnings)+len(validationWarnings))
	allWarnings = append(allWarnings, unknownWarnings...)
	allWarnings = append(allWarnings, validationWarnings...)

	if err != nil {
		return nil, allWarnings, err
	}

	return cfg, allWarnings, nil
}

// Find walks up from the current working directory until it finds a config file.
func Find() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindFrom(cwd)
}

// FindFrom walks up from startDir until it finds a config file.
func FindFrom(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", ErrNoConfig
		}
		dir = parent
	}
}

// Marshal renders a configuration as YAML with the token masked.
func Marshal(cfg *Config) ([]byte, error) {
	masked := *cfg
	if masked.API.Token != "" {
		masked.API.Token = maskToken(masked.API.Token)
	}
	return yaml.Marshal(&masked)
}

func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
