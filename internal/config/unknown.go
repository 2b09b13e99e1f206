package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadWithWarnings parses config data and returns any unknown field warnings.
func LoadWithWarnings(data []byte) (*Config, []string, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	warnings := detectUnknownFields(data)

	return &cfg, warnings, nil
}

// detectUnknownFields compares the raw document with known struct fields.
func detectUnknownFields(data []byte) []string {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		// Config already parsed, so this indicates an internal inconsistency.
		return []string{"internal: failed to re-parse config for unknown field detection"}
	}

	var warnings []string
	warnings = append(warnings, unknownKeys(raw, reflect.TypeOf(Config{}), "root level")...)
	warnings = append(warnings, unknownKeys(asMap(raw["api"]), reflect.TypeOf(APIConfig{}), `"api"`)...)
	warnings = append(warnings, unknownKeys(asMap(raw["app"]), reflect.TypeOf(AppConfig{}), `"app"`)...)
	warnings = append(warnings, unknownKeys(asMap(raw["run"]), reflect.TypeOf(RunConfig{}), `"run"`)...)
	warnings = append(warnings, unknownKeys(asMap(raw["intake"]), reflect.TypeOf(IntakeConfig{}), `"intake"`)...)

	if projects, ok := raw["projects"].([]interface{}); ok {
		for i, p := range projects {
			pm := asMap(p)
			where := fmt.Sprintf("project %d", i)
			if code, ok := pm["code"].(string); ok && code != "" {
				where = fmt.Sprintf("project %q", code)
			}
			warnings = append(warnings, unknownKeys(pm, reflect.TypeOf(ProjectConfig{}), where)...)
			warnings = append(warnings, unknownKeys(asMap(pm["run"]), reflect.TypeOf(RunConfig{}), where+" run")...)
		}
	}

	return warnings
}

func unknownKeys(m map[string]interface{}, t reflect.Type, where string) []string {
	if len(m) == 0 {
		return nil
	}
	known := getYAMLFields(t)
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var warnings []string
	for _, key := range keys {
		if !known[key] {
			if where == "root level" {
				warnings = append(warnings, fmt.Sprintf("unknown field %q at root level (ignored)", key))
			} else {
				warnings = append(warnings, fmt.Sprintf("unknown field %q in %s (ignored)", key, where))
			}
		}
	}
	return warnings
}

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

// getYAMLFields returns a map of known YAML field names for a struct type.
func getYAMLFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("yaml")
		if tag == "" || tag == "-" {
			continue
		}
		if name := strings.Split(tag, ",")[0]; name != "" {
			fields[name] = true
		}
	}
	return fields
}
