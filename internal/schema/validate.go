// Package schema provides JSON schema validation for testops configuration
// and results files.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	schemafs "github.com/AndreyAkinshin/testops/schema"
)

const (
	configSchemaName  = "testops.schema.json"
	resultsSchemaName = "results.schema.json"
)

var (
	configSchema  *jsonschema.Schema
	resultsSchema *jsonschema.Schema
	compileOnce   sync.Once
	compileErr    error
)

// compileSchemas compiles all embedded schemas once.
func compileSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()

		for _, name := range []string{configSchemaName, resultsSchemaName} {
			data, err := schemafs.FS.ReadFile(name)
			if err != nil {
				compileErr = fmt.Errorf("read %s: %w", name, err)
				return
			}
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
			if err != nil {
				compileErr = fmt.Errorf("unmarshal %s: %w", name, err)
				return
			}
			if err := compiler.AddResource(name, doc); err != nil {
				compileErr = fmt.Errorf("add %s resource: %w", name, err)
				return
			}
		}

		var err error
		configSchema, err = compiler.Compile(configSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("compile config schema: %w", err)
			return
		}

		resultsSchema, err = compiler.Compile(resultsSchemaName)
		if err != nil {
			compileErr = fmt.Errorf("compile results schema: %w", err)
			return
		}
	})

	return compileErr
}

// ValidateConfig validates YAML or JSON config data against the config schema.
func ValidateConfig(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	v, err := yamlToJSONValue(data)
	if err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	if v == nil {
		// An empty file is an empty configuration.
		return nil
	}

	if err := configSchema.Validate(v); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// ValidateResults validates JSON data against the results file schema.
func ValidateResults(data []byte) error {
	if err := compileSchemas(); err != nil {
		return err
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := resultsSchema.Validate(v); err != nil {
		return fmt.Errorf("results validation failed: %w", err)
	}

	return nil
}

// yamlToJSONValue decodes YAML and re-reads it as a JSON value, so the
// validator sees the same number and map types as for a JSON document.
func yamlToJSONValue(data []byte) (any, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
}
