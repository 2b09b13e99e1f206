package testparser

import (
	"bytes"
	"io"

	"github.com/AndreyAkinshin/testops/internal/model"
	"github.com/AndreyAkinshin/testops/internal/schema"
)

// NativeParser reads results files written by the testops serve command
// or by a language reporter.
type NativeParser struct{}

// Name returns the parser name.
func (p *NativeParser) Name() string {
	return "testops"
}

// Description returns a one-line summary.
func (p *NativeParser) Description() string {
	return "testops results file ({\"results\": [...]})"
}

// Parse validates the file against the results schema and decodes it.
func (p *NativeParser) Parse(r io.Reader) ([]model.TestResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Format: p.Name(), Message: "read failed", Cause: err}
	}
	if err := schema.ValidateResults(data); err != nil {
		return nil, &ParseError{Format: p.Name(), Message: "invalid results file", Cause: err}
	}
	results, err := model.ReadResults(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Format: p.Name(), Message: "invalid results file", Cause: err}
	}
	return results, nil
}
