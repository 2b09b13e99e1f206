package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ResultsFile is the on-disk form of a result backlog, written by one
// process and re-hydrated by another before publishing.
type ResultsFile struct {
	Results []TestResult `json:"results"`
}

// WriteResults encodes results as an indented results file.
func WriteResults(w io.Writer, results []TestResult) error {
	if results == nil {
		results = []TestResult{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ResultsFile{Results: results})
}

// ReadResults decodes a results file.
func ReadResults(r io.Reader) ([]TestResult, error) {
	var f ResultsFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode results file: %w", err)
	}
	return f.Results, nil
}

// SaveResults writes results to path, creating parent directories.
func SaveResults(path string, results []TestResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	if err := WriteResults(f, results); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadResults reads a results file from path.
func LoadResults(path string) ([]TestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadResults(f)
}
