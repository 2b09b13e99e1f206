package testparser

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/AndreyAkinshin/testops/internal/model"
)

// TestEvent represents a single event from go test -json output.
type TestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test"`
	Elapsed float64   `json:"Elapsed"`
	Output  string    `json:"Output"`
}

// maxEventLine bounds a single go test -json line; output events can be long.
const maxEventLine = 4 * 1024 * 1024

// GoJSONParser parses go test -json output.
type GoJSONParser struct{}

// Name returns the parser name.
func (p *GoJSONParser) Name() string {
	return "gotest-json"
}

// Description returns a one-line summary.
func (p *GoJSONParser) Description() string {
	return "go test -json event stream"
}

type goTestState struct {
	pkg     string
	name    string
	started time.Time
	output  []string
}

// Parse reads go test -json events and returns one result per finished test,
// in completion order. Lines that are not JSON events are ignored.
func (p *GoJSONParser) Parse(r io.Reader) ([]model.TestResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)

	running := make(map[string]*goTestState) // package + test -> state
	var results []model.TestResult

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] != '{' {
			continue
		}

		var event TestEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		// Skip package-level events (no test name)
		if event.Test == "" {
			continue
		}

		key := event.Package + "\x00" + event.Test
		state := running[key]
		if state == nil {
			state = &goTestState{pkg: event.Package, name: event.Test, started: event.Time}
			running[key] = state
		}

		switch event.Action {
		case "run":
			state.started = event.Time

		case "output":
			// Accumulate output for potential failure message
			if event.Output != "" {
				state.output = append(state.output, event.Output)
			}

		case "pass", "fail", "skip":
			results = append(results, state.result(event))
			delete(running, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return results, &ParseError{Format: p.Name(), Message: "read failed", Cause: err}
	}

	return results, nil
}

func (s *goTestState) result(end TestEvent) model.TestResult {
	status := model.StatusPassed
	switch end.Action {
	case "fail":
		status = model.StatusFailed
	case "skip":
		status = model.StatusSkipped
	}

	var suite []string
	if s.pkg != "" {
		suite = []string{s.pkg}
	}
	r := newResult(s.name, suite, status)
	r.StartedAt = s.started
	if end.Elapsed >= 0 {
		d := time.Duration(end.Elapsed * float64(time.Second))
		r.Duration = &d
	}

	switch status {
	case model.StatusFailed:
		r.Message = extractFailureReason(s.output)
		r.Stacktrace = strings.TrimRight(strings.Join(s.output, ""), "\n")
	case model.StatusSkipped:
		r.Message = extractSkipReason(s.output)
	}
	return r
}

// extractFailureReason extracts the most relevant failure message from test output.
func extractFailureReason(outputLines []string) string {
	const maxLen = 200

	// Look for lines with file:line: pattern (typical Go test error format)
	for _, line := range outputLines {
		trimmed := strings.TrimSpace(line)
		// Skip empty lines and common noise
		if trimmed == "" || strings.HasPrefix(trimmed, "=== RUN") ||
			strings.HasPrefix(trimmed, "--- FAIL") {
			continue
		}
		if reason, ok := goErrorMessage(trimmed); ok {
			return truncate(reason, maxLen)
		}
	}

	// Fallback: return the first non-empty, non-boilerplate line
	for _, line := range outputLines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !isBoilerplate(trimmed) {
			return truncate(trimmed, maxLen)
		}
	}

	return ""
}

// extractSkipReason returns the t.Skip message, if any.
func extractSkipReason(outputLines []string) string {
	for _, line := range outputLines {
		trimmed := strings.TrimSpace(line)
		if reason, ok := goErrorMessage(trimmed); ok {
			return reason
		}
	}
	return ""
}

// goErrorMessage extracts the message of a "file.go:123: message" line.
func goErrorMessage(line string) (string, bool) {
	idx := strings.Index(line, ".go:")
	if idx < 0 {
		return "", false
	}
	afterFile := line[idx+4:]
	colonIdx := strings.Index(afterFile, ": ")
	if colonIdx == -1 {
		return "", false
	}
	return strings.TrimSpace(afterFile[colonIdx+2:]), true
}

func isBoilerplate(line string) bool {
	return strings.HasPrefix(line, "=== ") || strings.HasPrefix(line, "--- FAIL") ||
		strings.HasPrefix(line, "--- PASS") || strings.HasPrefix(line, "--- SKIP")
}
