package testparser

import (
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AndreyAkinshin/testops/internal/model"
)

// Static regexes for Go test output parsing.
var (
	goResultLine = regexp.MustCompile(`^\s*---\s+(PASS|FAIL|SKIP):\s+(\S+)\s+\(([0-9.]+)s\)`)
	goPackageRun = regexp.MustCompile(`^(?:ok|FAIL)\s+(\S+)\s+`)
	goErrorLine  = regexp.MustCompile(`^\s+\S+\.go:\d+:`)
)

// GoParser parses verbose Go test output (go test -v).
type GoParser struct{}

// Name returns the parser name.
func (p *GoParser) Name() string {
	return "gotest"
}

// Description returns a one-line summary.
func (p *GoParser) Description() string {
	return "go test -v text output"
}

// Parse extracts one result per result line. Go test outputs lines like:
//
//	--- PASS: TestFoo (0.00s)
//	--- FAIL: TestBar (0.01s)
//	    bar_test.go:15: expected 42, got 0
//	--- SKIP: TestBaz (0.00s)
//
// Results are attributed to the package named by the following
// "ok"/"FAIL" summary line when there is one.
func (p *GoParser) Parse(r io.Reader) ([]model.TestResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Format: p.Name(), Message: "read failed", Cause: err}
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")

	var results []model.TestResult
	pending := 0 // results not yet attributed to a package
	for i, line := range lines {
		if m := goPackageRun.FindStringSubmatch(line); m != nil {
			for j := len(results) - pending; j < len(results); j++ {
				results[j].Suite = []string{m[1]}
			}
			pending = 0
			continue
		}

		m := goResultLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		status := model.StatusPassed
		switch m[1] {
		case "FAIL":
			status = model.StatusFailed
		case "SKIP":
			status = model.StatusSkipped
		}

		res := newResult(m[2], nil, status)
		if secs, err := strconv.ParseFloat(m[3], 64); err == nil {
			d := time.Duration(secs * float64(time.Second))
			res.Duration = &d
		}
		if status != model.StatusPassed {
			reasons := p.findReasons(lines, i)
			if len(reasons) > 0 {
				res.Message = reasons[0]
				if status == model.StatusFailed {
					res.Stacktrace = strings.Join(reasons, "\n")
				}
			}
		}
		results = append(results, res)
		pending++
	}

	return results, nil
}

// isTestBoundary returns true if the line marks the start of a test run
// or the result of a test (PASS/FAIL/SKIP).
func isTestBoundary(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "=== RUN") ||
		strings.HasPrefix(trimmed, "=== PAUSE") ||
		strings.HasPrefix(trimmed, "=== CONT") ||
		strings.HasPrefix(trimmed, "--- PASS:") ||
		strings.HasPrefix(trimmed, "--- FAIL:") ||
		strings.HasPrefix(trimmed, "--- SKIP:")
}

// findReasons collects the file:line messages around the result line at
// idx. Go prints them before the result line for top-level tests and
// after it for subtests, so both directions are searched.
func (p *GoParser) findReasons(lines []string, idx int) []string {
	var reasons []string

	for i := idx - 1; i >= 0; i-- {
		if isTestBoundary(lines[i]) {
			break
		}
		if goErrorLine.MatchString(lines[i]) {
			if msg, ok := goErrorMessage(strings.TrimSpace(lines[i])); ok {
				reasons = append([]string{msg}, reasons...)
			}
		}
	}
	if len(reasons) > 0 {
		return reasons
	}

	indent := len(lines[idx]) - len(strings.TrimLeft(lines[idx], " \t"))
	for i := idx + 1; i < len(lines); i++ {
		line := lines[i]
		if isTestBoundary(line) || !goErrorLine.MatchString(line) {
			break
		}
		if len(line)-len(strings.TrimLeft(line, " \t")) <= indent {
			break
		}
		if msg, ok := goErrorMessage(strings.TrimSpace(line)); ok {
			reasons = append(reasons, msg)
		}
	}
	return reasons
}
