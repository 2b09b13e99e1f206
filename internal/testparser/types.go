// Package testparser converts test reports of various frameworks into
// test results.
package testparser

import (
	"fmt"
	"io"

	"github.com/AndreyAkinshin/testops/internal/mapper"
	"github.com/AndreyAkinshin/testops/internal/model"
)

// Parser defines the interface for report parsers.
type Parser interface {
	// Name returns the format name used on the command line.
	Name() string
	// Description is a one-line summary for help output.
	Description() string
	// Parse reads a report and returns one result per test.
	Parse(r io.Reader) ([]model.TestResult, error)
}

// ParseError reports a malformed report.
type ParseError struct {
	Format  string
	File    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	where := e.Format
	if e.File != "" {
		where = fmt.Sprintf("%s %s", e.Format, e.File)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", where, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", where, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// FailedTest holds information about a single failed test.
type FailedTest struct {
	Name   string // Test title
	Reason string // Failure reason/error message
}

// TestCounts holds result counts per status.
type TestCounts struct {
	Passed      int
	Failed      int
	Skipped     int
	Other       int // blocked, disabled, invalid
	Total       int
	FailedTests []FailedTest
}

// Add adds another TestCounts to this one, aggregating the counts.
func (tc *TestCounts) Add(other *TestCounts) {
	if other == nil {
		return
	}
	tc.Passed += other.Passed
	tc.Failed += other.Failed
	tc.Skipped += other.Skipped
	tc.Other += other.Other
	tc.Total += other.Total
	tc.FailedTests = append(tc.FailedTests, other.FailedTests...)
}

// Count tallies results by status.
func Count(results []model.TestResult) TestCounts {
	var counts TestCounts
	for _, r := range results {
		switch r.Status {
		case model.StatusPassed:
			counts.Passed++
		case model.StatusFailed:
			counts.Failed++
			counts.FailedTests = append(counts.FailedTests, FailedTest{Name: r.Title, Reason: r.Message})
		case model.StatusSkipped:
			counts.Skipped++
		default:
			counts.Other++
		}
	}
	counts.Total = len(results)
	return counts
}

// newResult builds a result whose title may carry case ID markers. Markers
// are stripped from the title; routing from tags wins over the title when
// both carry a mapping.
func newResult(title string, suite []string, status model.Status, tags ...string) model.TestResult {
	clean, fromTitle := mapper.ParseTitle(title)
	r := model.NewResult(clean, status)
	r.Suite = suite
	r.Routing = mapper.Merge(mapper.ParseTags(tags), fromTitle)
	return r
}

// truncate shortens s to maxLen bytes with an ellipsis.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
