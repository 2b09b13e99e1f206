// Package model provides the test result types shared by the parsers, the
// dispatcher and the TestOps client.
package model

import (
	"fmt"
	"strings"
)

// Status is the execution status of a single test.
type Status string

const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusDisabled Status = "disabled"
	StatusBlocked  Status = "blocked"
	StatusInvalid  Status = "invalid"
)

// Statuses lists all statuses in display order.
var Statuses = []Status{
	StatusPassed,
	StatusFailed,
	StatusSkipped,
	StatusDisabled,
	StatusBlocked,
	StatusInvalid,
}

// statusAliases maps framework-specific status names to a Status.
// Keys are lowercase.
var statusAliases = map[string]Status{
	"passed":      StatusPassed,
	"pass":        StatusPassed,
	"ok":          StatusPassed,
	"success":     StatusPassed,
	"expected":    StatusPassed,
	"failed":      StatusFailed,
	"fail":        StatusFailed,
	"failure":     StatusFailed,
	"timedout":    StatusFailed,
	"interrupted": StatusFailed,
	"unexpected":  StatusFailed,
	"skipped":     StatusSkipped,
	"skip":        StatusSkipped,
	"pending":     StatusSkipped,
	"ignored":     StatusSkipped,
	"disabled":    StatusDisabled,
	"blocked":     StatusBlocked,
	"invalid":     StatusInvalid,
	"broken":      StatusInvalid,
	"error":       StatusInvalid,
	"undefined":   StatusInvalid,
	"ambiguous":   StatusInvalid,
}

// ParseStatus converts a status name (case-insensitive, framework aliases
// accepted) to a Status.
func ParseStatus(s string) (Status, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown test status %q", s)
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// IsFailure reports whether the status counts as a failed test.
func (s Status) IsFailure() bool {
	return s == StatusFailed
}
