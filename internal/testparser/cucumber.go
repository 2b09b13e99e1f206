package testparser

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/AndreyAkinshin/testops/internal/model"
)

type cucumberFeature struct {
	Name     string            `json:"name"`
	URI      string            `json:"uri"`
	Tags     []cucumberTag     `json:"tags"`
	Elements []cucumberElement `json:"elements"`
}

type cucumberElement struct {
	Name           string         `json:"name"`
	Type           string         `json:"type"` // scenario, background
	Tags           []cucumberTag  `json:"tags"`
	StartTimestamp string         `json:"start_timestamp"`
	Steps          []cucumberStep `json:"steps"`
}

type cucumberTag struct {
	Name string `json:"name"`
}

type cucumberStep struct {
	Keyword string `json:"keyword"`
	Name    string `json:"name"`
	Result  struct {
		Status       string `json:"status"`
		Duration     int64  `json:"duration"` // nanoseconds
		ErrorMessage string `json:"error_message"`
	} `json:"result"`
}

// CucumberParser parses Cucumber JSON reports (cucumber-js, Cucumber-JVM,
// godog --format=cucumber).
type CucumberParser struct{}

// Name returns the parser name.
func (p *CucumberParser) Name() string {
	return "cucumber"
}

// Description returns a one-line summary.
func (p *CucumberParser) Description() string {
	return "Cucumber JSON report"
}

// Parse returns one result per scenario. Feature and scenario tags such as
// @qase.id=12 or @qase.project_id.DEMO=3 carry the case IDs.
func (p *CucumberParser) Parse(r io.Reader) ([]model.TestResult, error) {
	var features []cucumberFeature
	if err := json.NewDecoder(r).Decode(&features); err != nil {
		return nil, &ParseError{Format: p.Name(), Message: "invalid JSON", Cause: err}
	}

	var results []model.TestResult
	for _, feature := range features {
		for _, el := range feature.Elements {
			if el.Type == "background" {
				continue
			}
			results = append(results, p.result(feature, el))
		}
	}
	return results, nil
}

func (p *CucumberParser) result(feature cucumberFeature, el cucumberElement) model.TestResult {
	tags := make([]string, 0, len(feature.Tags)+len(el.Tags))
	for _, t := range el.Tags {
		tags = append(tags, t.Name)
	}
	for _, t := range feature.Tags {
		tags = append(tags, t.Name)
	}

	var suite []string
	if feature.Name != "" {
		suite = []string{feature.Name}
	}

	var total time.Duration
	status := model.StatusPassed
	var message, stack string
	for _, step := range el.Steps {
		total += time.Duration(step.Result.Duration)
		st := cucumberStepStatus(step.Result.Status)
		if statusRank(st) > statusRank(status) {
			status = st
			if st == model.StatusFailed || st == model.StatusInvalid {
				message = strings.TrimSpace(step.Keyword) + " " + step.Name
				stack = step.Result.ErrorMessage
			}
		}
	}
	if stack != "" {
		message = firstLine(stack)
	}

	res := newResult(el.Name, suite, status, tags...)
	res.Duration = &total
	if started, err := time.Parse(time.RFC3339Nano, el.StartTimestamp); err == nil {
		res.StartedAt = started
	}
	res.Message = message
	res.Stacktrace = stack
	return res
}

func cucumberStepStatus(s string) model.Status {
	switch strings.ToLower(s) {
	case "passed":
		return model.StatusPassed
	case "failed":
		return model.StatusFailed
	case "undefined", "ambiguous":
		return model.StatusInvalid
	default:
		// skipped, pending
		return model.StatusSkipped
	}
}

// statusRank orders step statuses by how much they decide the scenario.
func statusRank(s model.Status) int {
	switch s {
	case model.StatusFailed:
		return 3
	case model.StatusInvalid:
		return 2
	case model.StatusSkipped:
		return 1
	default:
		return 0
	}
}
