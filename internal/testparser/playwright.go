package testparser

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/AndreyAkinshin/testops/internal/mapper"
	"github.com/AndreyAkinshin/testops/internal/model"
)

// playwrightReport is the subset of the Playwright JSON reporter output
// that results are built from.
type playwrightReport struct {
	Suites []playwrightSuite `json:"suites"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type playwrightSuite struct {
	Title  string            `json:"title"`
	File   string            `json:"file"`
	Specs  []playwrightSpec  `json:"specs"`
	Suites []playwrightSuite `json:"suites"`
}

type playwrightSpec struct {
	Title string           `json:"title"`
	Tags  []string         `json:"tags"`
	Tests []playwrightTest `json:"tests"`
}

type playwrightTest struct {
	ProjectName string                 `json:"projectName"`
	Status      string                 `json:"status"` // expected, unexpected, flaky, skipped
	Annotations []playwrightAnnotation `json:"annotations"`
	Results     []playwrightResult     `json:"results"`
}

type playwrightAnnotation struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type playwrightResult struct {
	Status      string                 `json:"status"` // passed, failed, timedOut, skipped, interrupted
	Duration    float64                `json:"duration"`
	StartTime   time.Time              `json:"startTime"`
	Error       *playwrightError       `json:"error"`
	Attachments []playwrightAttachment `json:"attachments"`
}

type playwrightError struct {
	Message string `json:"message"`
	Stack   string `json:"stack"`
}

type playwrightAttachment struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Body        string `json:"body"` // base64
	ContentType string `json:"contentType"`
}

// PlaywrightParser parses the Playwright JSON reporter output.
type PlaywrightParser struct{}

// Name returns the parser name.
func (p *PlaywrightParser) Name() string {
	return "playwright"
}

// Description returns a one-line summary.
func (p *PlaywrightParser) Description() string {
	return "Playwright JSON reporter (--reporter=json)"
}

// Parse returns one result per spec and project. The final attempt decides
// the status, so a retried test that eventually passed is reported passed.
func (p *PlaywrightParser) Parse(r io.Reader) ([]model.TestResult, error) {
	var report playwrightReport
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, &ParseError{Format: p.Name(), Message: "invalid JSON", Cause: err}
	}
	if report.Suites == nil {
		return nil, &ParseError{Format: p.Name(), Message: `missing "suites"`}
	}

	var results []model.TestResult
	for _, suite := range report.Suites {
		results = p.walk(results, suite, nil)
	}
	return results, nil
}

func (p *PlaywrightParser) walk(results []model.TestResult, suite playwrightSuite, path []string) []model.TestResult {
	if suite.Title != "" {
		path = append(append([]string(nil), path...), suite.Title)
	}
	for _, spec := range suite.Specs {
		for _, test := range spec.Tests {
			results = append(results, p.result(spec, test, path))
		}
	}
	for _, child := range suite.Suites {
		results = p.walk(results, child, path)
	}
	return results
}

func (p *PlaywrightParser) result(spec playwrightSpec, test playwrightTest, path []string) model.TestResult {
	var last playwrightResult
	if n := len(test.Results); n > 0 {
		last = test.Results[n-1]
	}

	status := playwrightStatus(test.Status, last.Status)
	res := newResult(spec.Title, path, status, spec.Tags...)
	res.Routing = mapper.Merge(annotationRouting(test.Annotations), res.Routing)

	if test.ProjectName != "" {
		res.Params = map[string]string{"project": test.ProjectName}
	}
	if !last.StartTime.IsZero() {
		res.StartedAt = last.StartTime
	}
	if len(test.Results) > 0 {
		d := time.Duration(last.Duration * float64(time.Millisecond))
		res.Duration = &d
	}
	if last.Error != nil {
		res.Message = firstLine(last.Error.Message)
		res.Stacktrace = last.Error.Stack
		if res.Stacktrace == "" {
			res.Stacktrace = last.Error.Message
		}
	}
	for _, a := range last.Attachments {
		att := model.Attachment{Name: a.Name, Path: a.Path, MimeType: a.ContentType}
		if a.Body != "" {
			if data, err := base64.StdEncoding.DecodeString(a.Body); err == nil {
				att.Content = data
			}
		}
		if att.Path == "" && att.Content == nil {
			continue
		}
		res.Attachments = append(res.Attachments, att)
	}
	return res
}

func playwrightStatus(outcome, last string) model.Status {
	switch outcome {
	case "expected", "flaky":
		if last == "skipped" {
			return model.StatusSkipped
		}
		return model.StatusPassed
	case "skipped":
		return model.StatusSkipped
	}
	switch last {
	case "passed":
		return model.StatusPassed
	case "skipped":
		return model.StatusSkipped
	case "interrupted":
		return model.StatusBlocked
	default:
		return model.StatusFailed
	}
}

// annotationRouting reads case IDs from test.info().annotations entries
// such as {type: "QaseID", description: "12"} or
// {type: "QaseProject.DEMO", description: "3,4"}.
func annotationRouting(annotations []playwrightAnnotation) model.Routing {
	const projectPrefix = "qaseproject."
	var tags []string
	for _, a := range annotations {
		typ := strings.TrimSpace(a.Type)
		switch {
		case strings.EqualFold(typ, "qaseid"), strings.EqualFold(typ, "qase.id"):
			tags = append(tags, "qase.id="+a.Description)
		case len(typ) > len(projectPrefix) && strings.EqualFold(typ[:len(projectPrefix)], projectPrefix):
			tags = append(tags, fmt.Sprintf("qase.project_id.%s=%s", typ[len(projectPrefix):], a.Description))
		}
	}
	return mapper.ParseTags(tags)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
