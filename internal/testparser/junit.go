package testparser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/AndreyAkinshin/testops/internal/model"
)

// JUnitTestSuites represents the root element of JUnit XML.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite represents a test suite in JUnit XML. Suites may nest.
type JUnitTestSuite struct {
	XMLName    xml.Name         `xml:"testsuite"`
	Name       string           `xml:"name,attr"`
	Timestamp  string           `xml:"timestamp,attr"`
	TestCases  []JUnitTestCase  `xml:"testcase"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestCase represents a single test case in JUnit XML.
type JUnitTestCase struct {
	Name       string          `xml:"name,attr"`
	Classname  string          `xml:"classname,attr"`
	Time       string          `xml:"time,attr"`
	Failure    *JUnitFailure   `xml:"failure"`
	Error      *JUnitFailure   `xml:"error"`
	Skipped    *JUnitSkipped   `xml:"skipped"`
	Properties []JUnitProperty `xml:"properties>property"`
	SystemOut  string          `xml:"system-out"`
}

// JUnitFailure represents a test failure or error.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// JUnitSkipped represents a skipped test.
type JUnitSkipped struct {
	Message string `xml:"message,attr"`
}

// JUnitProperty is a name/value pair attached to a test case.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// JUnitParser parses JUnit XML reports.
type JUnitParser struct{}

// Name returns the parser name.
func (p *JUnitParser) Name() string {
	return "junit"
}

// Description returns a one-line summary.
func (p *JUnitParser) Description() string {
	return "JUnit XML report (most frameworks)"
}

// Parse accepts both a <testsuites> root and a bare <testsuite>. Case IDs
// come from the title or from properties named qase.id or
// qase.project_id.<CODE>.
func (p *JUnitParser) Parse(r io.Reader) ([]model.TestResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Format: p.Name(), Message: "read failed", Cause: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Format: p.Name(), Message: "file is empty"}
	}

	var suites []JUnitTestSuite
	var root JUnitTestSuites
	if err := xml.Unmarshal(data, &root); err == nil {
		suites = root.TestSuites
	} else {
		var single JUnitTestSuite
		if err2 := xml.Unmarshal(data, &single); err2 != nil {
			return nil, &ParseError{Format: p.Name(), Message: "invalid JUnit XML", Cause: err}
		}
		suites = []JUnitTestSuite{single}
	}

	var results []model.TestResult
	for _, suite := range suites {
		results = p.walk(results, suite, nil)
	}
	return results, nil
}

func (p *JUnitParser) walk(results []model.TestResult, suite JUnitTestSuite, path []string) []model.TestResult {
	if name := strings.TrimSpace(suite.Name); name != "" {
		path = append(append([]string(nil), path...), name)
	}
	started, _ := time.Parse("2006-01-02T15:04:05", suite.Timestamp)
	for _, tc := range suite.TestCases {
		res := p.result(tc, path)
		res.StartedAt = started
		results = append(results, res)
	}
	for _, child := range suite.TestSuites {
		results = p.walk(results, child, path)
	}
	return results
}

func (p *JUnitParser) result(tc JUnitTestCase, path []string) model.TestResult {
	status := model.StatusPassed
	var detail *JUnitFailure
	switch {
	case tc.Skipped != nil:
		status = model.StatusSkipped
	case tc.Failure != nil:
		status = model.StatusFailed
		detail = tc.Failure
	case tc.Error != nil:
		status = model.StatusFailed
		detail = tc.Error
	}

	suite := path
	if cn := strings.TrimSpace(tc.Classname); cn != "" && (len(path) == 0 || path[len(path)-1] != cn) {
		suite = append(append([]string(nil), path...), cn)
	}

	var tags []string
	for _, prop := range tc.Properties {
		name := strings.ToLower(strings.TrimSpace(prop.Name))
		if strings.HasPrefix(name, "qase.") {
			tags = append(tags, fmt.Sprintf("%s=%s", strings.TrimSpace(prop.Name), prop.Value))
		}
	}

	res := newResult(strings.TrimSpace(tc.Name), suite, status, tags...)
	if secs, err := strconv.ParseFloat(strings.TrimSpace(tc.Time), 64); err == nil && secs >= 0 {
		d := time.Duration(secs * float64(time.Second))
		res.Duration = &d
	}
	if detail != nil {
		res.Message = strings.TrimSpace(detail.Message)
		res.Stacktrace = strings.TrimSpace(detail.Content)
		if res.Message == "" {
			res.Message = firstLine(res.Stacktrace)
		}
	}
	if tc.Skipped != nil {
		res.Message = strings.TrimSpace(tc.Skipped.Message)
	}
	return res
}
