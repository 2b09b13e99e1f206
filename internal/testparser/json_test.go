package testparser

import (
	"strings"
	"testing"
	"time"

	"github.com/AndreyAkinshin/testops/internal/model"
)

func TestGoJSONParser(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		input          string
		expectedCounts TestCounts
	}{
		{
			name: "all passing",
			input: `{"Time":"2024-01-01T00:00:00Z","Action":"run","Package":"example.com/pkg","Test":"TestFoo"}
{"Time":"2024-01-01T00:00:00Z","Action":"output","Package":"example.com/pkg","Test":"TestFoo","Output":"=== RUN   TestFoo\n"}
{"Time":"2024-01-01T00:00:00Z","Action":"pass","Package":"example.com/pkg","Test":"TestFoo","Elapsed":0.01}
{"Time":"2024-01-01T00:00:00Z","Action":"run","Package":"example.com/pkg","Test":"TestBar"}
{"Time":"2024-01-01T00:00:00Z","Action":"pass","Package":"example.com/pkg","Test":"TestBar","Elapsed":0.02}`,
			expectedCounts: TestCounts{Passed: 2, Total: 2},
		},
		{
			name: "mixed results",
			input: `{"Time":"2024-01-01T00:00:00Z","Action":"run","Package":"example.com/pkg","Test":"TestPass"}
{"Time":"2024-01-01T00:00:00Z","Action":"pass","Package":"example.com/pkg","Test":"TestPass","Elapsed":0.01}
{"Time":"2024-01-01T00:00:00Z","Action":"run","Package":"example.com/pkg","Test":"TestFail"}
{"Time":"2024-01-01T00:00:00Z","Action":"fail","Package":"example.com/pkg","Test":"TestFail","Elapsed":0.02}
{"Time":"2024-01-01T00:00:00Z","Action":"run","Package":"example.com/pkg","Test":"TestSkip"}
{"Time":"2024-01-01T00:00:00Z","Action":"skip","Package":"example.com/pkg","Test":"TestSkip","Elapsed":0.0}`,
			expectedCounts: TestCounts{Passed: 1, Failed: 1, Skipped: 1, Total: 3},
		},
		{
			name:           "empty input",
			input:          "",
			expectedCounts: TestCounts{},
		},
		{
			name:           "no test events",
			input:          `{"Time":"2024-01-01T00:00:00Z","Action":"output","Package":"example.com/pkg","Output":"building...\n"}`,
			expectedCounts: TestCounts{},
		},
		{
			name: "package level events ignored",
			input: `{"Time":"2024-01-01T00:00:00Z","Action":"run","Package":"example.com/pkg","Test":"TestFoo"}
{"Time":"2024-01-01T00:00:00Z","Action":"pass","Package":"example.com/pkg","Test":"TestFoo","Elapsed":0.01}
{"Time":"2024-01-01T00:00:00Z","Action":"pass","Package":"example.com/pkg","Elapsed":0.5}`,
			expectedCounts: TestCounts{Passed: 1, Total: 1},
		},
		{
			name: "non-json lines ignored",
			input: `go: downloading example.com/dep v1.0.0
{"Time":"2024-01-01T00:00:00Z","Action":"pass","Package":"example.com/pkg","Test":"TestFoo","Elapsed":0.01}
{not json}`,
			expectedCounts: TestCounts{Passed: 1, Total: 1},
		},
		{
			name: "same test name in two packages",
			input: `{"Action":"run","Package":"example.com/a","Test":"TestFoo"}
{"Action":"run","Package":"example.com/b","Test":"TestFoo"}
{"Action":"fail","Package":"example.com/b","Test":"TestFoo","Elapsed":0.01}
{"Action":"pass","Package":"example.com/a","Test":"TestFoo","Elapsed":0.01}`,
			expectedCounts: TestCounts{Passed: 1, Failed: 1, Total: 2},
		},
	}

	parser := &GoJSONParser{}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assertCounts(t, Count(mustParse(t, parser, tt.input)), tt.expectedCounts)
		})
	}
}

func TestGoJSONParser_ResultFields(t *testing.T) {
	t.Parallel()
	input := `{"Time":"2024-01-01T10:00:00Z","Action":"run","Package":"example.com/pkg","Test":"TestBar"}
{"Time":"2024-01-01T10:00:00Z","Action":"output","Package":"example.com/pkg","Test":"TestBar","Output":"=== RUN   TestBar\n"}
{"Time":"2024-01-01T10:00:01Z","Action":"output","Package":"example.com/pkg","Test":"TestBar","Output":"    bar_test.go:15: expected 42, got 0\n"}
{"Time":"2024-01-01T10:00:01Z","Action":"output","Package":"example.com/pkg","Test":"TestBar","Output":"--- FAIL: TestBar (1.50s)\n"}
{"Time":"2024-01-01T10:00:01Z","Action":"fail","Package":"example.com/pkg","Test":"TestBar","Elapsed":1.5}`

	results := mustParse(t, &GoJSONParser{}, input)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]

	if r.Title != "TestBar" {
		t.Errorf("Title = %q", r.Title)
	}
	if strings.Join(r.Suite, "/") != "example.com/pkg" {
		t.Errorf("Suite = %v", r.Suite)
	}
	if r.Status != model.StatusFailed {
		t.Errorf("Status = %q", r.Status)
	}
	if r.Message != "expected 42, got 0" {
		t.Errorf("Message = %q", r.Message)
	}
	if !strings.Contains(r.Stacktrace, "bar_test.go:15") {
		t.Errorf("Stacktrace = %q, want the test output", r.Stacktrace)
	}
	if want := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC); !r.StartedAt.Equal(want) {
		t.Errorf("StartedAt = %v, want %v", r.StartedAt, want)
	}
	if r.Duration == nil || *r.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %v, want 1.5s", r.Duration)
	}
}

func TestGoJSONParser_SkipReason(t *testing.T) {
	t.Parallel()
	input := `{"Action":"run","Package":"p","Test":"TestSlow"}
{"Action":"output","Package":"p","Test":"TestSlow","Output":"    slow_test.go:9: needs network\n"}
{"Action":"skip","Package":"p","Test":"TestSlow","Elapsed":0}`
	results := mustParse(t, &GoJSONParser{}, input)
	if len(results) != 1 || results[0].Message != "needs network" {
		t.Fatalf("results = %+v", results)
	}
}

func TestExtractFailureReason(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("x", 250)
	tests := []struct {
		name   string
		output []string
		want   string
	}{
		{
			name:   "file line message",
			output: []string{"=== RUN   TestFoo\n", "    foo_test.go:10: boom\n"},
			want:   "boom",
		},
		{
			name:   "fallback to first meaningful line",
			output: []string{"=== RUN   TestFoo\n", "panic: nil map\n"},
			want:   "panic: nil map",
		},
		{
			name:   "only boilerplate",
			output: []string{"=== RUN   TestFoo\n", "--- FAIL: TestFoo (0.00s)\n"},
			want:   "",
		},
		{
			name:   "truncated",
			output: []string{"    foo_test.go:10: " + long + "\n"},
			want:   strings.Repeat("x", 197) + "...",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := extractFailureReason(tt.output); got != tt.want {
				t.Errorf("extractFailureReason() = %q, want %q", got, tt.want)
			}
		})
	}
}
