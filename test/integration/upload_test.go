package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AndreyAkinshin/testops/internal/cli"
	"github.com/AndreyAkinshin/testops/internal/config"
	"github.com/AndreyAkinshin/testops/internal/model"
	"github.com/AndreyAkinshin/testops/internal/testparser"
	"github.com/AndreyAkinshin/testops/pkg/testops"
)

var allReports = []string{"junit.xml", "playwright.json", "cucumber.json", "gotest.json", "results.json"}

func TestFixtureReports_Detected(t *testing.T) {
	t.Parallel()
	registry := testparser.NewRegistry()
	tests := []struct {
		file    string
		format  string
		results int
	}{
		{"junit.xml", "junit", 3},
		{"playwright.json", "playwright", 2},
		{"cucumber.json", "cucumber", 2},
		{"gotest.json", "gotest-json", 2},
		{"results.json", "testops", 2},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()
			data, err := os.ReadFile(reportPath(tt.file))
			require.NoError(t, err)
			parser := registry.Detect(tt.file, data)
			require.NotNil(t, parser)
			require.Equal(t, tt.format, parser.Name())

			f, err := os.Open(reportPath(tt.file))
			require.NoError(t, err)
			defer f.Close()
			results, err := parser.Parse(f)
			require.NoError(t, err)
			require.Len(t, results, tt.results)
		})
	}
}

func uploadArgs(extra ...string) []string {
	args := []string{"-q", "-c", filepath.Join(fixturesDir(), "multi-project", "testops.yaml"), "upload"}
	args = append(args, extra...)
	for _, r := range allReports {
		args = append(args, reportPath(r))
	}
	return args
}

func TestUpload_MultiProjectRouting(t *testing.T) {
	api, srv := newFakeAPI(t)
	t.Setenv(config.EnvAPIToken, apiToken)
	t.Setenv(config.EnvAPIHost, srv.URL)
	saved := filepath.Join(t.TempDir(), "results.json")

	code := cli.Run(uploadArgs("--save", saved))
	require.Equal(t, testops.ExitSuccess, code)

	require.Equal(t, []string{"#1", "#2", "health", "#5", "logout", "TestPrice", "TestTax"}, api.sent("WEB"))
	require.Equal(t, []string{"#7", "#8", "#10", "#11"}, api.sent("API"))
	require.Equal(t, []int{3, 3, 1}, api.batchSizes("WEB"))
	require.Equal(t, []int{3, 1}, api.batchSizes("API"))
	require.Equal(t, []string{"passed", "failed", "skipped", "passed", "passed", "passed", "failed"}, api.statuses["WEB"])

	api.mu.Lock()
	require.Equal(t, "Integration run", api.runTitles["WEB"])
	require.Equal(t, "API regression", api.runTitles["API"])
	require.True(t, api.completed["WEB"])
	require.True(t, api.completed["API"])
	require.NotContains(t, api.runTitles, "LEGACY")
	api.mu.Unlock()

	results, err := model.LoadResults(saved)
	require.NoError(t, err)
	require.Len(t, results, 11)
	counts := testparser.Count(results)
	require.Equal(t, 7, counts.Passed)
	require.Equal(t, 3, counts.Failed)
	require.Equal(t, 1, counts.Skipped)
}

func TestUpload_KeepRunOpen(t *testing.T) {
	api, srv := newFakeAPI(t)
	cfgPath := filepath.Join(t.TempDir(), "testops.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`api:
  token: `+apiToken+`
  host: `+srv.URL+`
projects:
  - code: WEB
  - code: API
    run:
      id: 77
      complete: false
`), 0644))

	code := cli.Run([]string{"-q", "-c", cfgPath, "upload", reportPath("junit.xml")})
	require.Equal(t, testops.ExitSuccess, code)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Contains(t, api.runTitles, "WEB")
	require.NotContains(t, api.runTitles, "API", "a configured run id must be reused")
	require.True(t, api.completed["WEB"])
	require.False(t, api.completed["API"])
	require.Len(t, api.batches["API"], 1)
}

func TestUpload_InvalidToken(t *testing.T) {
	api, srv := newFakeAPI(t)
	t.Setenv(config.EnvAPIToken, "wrong")
	t.Setenv(config.EnvAPIHost, srv.URL)

	code := cli.Run(uploadArgs())
	require.Equal(t, testops.ExitFailure, code)
	require.Empty(t, api.sent("WEB"))
}

func TestUpload_DryRun(t *testing.T) {
	t.Setenv(config.EnvAPIToken, "")
	code := cli.Run(uploadArgs("--dry-run"))
	require.Equal(t, testops.ExitSuccess, code)
}
