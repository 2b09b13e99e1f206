package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/internal/model"
)

// fakeAPI records the calls the reporter makes against the REST API.
type fakeAPI struct {
	mu        sync.Mutex
	created   []string
	uploaded  map[string][]string
	completed []string
	failRun   string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{uploaded: make(map[string][]string)}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/"), "/")
	a.mu.Lock()
	defer a.mu.Unlock()

	reply := func(result string) {
		fmt.Fprintf(w, `{"status":true,"result":%s}`, result)
	}

	switch {
	case r.Header.Get("Token") != "secret":
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":false,"errorMessage":"bad token"}`)
	case len(parts) == 2 && parts[0] == "run":
		if parts[1] == a.failRun {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"status":false,"errorMessage":"forbidden"}`)
			return
		}
		a.created = append(a.created, parts[1])
		reply(fmt.Sprintf(`{"id":%d}`, 100+len(a.created)))
	case len(parts) == 4 && parts[0] == "result" && parts[3] == "bulk":
		var body struct {
			Results []struct {
				CaseID int64 `json:"case_id"`
				Case   *struct {
					Title string `json:"title"`
				} `json:"case"`
			} `json:"results"`
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		for _, res := range body.Results {
			key := fmt.Sprintf("#%d", res.CaseID)
			if res.Case != nil && res.CaseID == 0 {
				key = res.Case.Title
			}
			a.uploaded[parts[1]] = append(a.uploaded[parts[1]], key)
		}
		reply("null")
	case len(parts) == 4 && parts[0] == "run" && parts[3] == "complete":
		a.completed = append(a.completed, parts[1])
		reply("null")
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":false,"errorMessage":"not found"}`)
	}
}

const twoProjectConfig = `api:
  token: secret
  host: %s
  max_retries: 0
projects:
  - code: P1
  - code: P2
default_project: P1
`

const routedJUnit = `<?xml version="1.0" encoding="UTF-8"?>
<testsuites>
  <testsuite name="suite" tests="3">
    <testcase name="login (Qase P1: 1) (Qase P2: 2)" classname="auth"/>
    <testcase name="logout (Qase P2: 3)" classname="auth">
      <failure message="boom">trace</failure>
    </testcase>
    <testcase name="unmapped" classname="misc"/>
  </testsuite>
</testsuites>
`

func writeReport(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCmdUpload_RoutesToEveryProject(t *testing.T) {
	api, srv := newFakeAPI(t)
	cfgPath := writeConfig(t, fmt.Sprintf(twoProjectConfig, srv.URL))
	report := writeReport(t, "report.xml", routedJUnit)
	saved := filepath.Join(t.TempDir(), "out", "results.json")

	code := cmdUpload([]string{report, "--save", saved}, &GlobalOptions{Config: cfgPath})
	require.Equal(t, 0, code)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.ElementsMatch(t, []string{"P1", "P2"}, api.created)
	require.ElementsMatch(t, []string{"P1", "P2"}, api.completed)
	require.Equal(t, []string{"#1", "unmapped"}, api.uploaded["P1"])
	require.Equal(t, []string{"#2", "#3"}, api.uploaded["P2"])

	results, err := model.LoadResults(saved)
	require.NoError(t, err)
	require.Len(t, results, 3)
}

func TestCmdUpload_ProjectFailure(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.failRun = "P2"
	cfgPath := writeConfig(t, fmt.Sprintf(twoProjectConfig, srv.URL))
	report := writeReport(t, "report.xml", routedJUnit)

	code := cmdUpload([]string{report}, &GlobalOptions{Config: cfgPath})
	require.NotEqual(t, 0, code)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Empty(t, api.uploaded)
}

func TestCmdUpload_DryRunSkipsAPI(t *testing.T) {
	api, srv := newFakeAPI(t)
	cfgPath := writeConfig(t, fmt.Sprintf(twoProjectConfig, srv.URL))
	report := writeReport(t, "report.xml", routedJUnit)

	code := cmdUpload([]string{"--dry-run", report}, &GlobalOptions{Config: cfgPath})
	require.Equal(t, 0, code)

	api.mu.Lock()
	defer api.mu.Unlock()
	require.Empty(t, api.created)
}

func TestCmdUpload_Errors(t *testing.T) {
	_, srv := newFakeAPI(t)
	cfgPath := writeConfig(t, fmt.Sprintf(twoProjectConfig, srv.URL))
	noToken := writeConfig(t, "projects:\n  - code: P1\n")
	report := writeReport(t, "report.xml", routedJUnit)
	unknown := writeReport(t, "notes.txt", "hello")
	broken := writeReport(t, "broken.xml", "<testsuites><testsuite>")
	empty := writeReport(t, "empty.xml", "<testsuites></testsuites>")

	tests := []struct {
		name   string
		args   []string
		config string
		want   int
	}{
		{"unknown format", []string{"--format", "nunit", report}, cfgPath, errors.ExitConfigError},
		{"undetectable", []string{unknown}, cfgPath, errors.ExitConfigError},
		{"missing file", []string{filepath.Join(t.TempDir(), "absent.xml")}, cfgPath, errors.ExitRuntimeError},
		{"malformed report", []string{broken}, cfgPath, errors.ExitRuntimeError},
		{"no results", []string{empty}, cfgPath, errors.ExitRuntimeError},
		{"no token", []string{report}, noToken, errors.ExitEnvironmentError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cmdUpload(tt.args, &GlobalOptions{Config: tt.config})
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseUploadArgs(t *testing.T) {
	t.Parallel()
	opts, err := parseUploadArgs([]string{"-f", "junit", "--dry-run", "a.xml", "--save=out.json", "--", "-weird.xml"})
	require.NoError(t, err)
	require.Equal(t, &uploadOptions{
		Format: "junit",
		DryRun: true,
		Save:   "out.json",
		Files:  []string{"a.xml", "-weird.xml"},
	}, opts)

	opts, err = parseUploadArgs([]string{"--format=gotest-json", "-"})
	require.NoError(t, err)
	require.Equal(t, []string{"-"}, opts.Files)

	_, err = parseUploadArgs([]string{"--format"})
	require.Error(t, err)
	_, err = parseUploadArgs([]string{"--dry-run"})
	require.Error(t, err)
}

func TestParseServeArgs(t *testing.T) {
	t.Parallel()
	opts, err := parseServeArgs([]string{"--listen", "127.0.0.1:0", "--save=r.json"})
	require.NoError(t, err)
	require.Equal(t, &serveOptions{Listen: "127.0.0.1:0", Save: "r.json"}, opts)

	opts, err = parseServeArgs(nil)
	require.NoError(t, err)
	require.Empty(t, opts.Listen)

	_, err = parseServeArgs([]string{"-l"})
	require.Error(t, err)
}
