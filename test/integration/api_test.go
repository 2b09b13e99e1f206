// Package integration runs the reporter end to end against a fake
// TestOps API.
package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

var (
	fixturesDirOnce sync.Once
	fixturesDirPath string
)

// fixturesDir returns the path to the test fixtures directory.
func fixturesDir() string {
	fixturesDirOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		fixturesDirPath = filepath.Join(filepath.Dir(filename), "..", "fixtures")
	})
	return fixturesDirPath
}

func reportPath(name string) string {
	return filepath.Join(fixturesDir(), "reports", name)
}

const apiToken = "integration-token"

// fakeAPI is an in-memory TestOps API. Uploaded results are recorded as
// "#<case id>" or, for unlinked results, their title.
type fakeAPI struct {
	mu        sync.Mutex
	runTitles map[string]string
	batches   map[string][][]string
	statuses  map[string][]string
	completed map[string]bool
	nextRunID int64
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{
		runTitles: make(map[string]string),
		batches:   make(map[string][][]string),
		statuses:  make(map[string][]string),
		completed: make(map[string]bool),
		nextRunID: 500,
	}
	srv := httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Token") != apiToken {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":false,"errorMessage":"invalid token"}`)
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/"), "/")
	body, _ := io.ReadAll(r.Body)

	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case len(parts) == 2 && parts[0] == "run":
		var req struct {
			Title string `json:"title"`
		}
		_ = json.Unmarshal(body, &req)
		a.runTitles[parts[1]] = req.Title
		a.nextRunID++
		fmt.Fprintf(w, `{"status":true,"result":{"id":%d}}`, a.nextRunID)
	case len(parts) == 4 && parts[0] == "result" && parts[3] == "bulk":
		var req struct {
			Results []struct {
				CaseID int64  `json:"case_id"`
				Status string `json:"status"`
				Case   *struct {
					Title string `json:"title"`
				} `json:"case"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintf(w, `{"status":false,"errorMessage":%q}`, err.Error())
			return
		}
		var batch []string
		for _, res := range req.Results {
			key := fmt.Sprintf("#%d", res.CaseID)
			if res.CaseID == 0 && res.Case != nil {
				key = res.Case.Title
			}
			batch = append(batch, key)
			a.statuses[parts[1]] = append(a.statuses[parts[1]], res.Status)
		}
		a.batches[parts[1]] = append(a.batches[parts[1]], batch)
		fmt.Fprint(w, `{"status":true}`)
	case len(parts) == 4 && parts[0] == "run" && parts[3] == "complete":
		a.completed[parts[1]] = true
		fmt.Fprint(w, `{"status":true}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":false,"errorMessage":"not found"}`)
	}
}

// sent flattens the batches of a project.
func (a *fakeAPI) sent(code string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var all []string
	for _, b := range a.batches[code] {
		all = append(all, b...)
	}
	return all
}

func (a *fakeAPI) batchSizes(code string) []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	var sizes []int
	for _, b := range a.batches[code] {
		sizes = append(sizes, len(b))
	}
	return sizes
}
