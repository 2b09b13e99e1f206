package dispatcher

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultAppURL is the web UI that diagnostic links point to.
const DefaultAppURL = "https://app.qase.io"

// failureLink builds the dashboard link that filters a run's logs down to
// one case, or to a title search when the result is not linked to a case.
func failureLink(appURL, code string, runID int64, search string) string {
	return fmt.Sprintf("%s/run/%s/dashboard/%d?source=logs&search=%s",
		strings.TrimRight(appURL, "/"), url.PathEscape(code), runID, url.QueryEscape(search))
}

// failureLinks returns one link per case ID, or a single title-search link.
func failureLinks(appURL, code string, runID int64, ids []int64, title string) []string {
	if len(ids) == 0 {
		return []string{failureLink(appURL, code, runID, title)}
	}
	links := make([]string, len(ids))
	for i, id := range ids {
		links[i] = failureLink(appURL, code, runID, strconv.FormatInt(id, 10))
	}
	return links
}
