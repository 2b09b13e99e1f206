package testops

import (
	"encoding/json"
	"strings"

	"github.com/AndreyAkinshin/testops/internal/model"
)

// envelope is the common response wrapper of every endpoint.
type envelope struct {
	Status       bool            `json:"status"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	Error        string          `json:"error,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

func (e envelope) message() string {
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	if e.Error != "" {
		return e.Error
	}
	return "request rejected"
}

type createRunRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Environment string `json:"environment_slug,omitempty"`
	IsAutotest  bool   `json:"is_autotest"`
}

type createRunResult struct {
	ID int64 `json:"id"`
}

type attachmentResult struct {
	Hash     string `json:"hash"`
	Filename string `json:"filename"`
}

type bulkRequest struct {
	Results []resultPayload `json:"results"`
}

type casePayload struct {
	Title      string `json:"title"`
	SuiteTitle string `json:"suite_title,omitempty"`
}

type resultPayload struct {
	CaseID      int64             `json:"case_id,omitempty"`
	Case        *casePayload      `json:"case,omitempty"`
	Status      string            `json:"status"`
	StartTime   int64             `json:"start_time,omitempty"`
	TimeMs      *int64            `json:"time_ms,omitempty"`
	Comment     string            `json:"comment,omitempty"`
	Stacktrace  string            `json:"stacktrace,omitempty"`
	Attachments []string          `json:"attachments,omitempty"`
	Param       map[string]string `json:"param,omitempty"`
}

// payloads converts results to the bulk wire form. A result linked to
// several cases becomes one entry per case; an unlinked result is matched
// by title and suite.
func payloads(results []model.TestResult) []resultPayload {
	out := make([]resultPayload, 0, len(results))
	for _, r := range results {
		base := resultPayload{
			Status:     string(r.Status),
			TimeMs:     r.DurationMs(),
			Comment:    r.Message,
			Stacktrace: r.Stacktrace,
			Param:      r.Params,
		}
		if !r.StartedAt.IsZero() {
			base.StartTime = r.StartedAt.Unix()
		}
		for _, a := range r.Attachments {
			if a.Hash != "" {
				base.Attachments = append(base.Attachments, a.Hash)
			}
		}

		ids := r.Routing.IDs()
		if len(ids) == 0 {
			base.Case = &casePayload{Title: r.Title, SuiteTitle: strings.Join(r.Suite, "\t")}
			out = append(out, base)
			continue
		}
		for _, id := range ids {
			p := base
			p.CaseID = id
			out = append(out, p)
		}
	}
	return out
}
