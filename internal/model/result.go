package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Attachment is a file or inline content attached to a test result.
type Attachment struct {
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	Content  []byte `json:"content,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	// Hash is the reference returned by the API once uploaded.
	Hash string `json:"hash,omitempty"`
}

// TestResult is the outcome of one finished test.
type TestResult struct {
	ID          string
	Title       string
	Suite       []string
	Status      Status
	Duration    *time.Duration
	StartedAt   time.Time
	Routing     Routing
	Attachments []Attachment
	Message     string
	Stacktrace  string
	Params      map[string]string
}

// NewResult creates a result with a fresh ID.
func NewResult(title string, status Status) TestResult {
	return TestResult{
		ID:     uuid.NewString(),
		Title:  title,
		Status: status,
	}
}

// Normalize strips terminal escapes from free text, drops negative
// durations and assigns an ID when missing.
func (r *TestResult) Normalize() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.Message = StripANSI(r.Message)
	r.Stacktrace = StripANSI(r.Stacktrace)
	if r.Duration != nil && *r.Duration < 0 {
		r.Duration = nil
	}
}

// Clone returns a deep copy of r.
func (r TestResult) Clone() TestResult {
	out := r
	if r.Suite != nil {
		out.Suite = append([]string(nil), r.Suite...)
	}
	if r.Duration != nil {
		d := *r.Duration
		out.Duration = &d
	}
	if r.Attachments != nil {
		out.Attachments = make([]Attachment, len(r.Attachments))
		for i, a := range r.Attachments {
			if a.Content != nil {
				a.Content = append([]byte(nil), a.Content...)
			}
			out.Attachments[i] = a
		}
	}
	if r.Params != nil {
		out.Params = make(map[string]string, len(r.Params))
		for k, v := range r.Params {
			out.Params[k] = v
		}
	}
	switch r.Routing.Kind() {
	case RoutingLegacy:
		out.Routing = Legacy(r.Routing.IDs()...)
	case RoutingMapped:
		out.Routing = Mapped(r.Routing.Entries()...)
	}
	return out
}

// ForProject returns the copy of r sent to a single project: a fresh ID and
// a legacy routing narrowed to ids, so the copy cannot be routed again.
func (r TestResult) ForProject(ids []int64) TestResult {
	out := r.Clone()
	out.ID = uuid.NewString()
	out.Routing = Legacy(ids...)
	return out
}

// DurationMs returns the duration in milliseconds, or nil if unknown.
func (r TestResult) DurationMs() *int64 {
	if r.Duration == nil {
		return nil
	}
	ms := r.Duration.Milliseconds()
	return &ms
}

// resultJSON is the wire form of TestResult.
type resultJSON struct {
	ID          string            `json:"id,omitempty"`
	Title       string            `json:"title"`
	Suite       []string          `json:"suite,omitempty"`
	Status      Status            `json:"status"`
	DurationMs  *int64            `json:"duration_ms,omitempty"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	TestOpsID   caseIDs           `json:"testops_id,omitempty"`
	Mapping     projectMapping    `json:"testops_project_mapping,omitempty"`
	Attachments []Attachment      `json:"attachments,omitempty"`
	Message     string            `json:"message,omitempty"`
	Stacktrace  string            `json:"stacktrace,omitempty"`
	Params      map[string]string `json:"params,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r TestResult) MarshalJSON() ([]byte, error) {
	w := resultJSON{
		ID:          r.ID,
		Title:       r.Title,
		Suite:       r.Suite,
		Status:      r.Status,
		DurationMs:  r.DurationMs(),
		Attachments: r.Attachments,
		Message:     r.Message,
		Stacktrace:  r.Stacktrace,
		Params:      r.Params,
	}
	if !r.StartedAt.IsZero() {
		t := r.StartedAt
		w.StartedAt = &t
	}
	switch r.Routing.Kind() {
	case RoutingLegacy:
		w.TestOpsID = r.Routing.IDs()
	case RoutingMapped:
		w.Mapping = r.Routing.Entries()
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. A project mapping takes
// precedence over legacy IDs when both are present.
func (r *TestResult) UnmarshalJSON(data []byte) error {
	var w resultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	status := w.Status
	if !status.IsValid() {
		parsed, err := ParseStatus(string(w.Status))
		if err != nil {
			return fmt.Errorf("result %q: %w", w.Title, err)
		}
		status = parsed
	}
	*r = TestResult{
		ID:          w.ID,
		Title:       w.Title,
		Suite:       w.Suite,
		Status:      status,
		Attachments: w.Attachments,
		Message:     w.Message,
		Stacktrace:  w.Stacktrace,
		Params:      w.Params,
	}
	if w.DurationMs != nil {
		d := time.Duration(*w.DurationMs) * time.Millisecond
		r.Duration = &d
	}
	if w.StartedAt != nil {
		r.StartedAt = *w.StartedAt
	}
	switch {
	case len(w.Mapping) > 0:
		r.Routing = Mapped(w.Mapping...)
	case len(w.TestOpsID) > 0:
		r.Routing = Legacy(w.TestOpsID...)
	}
	return nil
}
