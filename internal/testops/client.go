// Package testops is a client for the TestOps REST API (v1).
package testops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/AndreyAkinshin/testops/internal/model"
)

// Default client settings.
const (
	DefaultHost       = "api.qase.io"
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
	DefaultTimeout    = 30 * time.Second
)

// maxErrorBody bounds how much of an error response is kept in messages.
const maxErrorBody = 512

// Config configures a Client.
type Config struct {
	// Host is a bare host name (https assumed) or a full base URL.
	Host  string
	Token string
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// RetryDelay is the first backoff delay; it doubles on every retry.
	RetryDelay time.Duration
	Timeout    time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client talks to one API host with one token.
type Client struct {
	baseURL    string
	token      string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client. Zero values in cfg take the defaults.
func NewClient(cfg Config) *Client {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(host, "/") + "/v1",
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		httpClient: httpClient,
		sleep:      sleepContext,
	}
}

// BaseURL returns the versioned API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RunSettings describes runs created by a Sink.
type RunSettings struct {
	Title       string
	Description string
	Environment string
}

// CreateRun opens a run in a project and returns its ID.
func (c *Client) CreateRun(ctx context.Context, project string, run RunSettings) (int64, error) {
	body, err := json.Marshal(createRunRequest{
		Title:       run.Title,
		Description: run.Description,
		Environment: run.Environment,
		IsAutotest:  true,
	})
	if err != nil {
		return 0, err
	}
	var res createRunResult
	err = c.do(ctx, "create run", project, c.endpoint("run", project), "application/json", body, &res)
	if err != nil {
		return 0, err
	}
	if res.ID <= 0 {
		return 0, &APIError{Op: "create run", Project: project, StatusCode: http.StatusOK, Message: "response carries no run id"}
	}
	return res.ID, nil
}

// UploadResults sends a batch of results to a run.
func (c *Client) UploadResults(ctx context.Context, project string, runID int64, results []model.TestResult) error {
	body, err := json.Marshal(bulkRequest{Results: payloads(results)})
	if err != nil {
		return err
	}
	u := c.endpoint("result", project, fmt.Sprint(runID), "bulk")
	return c.do(ctx, "upload results", project, u, "application/json", body, nil)
}

// UploadAttachment stores a file in a project and returns its hash.
// Content is used when set, otherwise the file at Path is read.
func (c *Client) UploadAttachment(ctx context.Context, project string, a model.Attachment) (string, error) {
	content := a.Content
	name := a.Name
	if content == nil {
		if a.Path == "" {
			return "", &APIError{Op: "upload attachment", Project: project, Message: fmt.Sprintf("attachment %q has no content", a.Name)}
		}
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return "", &APIError{Op: "upload attachment", Project: project, Message: err.Error()}
		}
		content = data
		if name == "" {
			name = filepath.Base(a.Path)
		}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	mimeType := a.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(content)
	}
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var res []attachmentResult
	err = c.do(ctx, "upload attachment", project, c.endpoint("attachment", project), mw.FormDataContentType(), buf.Bytes(), &res)
	if err != nil {
		return "", err
	}
	if len(res) == 0 || res[0].Hash == "" {
		return "", &APIError{Op: "upload attachment", Project: project, StatusCode: http.StatusOK, Message: "response carries no hash"}
	}
	return res[0].Hash, nil
}

// CompleteRun closes a run.
func (c *Client) CompleteRun(ctx context.Context, project string, runID int64) error {
	u := c.endpoint("run", project, fmt.Sprint(runID), "complete")
	return c.do(ctx, "complete run", project, u, "application/json", nil, nil)
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

// do POSTs body and decodes the envelope's result into out (when non-nil),
// retrying temporary failures with exponential backoff.
func (c *Client) do(ctx context.Context, op, project, u, contentType string, body []byte, out interface{}) error {
	delay := c.retryDelay
	for attempt := 0; ; attempt++ {
		err := c.once(ctx, op, project, u, contentType, body, out)
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Temporary() || attempt >= c.maxRetries {
			return err
		}
		if serr := c.sleep(ctx, delay); serr != nil {
			return &APIError{Op: op, Project: project, Cause: serr}
		}
		delay *= 2
	}
}

func (c *Client) once(ctx context.Context, op, project, u, contentType string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, reader)
	if err != nil {
		return &APIError{Op: op, Project: project, Message: err.Error()}
	}
	req.Header.Set("Token", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Op: op, Project: project, Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Op: op, Project: project, Cause: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if decodeErr == nil && (env.ErrorMessage != "" || env.Error != "") {
			msg = env.message()
		}
		msg = truncate(msg, maxErrorBody)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Op: op, Project: project, StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return &APIError{Op: op, Project: project, StatusCode: resp.StatusCode, Message: "invalid response: " + decodeErr.Error()}
	}
	if !env.Status {
		return &APIError{Op: op, Project: project, StatusCode: resp.StatusCode, Message: env.message()}
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return &APIError{Op: op, Project: project, StatusCode: resp.StatusCode, Message: "invalid result: " + err.Error()}
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// truncate cuts s to at most max bytes on a rune boundary, marking the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
