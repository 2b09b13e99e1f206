package dispatcher

import (
	"context"

	"github.com/AndreyAkinshin/testops/internal/model"
)

// ResultSink is the boundary to the test-management API for one project.
// Every call may block on I/O; retries and timeouts are the sink's concern.
type ResultSink interface {
	// CreateRun opens a new run and returns its ID.
	CreateRun(ctx context.Context) (int64, error)
	// UploadResults sends a batch to a run. It either accepts the whole
	// batch or fails; partial success is not assumed.
	UploadResults(ctx context.Context, runID int64, results []model.TestResult) error
	// UploadAttachment stores an attachment and returns its reference.
	UploadAttachment(ctx context.Context, attachment model.Attachment) (string, error)
	// CompleteRun closes a run.
	CompleteRun(ctx context.Context, runID int64) error
}

// Logger receives the dispatcher's project-scoped log lines.
// *output.Writer satisfies it.
type Logger interface {
	ProjectInfo(project, format string, args ...interface{})
	ProjectDebug(project, format string, args ...interface{})
	ProjectError(project, format string, args ...interface{})
	Warning(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) ProjectInfo(string, string, ...interface{})  {}
func (nopLogger) ProjectDebug(string, string, ...interface{}) {}
func (nopLogger) ProjectError(string, string, ...interface{}) {}
func (nopLogger) Warning(string, ...interface{})              {}
func (nopLogger) Debug(string, ...interface{})                {}
