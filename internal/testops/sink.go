package testops

import (
	"context"

	"github.com/AndreyAkinshin/testops/internal/model"
)

// Sink binds a Client to one project. It implements dispatcher.ResultSink.
type Sink struct {
	client  *Client
	project string
	run     RunSettings
}

// Sink returns a sink for project that creates runs with the given settings.
func (c *Client) Sink(project string, run RunSettings) *Sink {
	return &Sink{client: c, project: project, run: run}
}

// Project returns the bound project code.
func (s *Sink) Project() string {
	return s.project
}

func (s *Sink) CreateRun(ctx context.Context) (int64, error) {
	return s.client.CreateRun(ctx, s.project, s.run)
}

func (s *Sink) UploadResults(ctx context.Context, runID int64, results []model.TestResult) error {
	return s.client.UploadResults(ctx, s.project, runID, results)
}

func (s *Sink) UploadAttachment(ctx context.Context, a model.Attachment) (string, error) {
	return s.client.UploadAttachment(ctx, s.project, a)
}

func (s *Sink) CompleteRun(ctx context.Context, runID int64) error {
	return s.client.CompleteRun(ctx, s.project, runID)
}
