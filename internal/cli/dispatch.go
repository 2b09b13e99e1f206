package cli

import (
	"strings"

	"github.com/AndreyAkinshin/testops/internal/config"
	"github.com/AndreyAkinshin/testops/internal/dispatcher"
	"github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/internal/testops"
)

// newDispatcher builds a dispatcher with one API sink per configured project.
func newDispatcher(cfg *config.Config, log dispatcher.Logger) (*dispatcher.Dispatcher, error) {
	if cfg.API.Token == "" {
		return nil, errors.Environmentf("no API token: set %s or api.token", config.EnvAPIToken)
	}

	clientCfg := testops.Config{
		Host:       cfg.API.Host,
		Token:      cfg.API.Token,
		RetryDelay: cfg.API.RetryDelay,
		Timeout:    cfg.API.Timeout,
	}
	if cfg.API.MaxRetries != nil {
		clientCfg.MaxRetries = *cfg.API.MaxRetries
	}
	client := testops.NewClient(clientCfg)
	out.Debug("API endpoint: %s", client.BaseURL())

	projects := make([]dispatcher.Project, 0, len(cfg.Projects))
	for _, p := range cfg.Projects {
		run := cfg.ProjectRun(p)
		sink := client.Sink(p.Code, testops.RunSettings{
			Title:       run.Title,
			Description: run.Description,
			Environment: cfg.ProjectEnvironment(p),
		})
		projects = append(projects, dispatcher.Project{
			Code:     p.Code,
			Sink:     sink,
			RunID:    run.ID,
			KeepOpen: !run.ShouldComplete(),
		})
	}

	d, err := dispatcher.New(projects, dispatcher.Options{
		DefaultProject:    cfg.DefaultProject,
		BatchSize:         cfg.BatchSize,
		UploadAttachments: cfg.ShouldUploadAttachments(),
		AppURL:            appURL(cfg.App.Host),
		Logger:            log,
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// appURL turns a configured app host into the base of failure links.
func appURL(host string) string {
	if host == "" {
		return ""
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	return strings.TrimRight(host, "/")
}
