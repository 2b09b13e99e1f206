package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/internal/intake"
	"github.com/AndreyAkinshin/testops/internal/model"
	"github.com/AndreyAkinshin/testops/internal/testparser"
)

// shutdownTimeout bounds the graceful shutdown of the intake server.
const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	Listen string
	Save   string
}

func parseServeArgs(args []string) (*serveOptions, error) {
	opts := &serveOptions{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-l" || arg == "--listen" || arg == "--save":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			i++
			if arg == "--save" {
				opts.Save = args[i]
			} else {
				opts.Listen = args[i]
			}
		case strings.HasPrefix(arg, "--listen="):
			opts.Listen = strings.TrimPrefix(arg, "--listen=")
		case strings.HasPrefix(arg, "--save="):
			opts.Save = strings.TrimPrefix(arg, "--save=")
		default:
			return nil, fmt.Errorf("unexpected argument %q", arg)
		}
	}
	return opts, nil
}

// cmdServe runs the WebSocket intake until the adapter ends the run or the
// process is interrupted.
func cmdServe(args []string, opts *GlobalOptions) int {
	if wantsHelp(args) {
		printServeUsage()
		return 0
	}

	sopts, err := parseServeArgs(args)
	if err != nil {
		out.ErrorPrefix("serve: %v", err)
		return errors.ExitConfigError
	}

	cfg, _, code := loadConfig(opts)
	if cfg == nil {
		return code
	}
	if sopts.Listen == "" {
		sopts.Listen = cfg.Intake.Listen
	}

	d, err := newDispatcher(cfg, out)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	ln, err := net.Listen("tcp", sopts.Listen)
	if err != nil {
		out.ErrorPrefix("serve: %v", err)
		return errors.ExitEnvironmentError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := intake.NewServer(d, out)
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()
	out.Info("listening on ws://%s%s", ln.Addr(), intake.EventsPath)

	interrupted := false
	select {
	case <-srv.Done():
	case <-ctx.Done():
		interrupted = true
		out.Warning("interrupted before run_end")
	case err := <-serveErr:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			out.ErrorPrefix("serve: %v", err)
			return errors.ExitRuntimeError
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		out.Debug("shutdown: %v", err)
	}

	results := d.TestResults()
	if sopts.Save != "" {
		if err := model.SaveResults(sopts.Save, results); err != nil {
			out.ErrorPrefix("%v", err)
			return errors.ExitRuntimeError
		}
		out.Info("saved %d result(s) to %s", len(results), sopts.Save)
	}

	counts := testparser.Count(results)
	printTestSummary(&counts)
	if interrupted {
		out.FinalFailure("Run did not end; results were not published.")
		return errors.ExitRuntimeError
	}
	return printProjectSummary(srv.Outcomes())
}

func printServeUsage() {
	w := out

	w.HelpTitle("testops serve - accept results from a framework adapter")

	w.HelpSection("Usage:")
	w.HelpUsage("testops serve [--listen <addr>] [--save <path>]")

	w.HelpSection("Description:")
	w.Println("  Listens for adapter events on a WebSocket and forwards them to every")
	w.Println("  configured project. The adapter sends run_start, one test_end per")
	w.Println("  test and run_end; the server exits after run_end has been published.")

	w.HelpSection("Options:")
	w.HelpFlag("-l, --listen <addr>", "Listen address (default: intake.listen)", widthFlagWithValue)
	w.HelpFlag("--save <path>", "Write the received results to a results file", widthFlagWithValue)
	w.HelpFlag("-h, --help", "Show this help", widthFlagWithValue)

	w.HelpSection("Endpoints:")
	w.HelpCommand(intake.EventsPath, "Adapter event socket", 10)
	w.HelpCommand(intake.HealthPath, "Health probe (ok, or done after run_end)", 10)
	w.Println("")
}
