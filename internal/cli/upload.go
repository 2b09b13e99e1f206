package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/AndreyAkinshin/testops/internal/config"
	"github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/internal/mapper"
	"github.com/AndreyAkinshin/testops/internal/model"
	"github.com/AndreyAkinshin/testops/internal/testparser"
)

// detectBytes is how much of a report is inspected to detect its format.
const detectBytes = 4096

// uploadOptions holds the flags of the upload command.
type uploadOptions struct {
	Format string
	DryRun bool
	Save   string
	Files  []string
}

func parseUploadArgs(args []string) (*uploadOptions, error) {
	opts := &uploadOptions{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--dry-run":
			opts.DryRun = true
		case arg == "-f" || arg == "--format" || arg == "--save":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			i++
			if arg == "--save" {
				opts.Save = args[i]
			} else {
				opts.Format = args[i]
			}
		case strings.HasPrefix(arg, "--format="):
			opts.Format = strings.TrimPrefix(arg, "--format=")
		case strings.HasPrefix(arg, "--save="):
			opts.Save = strings.TrimPrefix(arg, "--save=")
		case arg == "--":
			opts.Files = append(opts.Files, args[i+1:]...)
			i = len(args)
		case arg != "-" && strings.HasPrefix(arg, "-"):
			return nil, fmt.Errorf("unknown flag %q", arg)
		default:
			opts.Files = append(opts.Files, arg)
		}
	}
	if len(opts.Files) == 0 {
		return nil, fmt.Errorf("at least one report file is required")
	}
	return opts, nil
}

// cmdUpload parses report files and sends the results to every project.
func cmdUpload(args []string, opts *GlobalOptions) int {
	if wantsHelp(args) {
		printUploadUsage()
		return 0
	}

	uopts, err := parseUploadArgs(args)
	if err != nil {
		out.ErrorPrefix("upload: %v", err)
		return errors.ExitConfigError
	}

	cfg, _, code := loadConfig(opts)
	if cfg == nil {
		return code
	}

	registry := testparser.NewRegistry()
	var parser testparser.Parser
	if uopts.Format != "" {
		parser = registry.GetParser(uopts.Format)
		if parser == nil {
			out.ErrorPrefix("upload: unknown format %q", uopts.Format)
			out.Hint("run 'testops formats' for the supported formats")
			return errors.ExitConfigError
		}
	}

	var results []model.TestResult
	for _, file := range uopts.Files {
		parsed, err := parseReport(registry, parser, file)
		if err != nil {
			out.ErrorPrefix("%v", err)
			return errors.GetExitCode(err)
		}
		out.Debug("%s: %d result(s)", file, len(parsed))
		results = append(results, parsed...)
	}

	counts := testparser.Count(results)
	printTestSummary(&counts)
	if len(results) == 0 {
		out.ErrorPrefix("no test results found in %s", strings.Join(uopts.Files, ", "))
		return errors.ExitRuntimeError
	}

	if uopts.Save != "" {
		if err := model.SaveResults(uopts.Save, results); err != nil {
			out.ErrorPrefix("%v", err)
			return errors.ExitRuntimeError
		}
		out.Debug("saved %d result(s) to %s", len(results), uopts.Save)
	}

	if uopts.DryRun {
		printRouting(cfg, results)
		return 0
	}

	d, err := newDispatcher(cfg, out)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.StartTestRun(ctx); err != nil {
		out.ErrorPrefix("%v", err)
		return errors.GetExitCode(err)
	}
	for _, r := range results {
		d.AddResult(ctx, r)
	}
	return printProjectSummary(d.Publish(ctx))
}

// parseReport reads one report, detecting its format when parser is nil.
// The file name "-" reads standard input.
func parseReport(registry *testparser.Registry, parser testparser.Parser, file string) ([]model.TestResult, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read report")
	}

	if parser == nil {
		head := data
		if len(head) > detectBytes {
			head = head[:detectBytes]
		}
		parser = registry.Detect(filepath.Base(file), head)
		if parser == nil {
			return nil, errors.Configf("%s: cannot detect report format; use --format", file)
		}
		out.Debug("%s: detected format %s", file, parser.Name())
	}

	results, err := parser.Parse(bytes.NewReader(data))
	if err != nil {
		var pe *testparser.ParseError
		if stderrors.As(err, &pe) && pe.File == "" {
			pe.File = file
		}
		return nil, errors.Wrap(err, "failed to parse report")
	}
	return results, nil
}

// printRouting prints where each result would go without contacting the API.
func printRouting(cfg *config.Config, results []model.TestResult) {
	known := mapper.KnownSet(cfg.ProjectCodes()...)
	perProject := make(map[string]int)
	linked := make(map[string]int)
	dropped := make(map[string]int)
	unrouted := 0

	for _, r := range results {
		targets := mapper.Resolve(r, known, cfg.DefaultProject)
		if len(targets) == 0 {
			unrouted++
		}
		for _, t := range targets {
			perProject[t.Code]++
			if len(t.IDs) > 0 {
				linked[t.Code]++
			}
		}
		for _, code := range mapper.Dropped(r, known) {
			dropped[code]++
		}
	}

	out.DryRunStart()
	rows := make([][]string, 0, len(cfg.Projects))
	for _, code := range cfg.ProjectCodes() {
		rows = append(rows, []string{
			code,
			fmt.Sprintf("%d", perProject[code]),
			fmt.Sprintf("%d", linked[code]),
		})
	}
	out.Table([]string{"PROJECT", "RESULTS", "LINKED"}, rows)

	if len(dropped) > 0 {
		codes := make([]string, 0, len(dropped))
		for code := range dropped {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		items := make([]string, len(codes))
		for i, code := range codes {
			items[i] = fmt.Sprintf("%s: %d mapping(s) ignored", code, dropped[code])
		}
		out.WarningSimple("%d project(s) are not configured:", len(codes))
		out.List(items)
	}
	if unrouted > 0 {
		out.WarningSimple("%d result(s) map only to unconfigured projects and will not be sent", unrouted)
	}
	out.DryRunEnd()
}

func printUploadUsage() {
	w := out

	w.HelpTitle("testops upload - send test reports to every configured project")

	w.HelpSection("Usage:")
	w.HelpUsage("testops upload [options] <file...>")

	w.HelpSection("Description:")
	w.Println("  Parses each report, creates a run in every project (or reuses run.id),")
	w.Println("  uploads the results in batches and completes the runs.")
	w.Println("  Results whose markers name projects go only to those projects;")
	w.Println("  results without a project mapping go to the default project.")
	w.Println("  Use '-' to read a report from standard input.")

	w.HelpSection("Options:")
	w.HelpFlag("-f, --format <name>", "Report format (default: detect per file)", widthFlagWithValue)
	w.HelpFlag("--dry-run", "Parse and show routing without contacting the API", widthFlagWithValue)
	w.HelpFlag("--save <path>", "Write the parsed results to a results file", widthFlagWithValue)
	w.HelpFlag("-h, --help", "Show this help", widthFlagWithValue)

	w.HelpSection("Examples:")
	w.HelpExample("testops upload report.xml", "Upload a JUnit report")
	w.HelpExample("go test -json ./... | testops upload -f gotest-json -", "Upload from a pipe")
	w.HelpExample("testops upload --dry-run results.json", "Show per-project routing")
	w.Println("")
}
