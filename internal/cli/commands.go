package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/AndreyAkinshin/testops/internal/config"
	"github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/internal/output"
	"github.com/AndreyAkinshin/testops/internal/testparser"
)

// out is the shared output writer for CLI commands.
var out = output.New()

// Help text alignment widths for consistent formatting.
const (
	helpFlagWidthShort = 10 // Width for short flags like "-h, --help"
	widthFlagWithValue = 20 // Width for flags with a value like "--listen <addr>"
)

// titleCase renders status and format names in summaries and help.
var titleCase = cases.Title(language.English)

// applyVerbosityToOutput configures the output writer based on verbosity settings.
func applyVerbosityToOutput(opts *GlobalOptions) {
	out.SetQuiet(opts.Quiet)
	out.SetVerbose(opts.Verbose)
}

// loadConfig finds, loads and validates the configuration. Without a file
// the configuration comes from the environment alone. Warnings are printed.
// It returns the config and exit code 0, or nil and the exit code to use.
func loadConfig(opts *GlobalOptions) (*config.Config, string, int) {
	path := opts.Config
	if path == "" {
		found, err := config.Find()
		switch {
		case err == nil:
			path = found
		case stderrors.Is(err, config.ErrNoConfig):
			out.Debug("no config file found, using environment only")
		default:
			out.ErrorPrefix("%v", err)
			return nil, "", errors.ExitEnvironmentError
		}
	}

	cfg, warnings, err := config.LoadAndValidate(path, config.Options{Getenv: os.Getenv})
	for _, w := range warnings {
		out.WarningSimple("%s", w)
	}
	if err != nil {
		where := path
		if where == "" {
			where = "environment"
		}
		out.ErrorPrefix("%s: %v", where, err)
		if path == "" && len(os.Getenv(config.EnvProject)) == 0 {
			out.Hint("create testops.yaml with 'testops init' or set %s", config.EnvProject)
		}
		return nil, path, errors.ExitConfigError
	}
	return cfg, path, 0
}

// cmdConfig handles configuration utilities.
func cmdConfig(args []string, opts *GlobalOptions) int {
	if len(args) == 0 {
		out.ErrorPrefix("config: subcommand required (validate, show)")
		return errors.ExitConfigError
	}

	switch args[0] {
	case "validate":
		return cmdConfigValidate(opts)
	case "show":
		return cmdConfigShow(opts)
	case "-h", "--help":
		printConfigUsage()
		return 0
	default:
		out.ErrorPrefix("config: unknown subcommand %q", args[0])
		return errors.ExitConfigError
	}
}

func cmdConfigValidate(opts *GlobalOptions) int {
	cfg, path, code := loadConfig(opts)
	if cfg == nil {
		return code
	}

	source := path
	if source == "" {
		source = "environment"
	}
	out.ValidationSuccess("Configuration is valid.")
	out.SummaryItem("Source", source)
	out.SummaryItem("Projects", strings.Join(cfg.ProjectCodes(), ", "))
	out.SummaryItem("Default project", cfg.DefaultProject)
	out.SummaryItem("Batch size", fmt.Sprintf("%d", cfg.BatchSize))
	if cfg.API.Token == "" {
		out.WarningSimple("no API token configured; set %s before uploading", config.EnvAPIToken)
	}
	return 0
}

func cmdConfigShow(opts *GlobalOptions) int {
	cfg, _, code := loadConfig(opts)
	if cfg == nil {
		return code
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitRuntimeError
	}
	fmt.Print(string(data))
	return 0
}

// cmdFormats lists the registered report formats.
func cmdFormats(args []string) int {
	if wantsHelp(args) {
		printFormatsUsage()
		return 0
	}

	registry := testparser.NewRegistry()
	parsers := registry.Parsers()
	width := 0
	for _, p := range parsers {
		if len(p.Name()) > width {
			width = len(p.Name())
		}
	}

	w := output.New()
	w.HelpSection("Formats:")
	for _, p := range parsers {
		desc := p.Description()
		if aliases := registry.Aliases(p.Name()); len(aliases) > 0 {
			desc = fmt.Sprintf("%s (aliases: %s)", desc, strings.Join(aliases, ", "))
		}
		w.HelpCommand(p.Name(), desc, width)
	}
	w.Println("")
	return 0
}

// printConfigUsage prints the help text for the config command.
func printConfigUsage() {
	w := output.New()

	w.HelpTitle("testops config - configuration utilities")

	w.HelpSection("Usage:")
	w.HelpUsage("testops config <subcommand> [--config <path>]")

	w.HelpSection("Subcommands:")
	w.HelpCommand("validate", "Validate the configuration", helpFlagWidthShort)
	w.HelpCommand("show", "Print the effective configuration (token masked)", helpFlagWidthShort)

	w.HelpSection("Options:")
	w.HelpFlag("-h, --help", "Show this help", helpFlagWidthShort)

	w.HelpSection("Examples:")
	w.HelpExample("testops config validate", "Validate testops.yaml")
	w.HelpExample("TESTOPS_PROJECT=DEMO testops config show", "Show the config with an override")
	w.Println("")
}

func printFormatsUsage() {
	w := output.New()

	w.HelpTitle("testops formats - list supported report formats")

	w.HelpSection("Usage:")
	w.HelpUsage("testops formats")

	w.HelpSection("Description:")
	w.Println("  Lists the report formats accepted by 'testops upload --format'.")
	w.Println("  Without --format the format is detected from each file.")
	w.Println("")
}
