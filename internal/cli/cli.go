// Package cli provides the command-line interface of testops.
package cli

import (
	"fmt"
	"strings"

	"github.com/AndreyAkinshin/testops/internal/config"
	"github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/internal/output"
)

// Version is set at build time.
var Version = "dev"

// wantsHelp returns true if args contain -h or --help before any -- separator.
func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
		if arg == "--" {
			return false
		}
	}
	return false
}

// Run executes the CLI with the given arguments and returns an exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 0
	}

	switch args[0] {
	case "-h", "--help", "help":
		printUsage()
		return 0
	case "--version", "version":
		fmt.Printf("testops %s\n", Version)
		return 0
	}

	opts, remaining, err := parseGlobalFlags(args)
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitConfigError
	}
	if len(remaining) == 0 {
		printUsage()
		return 0
	}
	cmd := remaining[0]
	cmdArgs := remaining[1:]

	switch cmd {
	case "upload":
		return cmdUpload(cmdArgs, opts)
	case "serve":
		return cmdServe(cmdArgs, opts)
	case "config":
		return cmdConfig(cmdArgs, opts)
	case "formats":
		return cmdFormats(cmdArgs)
	case "init":
		return cmdInit(cmdArgs)
	case "completion":
		return cmdCompletion(cmdArgs)
	case "help":
		printUsage()
		return 0
	case "version":
		fmt.Printf("testops %s\n", Version)
		return 0
	default:
		out.ErrorPrefix("unknown command %q", cmd)
		out.Hint("run 'testops help' for a list of commands")
		return errors.ExitConfigError
	}
}

// GlobalOptions holds parsed global flags.
type GlobalOptions struct {
	Quiet   bool
	Verbose bool
	// Config is an explicit configuration file; when empty the file is
	// searched for from the working directory upwards.
	Config string
}

// parseGlobalFlags extracts global flags from anywhere in the argument
// list. Arguments after -- are passed through untouched.
func parseGlobalFlags(args []string) (*GlobalOptions, []string, error) {
	opts := &GlobalOptions{}
	var remaining []string

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case arg == "-q" || arg == "--quiet":
			opts.Quiet = true
			i++
		case arg == "-v" || arg == "--verbose":
			opts.Verbose = true
			i++
		case arg == "-c" || arg == "--config":
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("%s requires a value", arg)
			}
			opts.Config = args[i+1]
			i += 2
		case strings.HasPrefix(arg, "--config="):
			opts.Config = strings.TrimPrefix(arg, "--config=")
			if opts.Config == "" {
				return nil, nil, fmt.Errorf("--config requires a value")
			}
			i++
		case arg == "--":
			remaining = append(remaining, args[i:]...)
			i = len(args)
		default:
			remaining = append(remaining, arg)
			i++
		}
	}

	if err := validateGlobalOptions(opts); err != nil {
		return nil, nil, err
	}

	applyVerbosityToOutput(opts)

	return opts, remaining, nil
}

// validateGlobalOptions checks that global options are valid.
func validateGlobalOptions(opts *GlobalOptions) error {
	if opts.Quiet && opts.Verbose {
		return fmt.Errorf("--quiet and --verbose are mutually exclusive")
	}
	return nil
}

func printUsage() {
	w := output.New()

	w.HelpTitle("testops - report test results to one or more TestOps projects")

	w.HelpSection("Usage:")
	w.HelpUsage("testops <command> [options]")

	w.HelpSection("Reporting Commands:")
	w.HelpCommand("upload <file...>", "Parse report files and send them to every project", 18)
	w.HelpCommand("serve", "Accept results from a framework adapter over WebSocket", 18)

	w.HelpSection("Utility Commands:")
	w.HelpCommand("init", "Create a starter testops.yaml", 18)
	w.HelpCommand("config validate", "Validate the configuration", 18)
	w.HelpCommand("config show", "Print the effective configuration", 18)
	w.HelpCommand("formats", "List supported report formats", 18)
	w.HelpCommand("completion", "Generate shell completion (bash, zsh, fish)", 18)
	w.HelpCommand("version", "Show version information", 18)

	printGlobalFlags(w)

	w.HelpSection("Examples:")
	w.HelpExample("testops upload junit.xml", "Upload a JUnit report")
	w.HelpExample("go test -json ./... > go.json && testops upload go.json", "Upload go test results")
	w.HelpExample("testops upload --dry-run results.json", "Show routing without sending")
	w.HelpExample("testops serve --listen 127.0.0.1:9000", "Start the adapter intake")
	w.Println("")
}

func printGlobalFlags(w *output.Writer) {
	w.HelpSection("Global Flags:")
	w.HelpFlag("-q, --quiet", "Minimal output (errors only)", widthFlagWithValue)
	w.HelpFlag("-v, --verbose", "Maximum detail", widthFlagWithValue)
	w.HelpFlag("-c, --config <path>", "Configuration file (default: testops.yaml, searched upwards)", widthFlagWithValue)
	w.HelpFlag("-h, --help", "Show this help", widthFlagWithValue)
	w.HelpFlag("--version", "Show version", widthFlagWithValue)

	w.HelpSection("Environment:")
	width := 0
	for _, env := range config.EnvVars {
		if len(env[0]) > width {
			width = len(env[0])
		}
	}
	for _, env := range config.EnvVars {
		w.HelpEnvVar(env[0], env[1], width)
	}
}
