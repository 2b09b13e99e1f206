package cli

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/AndreyAkinshin/testops/internal/config"
	"github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/internal/output"
)

//go:embed init_template.yaml
var initTemplate string

var initTmpl = template.Must(template.New("testops.yaml").Parse(initTemplate))

// initOptions holds parsed init command options.
type initOptions struct {
	Project string
	Force   bool
}

// cmdInit writes a starter testops.yaml into the current directory.
// An existing file is kept unless --force is given.
func cmdInit(args []string) int {
	if wantsHelp(args) {
		printInitUsage()
		return 0
	}

	opts := initOptions{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--force":
			opts.Force = true
		case arg == "-p" || arg == "--project":
			if i+1 >= len(args) {
				out.ErrorPrefix("init: %s requires a value", arg)
				return errors.ExitConfigError
			}
			i++
			opts.Project = args[i]
		case strings.HasPrefix(arg, "--project="):
			opts.Project = strings.TrimPrefix(arg, "--project=")
		default:
			out.ErrorPrefix("init: unknown option %q", arg)
			return errors.ExitConfigError
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitRuntimeError
	}

	if opts.Project == "" {
		opts.Project = sanitizeProjectCode(filepath.Base(cwd))
	}
	opts.Project = strings.ToUpper(strings.TrimSpace(opts.Project))
	if err := config.ValidateProjectCode(opts.Project); err != nil {
		out.ErrorPrefix("init: %v", err)
		return errors.ExitConfigError
	}

	path := filepath.Join(cwd, config.FileNames[0])
	if _, err := os.Stat(path); err == nil && !opts.Force {
		out.Info("%s already exists (nothing to do)", config.FileNames[0])
		out.Hint("use --force to overwrite it")
		return 0
	}

	var buf bytes.Buffer
	if err := initTmpl.Execute(&buf, opts); err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitRuntimeError
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		out.ErrorPrefix("%v", err)
		return errors.ExitEnvironmentError
	}

	w := output.New()
	w.Println("")
	w.Success("Created %s for project %s", config.FileNames[0], opts.Project)
	printNextSteps(w)
	return 0
}

// sanitizeProjectCode derives a project code from a directory name:
// uppercase letters and digits only, at most ten characters.
func sanitizeProjectCode(name string) string {
	var b strings.Builder
	for _, c := range strings.ToUpper(name) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
		if b.Len() == 10 {
			break
		}
	}
	s := b.String()
	if len(s) < 2 {
		s = "DEMO"
	}
	return s
}

// printNextSteps prints helpful guidance after initialization.
func printNextSteps(w *output.Writer) {
	w.HelpSection("Next steps:")
	w.Println("  1. Export %s with a token from the TestOps web UI", config.EnvAPIToken)
	w.Println("  2. Add more projects under 'projects' to report to several at once")
	w.Println("  3. Run 'testops config validate' to check the file")
	w.Println("  4. Run 'testops upload <report>' after your tests")
	w.Println("")
}

func printInitUsage() {
	w := output.New()

	w.HelpTitle("testops init - create a starter testops.yaml")

	w.HelpSection("Usage:")
	w.HelpUsage("testops init [--project <code>] [--force]")

	w.HelpSection("Options:")
	w.HelpFlag("-p, --project <code>", "Project code (default: derived from the directory name)", widthFlagWithValue)
	w.HelpFlag("--force", "Overwrite an existing testops.yaml", widthFlagWithValue)
	w.HelpFlag("-h, --help", "Show this help", widthFlagWithValue)
	w.Println("")
}

