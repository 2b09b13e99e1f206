package cli

import (
	"fmt"
	"strings"

	"github.com/AndreyAkinshin/testops/internal/errors"
	"github.com/AndreyAkinshin/testops/internal/output"
	"github.com/AndreyAkinshin/testops/internal/testparser"
)

// cmdCompletion generates shell completion scripts.
func cmdCompletion(args []string) int {
	w := output.New()
	shell := ""
	alias := ""

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help":
			printCompletionUsage()
			return 0
		case strings.HasPrefix(arg, "--alias="):
			alias = strings.TrimPrefix(arg, "--alias=")
		case arg == "--alias":
			w.ErrorPrefix("completion: --alias requires a value (--alias=<name>)")
			return errors.ExitConfigError
		case strings.HasPrefix(arg, "-"):
			w.ErrorPrefix("completion: unknown flag: %s", arg)
			printCompletionUsage()
			return errors.ExitConfigError
		default:
			if shell != "" {
				w.ErrorPrefix("completion: unexpected argument: %s", arg)
				return errors.ExitConfigError
			}
			shell = arg
		}
	}

	if shell == "" {
		w.ErrorPrefix("completion: shell required (bash, zsh, fish)")
		printCompletionUsage()
		return errors.ExitConfigError
	}

	cmdName := "testops"
	if alias != "" {
		cmdName = alias
	}

	switch shell {
	case "bash":
		fmt.Print(generateBashCompletion(cmdName))
	case "zsh":
		fmt.Print(generateZshCompletion(cmdName))
	case "fish":
		fmt.Print(generateFishCompletion(cmdName))
	default:
		w.ErrorPrefix("completion: unsupported shell %q (use bash, zsh, or fish)", shell)
		return errors.ExitConfigError
	}

	return 0
}

// printCompletionUsage prints the help text for the completion command.
func printCompletionUsage() {
	w := output.New()

	w.HelpTitle("testops completion - generate shell completion scripts")

	w.HelpSection("Usage:")
	w.HelpUsage("testops completion <shell> [--alias=<name>]")

	w.HelpSection("Arguments:")
	w.HelpFlag("<shell>", "Shell type: bash, zsh, or fish", 10)

	w.HelpSection("Options:")
	w.HelpFlag("--alias=<name>", "Generate completion for command alias", 14)
	w.HelpFlag("-h, --help", "Show this help", 14)

	w.HelpSection("Examples:")
	w.HelpExample("testops completion bash", "Generate bash completion")
	w.HelpExample("testops completion zsh", "Generate zsh completion")
	w.HelpExample("testops completion fish", "Generate fish completion")
	w.HelpExample("testops completion bash --alias=to", "Generate bash completion for alias 'to'")

	w.HelpSection("Installation:")
	w.Println("  Bash:  eval \"$(testops completion bash)\"")
	w.Println("  Zsh:   eval \"$(testops completion zsh)\"")
	w.Println("  Fish:  testops completion fish | source")
	w.Println("")
}

// builtinCommands lists the CLI commands with their descriptions, in help order.
var builtinCommands = [][2]string{
	{"upload", "Send test reports to every project"},
	{"serve", "Accept results from a framework adapter"},
	{"init", "Create a starter testops.yaml"},
	{"config", "Configuration utilities"},
	{"formats", "List supported report formats"},
	{"completion", "Generate shell completion"},
	{"version", "Show version information"},
	{"help", "Show help"},
}

var configSubcommands = [][2]string{
	{"validate", "Validate configuration"},
	{"show", "Print the effective configuration"},
}

// globalFlags returns the global CLI flags.
func globalFlags() []string {
	return []string{
		"--quiet",
		"--verbose",
		"--config",
		"--help",
		"--version",
	}
}

func commandNames() []string {
	names := make([]string, len(builtinCommands))
	for i, c := range builtinCommands {
		names[i] = c[0]
	}
	return names
}

// formatNames lists every format name and alias accepted by --format.
func formatNames() []string {
	registry := testparser.NewRegistry()
	var names []string
	for _, p := range registry.Parsers() {
		names = append(names, p.Name())
		names = append(names, registry.Aliases(p.Name())...)
	}
	return names
}

func aliasNote(shell, cmdName, hint string) string {
	if cmdName == "testops" {
		return fmt.Sprintf(`
# Alias support:
# If you use an alias (e.g., alias to="testops"), add completion for it:
#   %s
# Or generate completion directly for your alias:
#   testops completion %s --alias=to
`, hint, shell)
	}
	return fmt.Sprintf(`
# This completion is generated for the alias "%s"
# Make sure you have the alias defined: alias %s="testops"
`, cmdName, cmdName)
}

func generateBashCompletion(cmdName string) string {
	funcName := "_" + strings.ReplaceAll(cmdName, "-", "_") + "_completions"

	return fmt.Sprintf(`# testops bash completion
# Add to ~/.bashrc: eval "$(testops completion bash)"
%s
%s() {
    local cur prev words cword
    _init_completion || return

    local commands="%s"
    local flags="%s"
    local config_subcommands="validate show"
    local completion_shells="bash zsh fish"
    local formats="%s"

    case "${prev}" in
        %s)
            COMPREPLY=($(compgen -W "${commands} ${flags}" -- "${cur}"))
            return
            ;;
        config)
            COMPREPLY=($(compgen -W "${config_subcommands}" -- "${cur}"))
            return
            ;;
        completion)
            COMPREPLY=($(compgen -W "${completion_shells}" -- "${cur}"))
            return
            ;;
        -f|--format)
            COMPREPLY=($(compgen -W "${formats}" -- "${cur}"))
            return
            ;;
        -c|--config|--save)
            _filedir
            return
            ;;
    esac

    if [[ "${cur}" == -* ]]; then
        COMPREPLY=($(compgen -W "${flags} --format --dry-run --save --listen" -- "${cur}"))
        return
    fi

    # Report files after upload
    if [[ " ${words[*]} " == *" upload "* ]]; then
        _filedir
        return
    fi

    COMPREPLY=($(compgen -W "${commands}" -- "${cur}"))
}

complete -F %s %s
`, aliasNote("bash", cmdName, "complete -F _testops_completions to"), funcName,
		strings.Join(commandNames(), " "), strings.Join(globalFlags(), " "),
		strings.Join(formatNames(), " "), cmdName, funcName, cmdName)
}

func zshDescribe(items [][2]string) string {
	var sb strings.Builder
	for _, it := range items {
		sb.WriteString(fmt.Sprintf("        '%s:%s'\n", it[0], it[1]))
	}
	return sb.String()
}

func generateZshCompletion(cmdName string) string {
	funcName := "_" + strings.ReplaceAll(cmdName, "-", "_")

	return fmt.Sprintf(`#compdef %s
# testops zsh completion
# Add to ~/.zshrc: eval "$(testops completion zsh)"
%s
%s() {
    local -a commands flags config_subcommands completion_shells formats

    commands=(
%s    )

    flags=(
        '(-q --quiet)'{-q,--quiet}'[Minimal output]'
        '(-v --verbose)'{-v,--verbose}'[Maximum detail]'
        '(-c --config)'{-c,--config}'[Configuration file]:file:_files'
        '--help[Show help]'
        '--version[Show version]'
    )

    config_subcommands=(
%s    )

    completion_shells=(
        'bash:Generate bash completion'
        'zsh:Generate zsh completion'
        'fish:Generate fish completion'
    )

    formats=(%s)

    if (( CURRENT == 2 )); then
        _describe -t commands 'command' commands
        _arguments -s $flags[@]
        return
    fi

    case "${words[2]}" in
        config)
            _describe -t config-subcommands 'config subcommand' config_subcommands
            ;;
        completion)
            _describe -t shells 'shell' completion_shells
            ;;
        upload)
            _arguments -s \
                '(-f --format)'{-f,--format}'[Report format]:format:($formats)' \
                '--dry-run[Show routing without sending]' \
                '--save[Write parsed results]:file:_files' \
                '*:report:_files'
            ;;
        serve)
            _arguments -s \
                '(-l --listen)'{-l,--listen}'[Listen address]:address:' \
                '--save[Write received results]:file:_files'
            ;;
        *)
            _arguments -s $flags[@]
            ;;
    esac
}

compdef %s %s
`, cmdName, aliasNote("zsh", cmdName, "compdef _testops to"), funcName,
		zshDescribe(builtinCommands), zshDescribe(configSubcommands),
		strings.Join(formatNames(), " "), funcName, cmdName)
}

func generateFishCompletion(cmdName string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`# testops fish completion
# Add to config: testops completion fish | source
%s
# Disable file completion by default
complete -c %s -f

`, aliasNote("fish", cmdName, "complete -c to -w testops"), cmdName))

	for _, c := range builtinCommands {
		sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_use_subcommand' -a '%s' -d '%s'\n", cmdName, c[0], c[1]))
	}

	sb.WriteString("\n# Global flags\n")
	sb.WriteString(fmt.Sprintf("complete -c %s -s q -l quiet -d 'Minimal output'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -s v -l verbose -d 'Maximum detail'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -s c -l config -r -F -d 'Configuration file'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l help -d 'Show help'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -l version -d 'Show version'\n", cmdName))

	sb.WriteString("\n# upload\n")
	sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from upload' -F\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from upload' -s f -l format -xa '%s' -d 'Report format'\n",
		cmdName, strings.Join(formatNames(), " ")))
	sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from upload' -l dry-run -d 'Show routing without sending'\n", cmdName))
	sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from upload serve' -l save -r -F -d 'Write results file'\n", cmdName))

	sb.WriteString("\n# serve\n")
	sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from serve' -s l -l listen -x -d 'Listen address'\n", cmdName))

	sb.WriteString("\n# config subcommands\n")
	for _, c := range configSubcommands {
		sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from config' -a '%s' -d '%s'\n", cmdName, c[0], c[1]))
	}

	sb.WriteString("\n# completion subcommands\n")
	for _, shell := range []string{"bash", "zsh", "fish"} {
		sb.WriteString(fmt.Sprintf("complete -c %s -n '__fish_seen_subcommand_from completion' -a '%s' -d 'Generate %s completion'\n", cmdName, shell, shell))
	}

	return sb.String()
}
