package cli

import (
	"strings"
	"testing"
)

func TestCmdCompletion_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no args", []string{}, 2},
		{"bash", []string{"bash"}, 0},
		{"zsh", []string{"zsh"}, 0},
		{"fish", []string{"fish"}, 0},
		{"unknown shell", []string{"powershell"}, 2},
		{"short help", []string{"-h"}, 0},
		{"long help", []string{"--help"}, 0},
		{"alias", []string{"bash", "--alias=to"}, 0},
		{"alias without value", []string{"--alias", "bash"}, 2},
		{"unknown flag", []string{"--unknown", "bash"}, 2},
		{"two shells", []string{"bash", "zsh"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cmdCompletion(tt.args); got != tt.want {
				t.Errorf("cmdCompletion(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestCommandNames_MatchRouter(t *testing.T) {
	t.Parallel()
	want := []string{"upload", "serve", "init", "config", "formats", "completion", "version", "help"}
	got := commandNames()
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("commandNames() = %v, want %v", got, want)
	}
}

func TestFormatNames_IncludesAliases(t *testing.T) {
	t.Parallel()
	names := strings.Join(formatNames(), " ")
	for _, want := range []string{"junit", "xml", "gotest-json", "go-json", "playwright", "pw", "cucumber", "testops"} {
		if !strings.Contains(" "+names+" ", " "+want+" ") {
			t.Errorf("formatNames() missing %q: %s", want, names)
		}
	}
}

func TestGenerateCompletion_Content(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		generate func(string) string
		contains []string
	}{
		{
			name:     "bash",
			generate: generateBashCompletion,
			contains: []string{
				"complete -F _testops_completions testops",
				`config_subcommands="validate show"`,
				"upload serve init config formats",
				"-f|--format)",
			},
		},
		{
			name:     "zsh",
			generate: generateZshCompletion,
			contains: []string{
				"#compdef testops",
				"compdef _testops testops",
				"'upload:Send test reports to every project'",
				"'show:Print the effective configuration'",
			},
		},
		{
			name:     "fish",
			generate: generateFishCompletion,
			contains: []string{
				"complete -c testops -f",
				"-a 'serve' -d 'Accept results from a framework adapter'",
				"__fish_seen_subcommand_from config' -a 'validate'",
				"-l dry-run",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			script := tt.generate("testops")
			for _, want := range tt.contains {
				if !strings.Contains(script, want) {
					t.Errorf("%s completion missing %q", tt.name, want)
				}
			}
			if strings.Contains(script, "targets") {
				t.Errorf("%s completion lists a command testops does not have", tt.name)
			}
		})
	}
}

func TestGenerateCompletion_Alias(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		generate func(string) string
		want     string
	}{
		{"bash", generateBashCompletion, "complete -F _to_completions to"},
		{"zsh", generateZshCompletion, "compdef _to to"},
		{"fish", generateFishCompletion, "complete -c to -f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			script := tt.generate("to")
			if !strings.Contains(script, tt.want) {
				t.Errorf("alias completion missing %q", tt.want)
			}
			if !strings.Contains(script, `generated for the alias "to"`) {
				t.Error("alias completion missing alias note")
			}
		})
	}
}
