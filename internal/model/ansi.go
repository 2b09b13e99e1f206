package model

import "regexp"

// ansiPattern matches CSI and OSC escape sequences as emitted by test
// runners that colorize assertion output.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[@-Z\\-_]`)

// StripANSI removes terminal escape sequences from s.
func StripANSI(s string) string {
	if s == "" {
		return s
	}
	return ansiPattern.ReplaceAllString(s, "")
}
