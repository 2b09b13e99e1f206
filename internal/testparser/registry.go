package testparser

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
)

// Registry maps format names and aliases to their parsers.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry creates a new parser registry with all built-in parsers.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[string]Parser),
	}

	goJSON := &GoJSONParser{}
	goText := &GoParser{}
	playwright := &PlaywrightParser{}
	cucumber := &CucumberParser{}
	junit := &JUnitParser{}
	native := &NativeParser{}

	for _, p := range []Parser{goJSON, goText, playwright, cucumber, junit, native} {
		r.parsers[p.Name()] = p
	}

	// Aliases
	r.parsers["go-json"] = goJSON
	r.parsers["go"] = goText
	r.parsers["pw"] = playwright
	r.parsers["godog"] = cucumber
	r.parsers["xml"] = junit
	r.parsers["native"] = native
	r.parsers["results"] = native

	return r
}

// GetParser returns the parser for a format name or alias, or nil.
func (r *Registry) GetParser(format string) Parser {
	return r.parsers[strings.ToLower(strings.TrimSpace(format))]
}

// RegisterParser adds a custom parser for a format.
func (r *Registry) RegisterParser(format string, parser Parser) {
	r.parsers[strings.ToLower(format)] = parser
}

// Parsers returns every distinct parser sorted by name.
func (r *Registry) Parsers() []Parser {
	seen := make(map[string]bool)
	var out []Parser
	for _, p := range r.parsers {
		if seen[p.Name()] {
			continue
		}
		seen[p.Name()] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Aliases returns the alternative names of a format, sorted.
func (r *Registry) Aliases(name string) []string {
	var aliases []string
	for alias, p := range r.parsers {
		if p.Name() == name && alias != name {
			aliases = append(aliases, alias)
		}
	}
	sort.Strings(aliases)
	return aliases
}

// Detect guesses the format of a report from its file name and first bytes.
// It returns nil when the content matches no known format.
func (r *Registry) Detect(filename string, head []byte) Parser {
	head = bytes.TrimSpace(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")))
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case ext == ".xml" || bytes.HasPrefix(head, []byte("<")):
		return r.GetParser("junit")
	case bytes.HasPrefix(head, []byte("[")):
		return r.GetParser("cucumber")
	case bytes.HasPrefix(head, []byte("{")):
		line := head
		if i := bytes.IndexByte(head, '\n'); i >= 0 {
			line = head[:i]
		}
		switch {
		case bytes.Contains(line, []byte(`"Action"`)):
			return r.GetParser("gotest-json")
		case bytes.Contains(head, []byte(`"suites"`)), bytes.Contains(head, []byte(`"config"`)):
			return r.GetParser("playwright")
		case bytes.Contains(head, []byte(`"results"`)):
			return r.GetParser("testops")
		}
	case bytes.Contains(head, []byte("=== RUN")) || bytes.Contains(head, []byte("--- PASS:")) ||
		bytes.Contains(head, []byte("--- FAIL:")) || bytes.Contains(head, []byte("--- SKIP:")):
		return r.GetParser("gotest")
	}
	return nil
}
