// Package mapper decides which projects and cases a test result belongs to.
package mapper

import (
	"github.com/AndreyAkinshin/testops/internal/model"
)

// Target is one destination of a result: a project code and the case IDs
// to link within it. Empty IDs mean the result is sent unlinked.
type Target struct {
	Code string
	IDs  []int64
}

// Resolve returns the destinations of result.
//
// A mapped routing yields one target per entry whose code is in known and
// whose ID list is non-empty, in mapping order; other entries are dropped.
// Any other routing yields exactly one target for defaultCode carrying the
// legacy IDs, if any. Resolve has no side effects and returns fresh slices,
// so repeated calls on the same result produce equal output.
func Resolve(result model.TestResult, known map[string]bool, defaultCode string) []Target {
	if result.Routing.Kind() == model.RoutingMapped {
		var targets []Target
		for _, e := range result.Routing.Entries() {
			if !known[e.Code] || len(e.IDs) == 0 {
				continue
			}
			targets = append(targets, Target{Code: e.Code, IDs: e.IDs})
		}
		return targets
	}
	return []Target{{Code: defaultCode, IDs: result.Routing.IDs()}}
}

// Dropped returns the codes of a mapped routing that Resolve ignores
// because they are not configured.
func Dropped(result model.TestResult, known map[string]bool) []string {
	var codes []string
	for _, e := range result.Routing.Entries() {
		if !known[e.Code] {
			codes = append(codes, e.Code)
		}
	}
	return codes
}

// KnownSet builds the lookup set Resolve expects.
func KnownSet(codes ...string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}
