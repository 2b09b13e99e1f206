package mapper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/AndreyAkinshin/testops/internal/model"
)

// Title markers:
//
//	login works (Qase ID: 12, 13)          legacy
//	login works (Qase DEMO: 12) (Qase API: 4)   mapped
var (
	titleMarkerRegex = regexp.MustCompile(`(?i)\(\s*qase\s+([a-z0-9_]+)\s*:\s*([0-9][0-9\s,]*)\)`)
	spaceRunRegex    = regexp.MustCompile(`\s{2,}`)
)

// Tag markers:
//
//	@qase.id=12,13            legacy
//	@qase.project_id.DEMO=12  mapped
var (
	legacyTagRegex = regexp.MustCompile(`(?i)^@?qase\.id[=:]\s*([0-9][0-9\s,]*)$`)
	mappedTagRegex = regexp.MustCompile(`(?i)^@?qase\.project_id\.([a-z0-9_]+)[=:]\s*([0-9][0-9\s,]*)$`)
)

// ParseTitle extracts case ID markers from a test title. It returns the
// title with markers removed and the routing they describe. Project
// markers win over legacy markers when both are present.
func ParseTitle(title string) (string, model.Routing) {
	matches := titleMarkerRegex.FindAllStringSubmatch(title, -1)
	if len(matches) == 0 {
		return title, model.Routing{}
	}

	var legacy []int64
	var entries []model.ProjectIDs
	for _, m := range matches {
		ids := parseIDList(m[2])
		if strings.EqualFold(m[1], "id") {
			legacy = append(legacy, ids...)
			continue
		}
		entries = append(entries, model.ProjectIDs{Code: m[1], IDs: ids})
	}

	clean := titleMarkerRegex.ReplaceAllString(title, "")
	clean = strings.TrimSpace(spaceRunRegex.ReplaceAllString(clean, " "))

	if len(entries) > 0 {
		return clean, model.Mapped(entries...)
	}
	return clean, model.Legacy(legacy...)
}

// ParseTags extracts case ID markers from framework tags (Cucumber, WDIO,
// Playwright annotations). Unrelated tags are ignored.
func ParseTags(tags []string) model.Routing {
	var legacy []int64
	var entries []model.ProjectIDs
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if m := mappedTagRegex.FindStringSubmatch(tag); m != nil {
			entries = append(entries, model.ProjectIDs{Code: m[1], IDs: parseIDList(m[2])})
			continue
		}
		if m := legacyTagRegex.FindStringSubmatch(tag); m != nil {
			legacy = append(legacy, parseIDList(m[1])...)
		}
	}
	if len(entries) > 0 {
		return model.Mapped(entries...)
	}
	if len(legacy) > 0 {
		return model.Legacy(legacy...)
	}
	return model.Routing{}
}

// Merge combines routings found in different places of the same test
// (title, tags, annotations). A mapping beats legacy IDs, legacy IDs beat
// nothing; on a tie the first argument wins.
func Merge(routings ...model.Routing) model.Routing {
	var legacy *model.Routing
	for i := range routings {
		r := routings[i]
		if r.IsZero() {
			continue
		}
		if r.Kind() == model.RoutingMapped {
			return r
		}
		if legacy == nil {
			legacy = &r
		}
	}
	if legacy != nil {
		return *legacy
	}
	return model.Routing{}
}

func parseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
