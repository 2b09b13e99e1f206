package mapper

import (
	"reflect"
	"testing"

	"github.com/AndreyAkinshin/testops/internal/model"
)

func resultWith(r model.Routing) model.TestResult {
	res := model.NewResult("t", model.StatusPassed)
	res.Routing = r
	return res
}

func TestResolve(t *testing.T) {
	t.Parallel()
	known := KnownSet("P1", "P2")

	tests := []struct {
		name    string
		routing model.Routing
		want    []Target
	}{
		{
			name:    "no routing goes to default unlinked",
			routing: model.Routing{},
			want:    []Target{{Code: "P1", IDs: nil}},
		},
		{
			name:    "legacy ids go to default",
			routing: model.Legacy(3, 4, 5),
			want:    []Target{{Code: "P1", IDs: []int64{3, 4, 5}}},
		},
		{
			name: "mapping in insertion order",
			routing: model.Mapped(
				model.ProjectIDs{Code: "P2", IDs: []int64{5}},
				model.ProjectIDs{Code: "P1", IDs: []int64{1, 2}},
			),
			want: []Target{{Code: "P2", IDs: []int64{5}}, {Code: "P1", IDs: []int64{1, 2}}},
		},
		{
			name: "unknown codes dropped",
			routing: model.Mapped(
				model.ProjectIDs{Code: "NOPE", IDs: []int64{9}},
				model.ProjectIDs{Code: "P2", IDs: []int64{5}},
			),
			want: []Target{{Code: "P2", IDs: []int64{5}}},
		},
		{
			name:    "only unknown codes resolve to nothing",
			routing: model.Mapped(model.ProjectIDs{Code: "X1", IDs: []int64{1}}, model.ProjectIDs{Code: "X2", IDs: []int64{2}}),
			want:    nil,
		},
		{
			name:    "empty id list dropped",
			routing: model.Mapped(model.ProjectIDs{Code: "P1", IDs: nil}, model.ProjectIDs{Code: "P2", IDs: []int64{7}}),
			want:    []Target{{Code: "P2", IDs: []int64{7}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(resultWith(tt.routing), known, "P1")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()
	known := KnownSet("P1", "P2")
	res := resultWith(model.Mapped(
		model.ProjectIDs{Code: "P1", IDs: []int64{1}},
		model.ProjectIDs{Code: "P2", IDs: []int64{5, 6}},
	))

	first := Resolve(res, known, "P1")
	first[0].IDs[0] = 42
	second := Resolve(res, known, "P1")
	third := Resolve(res, known, "P1")

	if !reflect.DeepEqual(second, third) {
		t.Errorf("Resolve() not stable: %+v vs %+v", second, third)
	}
	if second[0].IDs[0] != 1 {
		t.Error("mutating a previous Resolve() result leaked into the routing")
	}
}

func TestDropped(t *testing.T) {
	t.Parallel()
	res := resultWith(model.Mapped(
		model.ProjectIDs{Code: "P1", IDs: []int64{1}},
		model.ProjectIDs{Code: "LATER", IDs: []int64{2}},
	))

	got := Dropped(res, KnownSet("P1"))
	if !reflect.DeepEqual(got, []string{"LATER"}) {
		t.Errorf("Dropped() = %v", got)
	}
	if Dropped(resultWith(model.Legacy(1)), KnownSet()) != nil {
		t.Error("Dropped() for legacy routing should be nil")
	}
}

func TestParseTitle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		title     string
		wantTitle string
		want      model.Routing
	}{
		{
			name:      "no marker",
			title:     "user can log in",
			wantTitle: "user can log in",
			want:      model.Routing{},
		},
		{
			name:      "legacy single",
			title:     "user can log in (Qase ID: 12)",
			wantTitle: "user can log in",
			want:      model.Legacy(12),
		},
		{
			name:      "legacy list lowercase",
			title:     "user can log in (qase id: 3, 4,5)",
			wantTitle: "user can log in",
			want:      model.Legacy(3, 4, 5),
		},
		{
			name:      "multi project",
			title:     "checkout (Qase DEMO: 1,2) pays (Qase API: 7)",
			wantTitle: "checkout pays",
			want: model.Mapped(
				model.ProjectIDs{Code: "DEMO", IDs: []int64{1, 2}},
				model.ProjectIDs{Code: "API", IDs: []int64{7}},
			),
		},
		{
			name:      "mapping wins over legacy",
			title:     "x (Qase ID: 1) (Qase P2: 5)",
			wantTitle: "x",
			want:      model.Mapped(model.ProjectIDs{Code: "P2", IDs: []int64{5}}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTitle, got := ParseTitle(tt.title)
			if gotTitle != tt.wantTitle {
				t.Errorf("title = %q, want %q", gotTitle, tt.wantTitle)
			}
			if !got.Equal(tt.want) {
				t.Errorf("routing = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		tags []string
		want model.Routing
	}{
		{"none", []string{"@smoke", "@slow"}, model.Routing{}},
		{"legacy equals", []string{"@smoke", "@qase.id=3,4"}, model.Legacy(3, 4)},
		{"legacy colon", []string{"@QASE.ID:9"}, model.Legacy(9)},
		{"mapped", []string{"@qase.project_id.P1=1", "@qase.project_id.P2=5,6"}, model.Mapped(
			model.ProjectIDs{Code: "P1", IDs: []int64{1}},
			model.ProjectIDs{Code: "P2", IDs: []int64{5, 6}},
		)},
		{"mapped beats legacy", []string{"@qase.id=1", "@qase.project_id.P1=2"}, model.Mapped(
			model.ProjectIDs{Code: "P1", IDs: []int64{2}},
		)},
		{"garbage ids ignored", []string{"@qase.id=abc"}, model.Routing{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTags(tt.tags); !got.Equal(tt.want) {
				t.Errorf("ParseTags(%v) = %v, want %v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	t.Parallel()
	mapped := model.Mapped(model.ProjectIDs{Code: "P1", IDs: []int64{1}})
	legacyA := model.Legacy(2)
	legacyB := model.Legacy(3)

	if got := Merge(legacyA, mapped); !got.Equal(mapped) {
		t.Errorf("Merge(legacy, mapped) = %v", got)
	}
	if got := Merge(model.Routing{}, legacyB, legacyA); !got.Equal(legacyB) {
		t.Errorf("Merge(none, legacyB, legacyA) = %v", got)
	}
	if got := Merge(); got.Kind() != model.RoutingNone {
		t.Errorf("Merge() = %v", got)
	}
}
