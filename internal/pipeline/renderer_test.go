package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/entorg/internal/model"
)

func TestNewRunReport(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	orig := nowFunc
	nowFunc = func() time.Time { return fixed }
	defer func() { nowFunc = orig }()

	r := NewRunReport("ranges")
	if _, err := uuid.Parse(r.ID); err != nil {
		t.Errorf("Expected a UUID run id, got %q", r.ID)
	}
	if !r.StartedAt.Equal(fixed) {
		t.Errorf("Unexpected start time %v", r.StartedAt)
	}
	if NewRunReport("ranges").ID == r.ID {
		t.Error("Expected distinct run ids")
	}
}

func TestRenderJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "run.json")
	report := NewRunReport("duplicates batch")
	report.Duplicates = []model.DuplicateReport{{
		Resource:    "new-resource",
		NewEntities: 2,
		Matches:     []model.DuplicateMatch{{NewEntity: 10, PriorEntity: 1}},
	}}

	if err := NewRenderer(&bytes.Buffer{}).RenderJSON(report, path); err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var back model.RunReport
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if back.ID != report.ID || back.FinishedAt.IsZero() {
		t.Errorf("Unexpected report %+v", back)
	}
	if m := back.Duplicates[0].MatchMap(); m[10] != 1 {
		t.Errorf("Unexpected matches %v", m)
	}
}

func TestRenderDatasets(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).RenderDatasets([]model.DatasetReport{
		{Pipeline: "tree", Status: model.StatusPublished, Ranges: 3, Entities: 40},
		{Pipeline: "conservation-area", Status: model.StatusWithheld, Overlaps: []model.Overlap{{
			Dataset:  "conservation-area",
			Current:  model.EntityRange{Dataset: "conservation-area", Organisation: "b", Minimum: 5, Maximum: 15},
			Previous: model.EntityRange{Dataset: "conservation-area", Organisation: "a", Minimum: 1, Maximum: 10},
		}}},
		{Pipeline: "brownfield-land", Status: model.StatusFailed, Error: "read lookup: empty table"},
	})

	out := buf.String()
	for _, want := range []string{
		"✓ tree: 3 ranges, 40 entities",
		"✗ conservation-area: withheld (1 overlaps, 0 conflicts)",
		"✗ brownfield-land: read lookup: empty table",
		"Published:  1",
		"Withheld:   1",
		"Failed:     1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestRenderDatasets_Partial(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).RenderDatasets([]model.DatasetReport{{
		Pipeline: "conservation-area",
		Status:   model.StatusPartial,
		Datasets: []model.DatasetOutcome{
			{Dataset: "conservation-area", Status: model.StatusWithheld, Conflicts: 1},
			{Dataset: "conservation-area-document", Status: model.StatusPublished, Ranges: 1},
		},
		Conflicts: []model.Conflict{{Dataset: "conservation-area", Entity: 9, Reason: "several local authorities"}},
	}})

	out := buf.String()
	for _, want := range []string{
		"⚠ conservation-area: 1 of 2 datasets published (0 overlaps, 1 conflicts)",
		"withheld conservation-area\n",
		"conflict conservation-area 9: several local authorities",
		"Partial:    1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestRenderDuplicates(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).RenderDuplicates([]model.DuplicateReport{
		{Resource: "r1", PreviousResource: "r0", NewEntities: 3, Matches: []model.DuplicateMatch{{NewEntity: 12, PriorEntity: 4}}},
		{Resource: "r2", Skipped: true},
		{Resource: "r3", Error: "boom"},
	})

	out := buf.String()
	for _, want := range []string{"r1: 1 of 3 new entities match r0", "12 -> 4", "r2: no previous resource", "r3: boom", "Matched:    1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, out)
		}
	}
}
