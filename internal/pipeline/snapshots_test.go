package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/entorg/internal/dedupe"
	"github.com/ppiankov/entorg/internal/model"
)

const (
	previousCSV = "entity,entry-date,field,value\n" +
		"1,2020-01-01,name,Old Hall\n" +
		"1,2020-01-01,type,barn\n" +
		"1,2020-01-01,reference,OH1\n" +
		"2,2020-01-01,name,Mill\n"

	currentCSV = "entity,entry-date,field,value\n" +
		"1,2024-06-01,name,Old Hall\n" +
		"1,2024-06-01,type,barn\n" +
		"2,2024-06-01,name,Mill\n" +
		"10,2024-06-01,name,Old Hall\n" +
		"10,2024-06-01,type,barn\n" +
		"10,2024-06-01,reference,OH-NEW\n" +
		"11,2024-06-01,name,New Barn\n"
)

// reportingServer imitates the datasette and files hosts
func reportingServer(t *testing.T) (*httptest.Server, model.ReportingConfig) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/performance/reporting_historic_endpoints.csv", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("resource_end_date__notblank") != "1" || q.Get("_size") != "1" {
			t.Errorf("unexpected historic query %s", r.URL.RawQuery)
		}
		switch q.Get("endpoint__exact") {
		case "e1":
			_, _ = fmt.Fprint(w, "endpoint,resource,resource_end_date\ne1,old-resource,2024-05-01\n")
		default:
			_, _ = fmt.Fprint(w, "endpoint,resource,resource_end_date\n")
		}
	})
	mux.HandleFunc("/tree-preservation-order-collection/transformed/tree/old-resource.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, previousCSV)
	})
	mux.HandleFunc("/tree-preservation-order-collection/transformed/tree/new-resource.csv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, currentCSV)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, model.ReportingConfig{
		HistoricEndpointsURL: server.URL + "/performance/reporting_historic_endpoints.csv",
		TransformedURL:       server.URL + "/{collection}-collection/transformed/{dataset}/{resource}.csv",
	}
}

func TestSnapshotSource_PreviousResource(t *testing.T) {
	_, cfg := reportingServer(t)
	source := NewSnapshotSource(newTestFetcher(), cfg, "")

	got, err := source.PreviousResource(context.Background(), "e1")
	if err != nil {
		t.Fatalf("PreviousResource: %v", err)
	}
	if got != "old-resource" {
		t.Errorf("Expected old-resource, got %q", got)
	}

	got, err = source.PreviousResource(context.Background(), "never-superseded")
	if err != nil {
		t.Fatalf("PreviousResource: %v", err)
	}
	if got != "" {
		t.Errorf("Expected no previous resource, got %q", got)
	}
}

func TestSnapshotSource_TransformedURL(t *testing.T) {
	source := NewSnapshotSource(newTestFetcher(), model.DefaultConfig().Reporting, "")
	got := source.TransformedURL("conservation-area", "conservation-area", "abc123")
	want := "https://files.planning.data.gov.uk/conservation-area-collection/transformed/conservation-area/abc123.csv"
	if got != want {
		t.Errorf("TransformedURL = %q, want %q", got, want)
	}
}

func TestSnapshotSource_CurrentPrefersLocal(t *testing.T) {
	_, cfg := reportingServer(t)
	dir := t.TempDir()
	local := "entity,field,value\n99,name,Local\n"
	if err := os.WriteFile(filepath.Join(dir, "new-resource.csv"), []byte(local), 0644); err != nil {
		t.Fatal(err)
	}

	source := NewSnapshotSource(newTestFetcher(), cfg, dir)
	rows, err := source.Current(context.Background(), "tree-preservation-order", "tree", "new-resource")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if len(rows) != 1 || rows[0].Entity != 99 {
		t.Errorf("Expected local snapshot, got %+v", rows)
	}

	// missing locally falls back to the files host
	if err := os.Remove(filepath.Join(dir, "new-resource.csv")); err != nil {
		t.Fatal(err)
	}
	rows, err = source.Current(context.Background(), "tree-preservation-order", "tree", "new-resource")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if len(rows) != 7 {
		t.Errorf("Expected 7 remote rows, got %d", len(rows))
	}
}

func TestDuplicateChecker_CheckIssue(t *testing.T) {
	_, cfg := reportingServer(t)
	source := NewSnapshotSource(newTestFetcher(), cfg, "")
	checker := NewDuplicateChecker(source, dedupe.FromConfig(model.DefaultConfig().Fingerprint), nil)

	report := checker.CheckIssue(context.Background(), model.Issue{
		Resource:   "new-resource",
		Endpoint:   "e1",
		Collection: "tree-preservation-order",
		Pipeline:   "tree",
	})

	if report.Error != "" {
		t.Fatalf("Unexpected error: %s", report.Error)
	}
	if report.PreviousResource != "old-resource" {
		t.Errorf("Expected previous old-resource, got %q", report.PreviousResource)
	}
	if report.NewEntities != 2 {
		t.Errorf("Expected 2 new entities, got %d", report.NewEntities)
	}
	matches := report.MatchMap()
	if len(matches) != 1 || matches[10] != 1 {
		t.Errorf("Expected {10: 1}, got %v", matches)
	}
}

func TestDuplicateChecker_CheckIssueNoPrevious(t *testing.T) {
	_, cfg := reportingServer(t)
	source := NewSnapshotSource(newTestFetcher(), cfg, "")
	checker := NewDuplicateChecker(source, dedupe.FromConfig(model.DefaultConfig().Fingerprint), nil)

	report := checker.CheckIssue(context.Background(), model.Issue{
		Resource:   "new-resource",
		Endpoint:   "e2",
		Collection: "tree-preservation-order",
		Pipeline:   "tree",
	})
	if report.Error != "" {
		t.Fatalf("Unexpected error: %s", report.Error)
	}
	if !report.Skipped {
		t.Error("Expected check to be skipped without a previous resource")
	}
}

func TestDuplicateChecker_CheckIssues(t *testing.T) {
	_, cfg := reportingServer(t)
	source := NewSnapshotSource(newTestFetcher(), cfg, "")
	checker := NewDuplicateChecker(source, dedupe.FromConfig(model.DefaultConfig().Fingerprint), nil)

	issues := []model.Issue{
		{Resource: "new-resource", Endpoint: "e1", Collection: "tree-preservation-order", Pipeline: "tree"},
		{Resource: "missing-resource", Endpoint: "e1", Collection: "tree-preservation-order", Pipeline: "tree"},
		{Resource: "new-resource", Endpoint: "e2", Collection: "tree-preservation-order", Pipeline: "tree"},
	}
	reports := checker.CheckIssues(context.Background(), issues, 2)

	if len(reports) != 3 {
		t.Fatalf("Expected 3 reports, got %d", len(reports))
	}
	if len(reports[0].Matches) != 1 {
		t.Errorf("Expected a match for the first issue, got %+v", reports[0])
	}
	if reports[1].Error == "" {
		t.Error("Expected an error for the missing resource")
	}
	if !reports[2].Skipped {
		t.Error("Expected the third issue to be skipped")
	}
}

func TestDuplicateChecker_CheckFiles(t *testing.T) {
	dir := t.TempDir()
	current := filepath.Join(dir, "new.csv")
	previous := filepath.Join(dir, "old.csv")
	if err := os.WriteFile(current, []byte(currentCSV), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(previous, []byte(previousCSV), 0644); err != nil {
		t.Fatal(err)
	}

	checker := NewDuplicateChecker(nil, dedupe.FromConfig(model.DefaultConfig().Fingerprint), nil)

	report := checker.CheckFiles(current, previous)
	if report.Error != "" {
		t.Fatalf("Unexpected error: %s", report.Error)
	}
	if report.Resource != "new" || report.PreviousResource != "old" {
		t.Errorf("Unexpected resource names %q %q", report.Resource, report.PreviousResource)
	}
	if m := report.MatchMap(); len(m) != 1 || m[10] != 1 {
		t.Errorf("Expected {10: 1}, got %v", m)
	}

	skipped := checker.CheckFiles(current, "")
	if !skipped.Skipped {
		t.Error("Expected skip without a previous file")
	}
}
