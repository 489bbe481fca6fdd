package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/entorg/internal/model"
)

const rule = "═══════════════════════════════════════════════════════════"

// nowFunc is swapped out by tests
var nowFunc = func() time.Time { return time.Now().UTC() }

// NewRunReport starts the report for one invocation
func NewRunReport(command string) *model.RunReport {
	return &model.RunReport{
		ID:        uuid.NewString(),
		Command:   command,
		StartedAt: nowFunc(),
	}
}

// Renderer writes run reports and console summaries
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer printing summaries to out
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

// Banner prints a titled section header
func (r *Renderer) Banner(title string) {
	fmt.Fprintf(r.out, "\n%s\n  %s\n%s\n\n", rule, title, rule)
}

// RenderJSON finishes report and writes it to path
func (r *Renderer) RenderJSON(report *model.RunReport, path string) error {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = nowFunc()
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// RenderDatasets prints one line per pipeline and the totals
func (r *Renderer) RenderDatasets(reports []model.DatasetReport) {
	counts := make(map[model.DatasetStatus]int)
	for _, d := range reports {
		counts[d.Status]++
		switch d.Status {
		case model.StatusPublished:
			fmt.Fprintf(r.out, "✓ %s: %d ranges, %d entities\n", d.Pipeline, d.Ranges, d.Entities)
		case model.StatusWithheld:
			fmt.Fprintf(r.out, "✗ %s: withheld (%d overlaps, %d conflicts)\n", d.Pipeline, len(d.Overlaps), len(d.Conflicts))
			r.renderProblems(d)
		case model.StatusPartial:
			var published int
			for _, o := range d.Datasets {
				if o.Status == model.StatusPublished {
					published++
				}
			}
			fmt.Fprintf(r.out, "⚠ %s: %d of %d datasets published (%d overlaps, %d conflicts)\n",
				d.Pipeline, published, len(d.Datasets), len(d.Overlaps), len(d.Conflicts))
			for _, o := range d.Datasets {
				if o.Status == model.StatusWithheld {
					fmt.Fprintf(r.out, "    withheld %s\n", o.Dataset)
				}
			}
			r.renderProblems(d)
		case model.StatusSkipped:
			fmt.Fprintf(r.out, "- %s: skipped, no owned entities\n", d.Pipeline)
		case model.StatusFailed:
			fmt.Fprintf(r.out, "✗ %s: %s\n", d.Pipeline, d.Error)
		}
	}

	r.Banner("Ranges Complete")
	fmt.Fprintf(r.out, "  Pipelines:  %d\n", len(reports))
	fmt.Fprintf(r.out, "  Published:  %d\n", counts[model.StatusPublished])
	fmt.Fprintf(r.out, "  Partial:    %d\n", counts[model.StatusPartial])
	fmt.Fprintf(r.out, "  Withheld:   %d\n", counts[model.StatusWithheld])
	fmt.Fprintf(r.out, "  Skipped:    %d\n", counts[model.StatusSkipped])
	fmt.Fprintf(r.out, "  Failed:     %d\n", counts[model.StatusFailed])
	fmt.Fprintln(r.out)
}

func (r *Renderer) renderProblems(d model.DatasetReport) {
	for _, o := range d.Overlaps {
		fmt.Fprintf(r.out, "    overlap %s\n", o)
	}
	for _, c := range d.Conflicts {
		fmt.Fprintf(r.out, "    conflict %s %d: %s\n", c.Dataset, c.Entity, c.Reason)
	}
}

// RenderDuplicates prints the matches found for each resource
func (r *Renderer) RenderDuplicates(reports []model.DuplicateReport) {
	var matched, skipped, failed int
	for _, d := range reports {
		switch {
		case d.Error != "":
			failed++
			fmt.Fprintf(r.out, "✗ %s: %s\n", d.Resource, d.Error)
		case d.Skipped:
			skipped++
			fmt.Fprintf(r.out, "- %s: no previous resource\n", d.Resource)
		case len(d.Matches) == 0:
			fmt.Fprintf(r.out, "✓ %s: %d new entities, no duplicates\n", d.Resource, d.NewEntities)
		default:
			matched++
			fmt.Fprintf(r.out, "⚠ %s: %d of %d new entities match %s\n", d.Resource, len(d.Matches), d.NewEntities, d.PreviousResource)
			m := d.MatchMap()
			keys := make([]int64, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
			for _, k := range keys {
				fmt.Fprintf(r.out, "    %d -> %d\n", k, m[k])
			}
		}
	}

	r.Banner("Duplicate Check Complete")
	fmt.Fprintf(r.out, "  Resources:  %d\n", len(reports))
	fmt.Fprintf(r.out, "  Matched:    %d\n", matched)
	fmt.Fprintf(r.out, "  Skipped:    %d\n", skipped)
	fmt.Fprintf(r.out, "  Failed:     %d\n", failed)
	fmt.Fprintln(r.out)
}
