package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ppiankov/entorg/internal/compact"
	"github.com/ppiankov/entorg/internal/logger"
	"github.com/ppiankov/entorg/internal/lookup"
	"github.com/ppiankov/entorg/internal/model"
	"github.com/ppiankov/entorg/internal/resolve"
	"github.com/ppiankov/entorg/internal/table"
	"github.com/ppiankov/entorg/internal/validate"
	"github.com/ppiankov/entorg/internal/worker"
)

// ErrNoLookups is returned when discovery finds no lookup tables
var ErrNoLookups = errors.New("no lookup tables found")

// Discover returns the lookup tables under root in path order. root may be a
// lookup file, a pipeline directory, or a directory of pipeline directories.
func Discover(root, fileName string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("read root: %w", err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	direct := filepath.Join(root, fileName)
	if _, err := os.Stat(direct); err == nil {
		return []string{direct}, nil
	}

	paths, err := filepath.Glob(filepath.Join(root, "*", fileName))
	if err != nil {
		return nil, fmt.Errorf("glob lookups: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoLookups)
	}
	sort.Strings(paths)
	return paths, nil
}

// RangeBuilder turns one pipeline's lookup table into its published range table
type RangeBuilder struct {
	loader   *lookup.Loader
	resolver *resolve.Resolver
	names    model.LookupConfig
	dryRun   bool
	log      *logger.Logger
}

// NewRangeBuilder creates a builder. adjudicator may be nil.
func NewRangeBuilder(cfg *model.Config, adjudicator resolve.Adjudicator, log *logger.Logger) *RangeBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &RangeBuilder{
		loader:   lookup.NewLoader(cfg.Organisations, cfg.Lookup.Datasets),
		resolver: resolve.NewResolver(resolve.NewPolicy(cfg.Organisations), adjudicator),
		names:    cfg.Lookup,
		log:      log,
	}
}

// DryRun stops the builder writing any files
func (b *RangeBuilder) DryRun(on bool) *RangeBuilder {
	b.dryRun = on
	return b
}

// BuildAll builds every lookup on a pool of workers. Reports follow paths order;
// a failing pipeline never stops the others.
func (b *RangeBuilder) BuildAll(ctx context.Context, paths []string, workers int) []model.DatasetReport {
	outcomes := worker.Map(ctx, workers, paths, func(ctx context.Context, path string) (model.DatasetReport, error) {
		if err := ctx.Err(); err != nil {
			return model.DatasetReport{}, err
		}
		return b.Build(path), nil
	})

	reports := make([]model.DatasetReport, len(paths))
	for i, o := range outcomes {
		if o.Err != nil {
			reports[i] = model.DatasetReport{
				Pipeline: pipelineName(paths[i]),
				Source:   paths[i],
				Status:   model.StatusFailed,
				Error:    o.Err.Error(),
			}
			continue
		}
		reports[i] = o.Value
	}
	return reports
}

// Build resolves, compacts and validates one lookup table, then decides each
// dataset on its own. Publishable datasets replace their rows in the range
// table beside the lookup; withheld datasets keep the rows already published
// and are described in the overlap and conflict reports.
func (b *RangeBuilder) Build(path string) model.DatasetReport {
	report := model.DatasetReport{
		Pipeline: pipelineName(path),
		Source:   path,
	}
	log := b.log.With("pipeline", report.Pipeline)

	fail := func(err error) model.DatasetReport {
		report.Status = model.StatusFailed
		report.Error = err.Error()
		log.Error("range build failed", "error", err)
		return report
	}

	loaded, err := b.loader.LoadFile(path)
	if err != nil {
		return fail(err)
	}
	report.RowsRead = loaded.Stats.Read
	report.RowsKept = loaded.Stats.Kept
	log.Debug("lookup loaded",
		"read", loaded.Stats.Read,
		"kept", loaded.Stats.Kept,
		"missing_organisation", loaded.Stats.MissingOrganisation,
		"bad_entity", loaded.Stats.BadEntity,
		"aliased", loaded.Stats.Aliased)

	if len(loaded.Rows) == 0 {
		// an empty table must never replace a published one
		report.Status = model.StatusSkipped
		log.Info("no owned entities, skipping")
		return report
	}

	byDataset := lookup.ByDataset(loaded.Rows)
	datasets := make([]string, 0, len(byDataset))
	for ds := range byDataset {
		datasets = append(datasets, ds)
	}
	sort.Strings(datasets)

	conflicts := make(map[string]int)
	var resolved []model.ResolvedOwnership
	for _, ds := range datasets {
		res, err := b.resolver.ResolveDataset(ds, byDataset[ds])
		if err != nil {
			return fail(fmt.Errorf("resolve %s: %w", ds, err))
		}
		resolved = append(resolved, res.Resolved...)
		report.Conflicts = append(report.Conflicts, res.Conflicts...)
		report.Adjudicated += res.Adjudicated
		conflicts[ds] = len(res.Conflicts)
	}
	report.Entities = len(resolved)

	ranges := compact.Compact(resolved)
	report.Ranges = len(ranges)

	entities := make(map[string]int)
	for _, r := range resolved {
		entities[r.Dataset]++
	}

	var fresh []model.EntityRange
	published := make(map[string]bool)
	withheld := make(map[string]bool)
	byRange := validate.ByDataset(ranges)
	for _, ds := range datasets {
		overlaps := validate.Check(byRange[ds]).Overlaps
		report.Overlaps = append(report.Overlaps, overlaps...)

		outcome := model.DatasetOutcome{
			Dataset:   ds,
			Entities:  entities[ds],
			Ranges:    len(byRange[ds]),
			Overlaps:  len(overlaps),
			Conflicts: conflicts[ds],
		}
		if outcome.Publishable() {
			outcome.Status = model.StatusPublished
			published[ds] = true
			fresh = append(fresh, byRange[ds]...)
		} else {
			outcome.Status = model.StatusWithheld
			withheld[ds] = true
			log.Warn("dataset withheld", "dataset", ds, "overlaps", outcome.Overlaps, "conflicts", outcome.Conflicts)
		}
		report.Datasets = append(report.Datasets, outcome)
	}

	switch {
	case len(withheld) == 0:
		report.Status = model.StatusPublished
	case len(published) == 0:
		report.Status = model.StatusWithheld
	default:
		report.Status = model.StatusPartial
	}

	if b.dryRun {
		return report
	}

	dir := filepath.Dir(path)
	if err := b.writeProblems(dir, &report); err != nil {
		return fail(err)
	}
	if len(fresh) == 0 {
		log.Warn("range table withheld", "overlaps", len(report.Overlaps), "conflicts", len(report.Conflicts))
		return report
	}

	out := filepath.Join(dir, b.names.OutputName)
	kept, err := b.retained(out, published, withheld)
	if err != nil {
		return fail(err)
	}
	merged := compact.Merge(append(kept, fresh...))
	if err := table.WriteFile(out, table.RangeHeader, table.RangeRows(merged)); err != nil {
		return fail(fmt.Errorf("write ranges: %w", err))
	}
	report.Outputs = append(report.Outputs, out)

	log.Info("range table published",
		"datasets", len(published),
		"withheld", len(withheld),
		"ranges", len(fresh),
		"retained", len(kept))
	return report
}

// retained returns the published rows this build leaves in place: rows of
// withheld datasets and, under a dataset filter, rows of datasets the filter
// excluded. Without a filter, datasets gone from the lookup are dropped.
func (b *RangeBuilder) retained(path string, published, withheld map[string]bool) ([]model.EntityRange, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open published ranges: %w", err)
	}
	defer func() { _ = f.Close() }()

	current, err := table.ReadRanges(f)
	if errors.Is(err, table.ErrEmptyTable) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read published ranges %s: %w", path, err)
	}

	filtered := len(b.names.Datasets) > 0
	var kept []model.EntityRange
	for _, r := range current {
		if published[r.Dataset] {
			continue
		}
		if withheld[r.Dataset] || filtered {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// writeProblems writes the overlap and conflict reports of this build and
// removes reports left by an earlier run that no longer apply
func (b *RangeBuilder) writeProblems(dir string, report *model.DatasetReport) error {
	reports := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{b.names.OverlapName, table.OverlapHeader, table.OverlapRows(report.Overlaps)},
		{b.names.ConflictName, table.ConflictHeader, table.ConflictRows(report.Conflicts)},
	}

	for _, r := range reports {
		out := filepath.Join(dir, r.name)
		if len(r.rows) == 0 {
			if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
				b.log.Warn("remove stale report", "file", out, "error", err)
			}
			continue
		}
		if err := table.WriteFile(out, r.header, r.rows); err != nil {
			return fmt.Errorf("write %s: %w", r.name, err)
		}
		report.Outputs = append(report.Outputs, out)
	}
	return nil
}

// ValidateFile checks an existing range table for overlaps
func ValidateFile(path string) ([]model.EntityRange, validate.Verdict, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, validate.Verdict{}, fmt.Errorf("open range table: %w", err)
	}
	defer func() { _ = f.Close() }()

	ranges, err := table.ReadRanges(f)
	if err != nil {
		return nil, validate.Verdict{}, fmt.Errorf("%s: %w", path, err)
	}
	return ranges, validate.Check(ranges), nil
}

func pipelineName(path string) string {
	return filepath.Base(filepath.Dir(path))
}
