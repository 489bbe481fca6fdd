package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ppiankov/entorg/internal/dedupe"
	"github.com/ppiankov/entorg/internal/logger"
	"github.com/ppiankov/entorg/internal/model"
	"github.com/ppiankov/entorg/internal/worker"
)

// DuplicateChecker compares newly collected resources with the resource
// each one superseded. Its findings are advisory and never block a run.
type DuplicateChecker struct {
	source  *SnapshotSource
	matcher *dedupe.Matcher
	log     *logger.Logger
}

// NewDuplicateChecker creates a checker. source may be nil for file-only checks.
func NewDuplicateChecker(source *SnapshotSource, fp *dedupe.Fingerprinter, log *logger.Logger) *DuplicateChecker {
	if log == nil {
		log = logger.Nop()
	}
	return &DuplicateChecker{
		source:  source,
		matcher: dedupe.NewMatcher(fp),
		log:     log,
	}
}

// CheckFiles compares two snapshot files. An empty previousPath skips the check.
func (c *DuplicateChecker) CheckFiles(currentPath, previousPath string) model.DuplicateReport {
	report := model.DuplicateReport{Resource: resourceName(currentPath)}

	current, err := LoadSnapshotFile(currentPath)
	if err != nil {
		report.Error = err.Error()
		return report
	}

	var previous []model.SnapshotRow
	if previousPath != "" {
		report.PreviousResource = resourceName(previousPath)
		previous, err = LoadSnapshotFile(previousPath)
		if err != nil {
			report.Error = err.Error()
			return report
		}
		if previous == nil {
			previous = []model.SnapshotRow{}
		}
	}

	c.apply(&report, c.matcher.Match(current, previous))
	return report
}

// CheckIssue runs the duplicate check for one unknown-entity issue
func (c *DuplicateChecker) CheckIssue(ctx context.Context, issue model.Issue) model.DuplicateReport {
	current, err := c.source.Current(ctx, issue.Collection, issue.Pipeline, issue.Resource)
	if err != nil {
		c.log.Warn("current snapshot unavailable", "resource", issue.Resource, "error", err)
		report := issueReport(issue)
		report.Error = err.Error()
		return report
	}
	return c.CheckSnapshot(ctx, current, issue)
}

// CheckSnapshot compares an already loaded current snapshot with the resource
// last superseded at the issue's endpoint
func (c *DuplicateChecker) CheckSnapshot(ctx context.Context, current []model.SnapshotRow, issue model.Issue) model.DuplicateReport {
	report := issueReport(issue)
	log := c.log.With("resource", issue.Resource, "endpoint", issue.Endpoint)

	prevResource, previous, err := c.source.Previous(ctx, issue.Endpoint, issue.Collection, issue.Pipeline)
	if err != nil {
		report.Error = err.Error()
		log.Warn("previous snapshot unavailable", "error", err)
		return report
	}
	report.PreviousResource = prevResource

	c.apply(&report, c.matcher.Match(current, previous))
	if len(report.Matches) > 0 {
		log.Info("possible duplicate entities", "matches", len(report.Matches), "previous", prevResource)
	}
	return report
}

func issueReport(issue model.Issue) model.DuplicateReport {
	return model.DuplicateReport{
		Resource:   issue.Resource,
		Endpoint:   issue.Endpoint,
		Dataset:    issue.Pipeline,
		Collection: issue.Collection,
	}
}

// CheckIssues checks each issue on a pool of workers, reporting in issue order
func (c *DuplicateChecker) CheckIssues(ctx context.Context, issues []model.Issue, workers int) []model.DuplicateReport {
	outcomes := worker.Map(ctx, workers, issues, func(ctx context.Context, issue model.Issue) (model.DuplicateReport, error) {
		if err := ctx.Err(); err != nil {
			return model.DuplicateReport{}, err
		}
		return c.CheckIssue(ctx, issue), nil
	})

	reports := make([]model.DuplicateReport, len(issues))
	for i, o := range outcomes {
		if o.Err != nil {
			reports[i] = issueReport(issues[i])
			reports[i].Error = o.Err.Error()
			continue
		}
		reports[i] = o.Value
	}
	return reports
}

func (c *DuplicateChecker) apply(report *model.DuplicateReport, res *dedupe.Result) {
	report.Skipped = res.Skipped
	report.NewEntities = len(res.NewEntities)
	report.Matches = res.Matches
}

func resourceName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
