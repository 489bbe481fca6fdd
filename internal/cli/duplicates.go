package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/entorg/internal/dedupe"
	"github.com/ppiankov/entorg/internal/model"
	"github.com/ppiankov/entorg/internal/pipeline"
)

var (
	dupPrevious       string
	dupEndpoint       string
	dupCollection     string
	dupDataset        string
	dupScope          string
	dupIssues         string
	dupProvisionRules string
	dupTransformedDir string
	dupWorkers        int
	dupReport         string
	dupTimeout        time.Duration
)

// duplicatesCmd represents the duplicates command
var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find new entities that repeat existing content",
	Long: `Duplicates compares the entities introduced by a newly collected resource
with the resource it superseded. A new entity whose fields, ignoring
reference and entry-date, equal those of a prior entity is reported as a
likely duplicate. Findings are advisory and never block a run.`,
}

var duplicatesCheckCmd = &cobra.Command{
	Use:   "check <current.csv>",
	Short: "Check one transformed resource against its predecessor",
	Long: `Check compares a transformed resource with the previous one, given either
as a local file (--previous) or looked up for the endpoint on the reporting
service (--endpoint, --collection, --dataset).

Matches are printed to stdout as JSON: {"<new entity>": <prior entity>}.

Example:
  entorg duplicates check new.csv --previous old.csv
  entorg duplicates check var/transformed/abc123.csv --endpoint e1f2 --collection tree-preservation-order --dataset tree`,
	Args: cobra.ExactArgs(1),
	RunE: runDuplicatesCheck,
}

var duplicatesBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Check every unknown-entity issue in a scope",
	Long: `Batch reads the issue summary, keeps "unknown entity" issues in the given
scope (odp, mandated or single-source; title-boundary is always skipped) and
checks each resource against the resource its endpoint last superseded.

Current snapshots are read from --transformed-dir/<resource>.csv when present,
otherwise from the files host.

Example:
  entorg duplicates batch --scope mandated --provision-rules specification/provision-rule.csv
  entorg duplicates batch --scope odp --issues issue_summary.csv --transformed-dir var/transformed --report dup.json`,
	Args: cobra.NoArgs,
	RunE: runDuplicatesBatch,
}

func init() {
	rootCmd.AddCommand(duplicatesCmd)
	duplicatesCmd.AddCommand(duplicatesCheckCmd)
	duplicatesCmd.AddCommand(duplicatesBatchCmd)

	duplicatesCmd.PersistentFlags().StringVar(&dupReport, "report", "", "write a JSON run report to this path")
	duplicatesCmd.PersistentFlags().DurationVar(&dupTimeout, "timeout", 30*time.Minute, "total timeout for the run")

	duplicatesCheckCmd.Flags().StringVar(&dupPrevious, "previous", "", "previous transformed resource file")
	duplicatesCheckCmd.Flags().StringVar(&dupEndpoint, "endpoint", "", "endpoint hash used to find the previous resource")
	duplicatesCheckCmd.Flags().StringVar(&dupCollection, "collection", "", "collection of the endpoint")
	duplicatesCheckCmd.Flags().StringVar(&dupDataset, "dataset", "", "dataset (pipeline) of the resource")

	duplicatesBatchCmd.Flags().StringVar(&dupScope, "scope", "", "issue scope: odp, mandated or single-source (required)")
	duplicatesBatchCmd.Flags().StringVar(&dupIssues, "issues", "", "issue summary file or URL (default from config)")
	duplicatesBatchCmd.Flags().StringVar(&dupProvisionRules, "provision-rules", "", "provision-rule.csv used to scope issues")
	duplicatesBatchCmd.Flags().StringVar(&dupTransformedDir, "transformed-dir", "", "directory of current transformed resources")
	duplicatesBatchCmd.Flags().IntVar(&dupWorkers, "workers", 0, "resources checked in parallel (default from config)")
	_ = duplicatesBatchCmd.MarkFlagRequired("scope")
}

func runDuplicatesCheck(cmd *cobra.Command, args []string) error {
	current := args[0]
	if dupPrevious != "" && dupEndpoint != "" {
		return fmt.Errorf("use either --previous or --endpoint, not both")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dupTimeout)
	defer cancel()

	fp := dedupe.FromConfig(cfg.Fingerprint)
	var result model.DuplicateReport

	if dupEndpoint != "" {
		if dupCollection == "" || dupDataset == "" {
			return fmt.Errorf("--endpoint needs --collection and --dataset")
		}
		fetcher := pipeline.FetcherFromConfig(cfg, log)
		source := pipeline.NewSnapshotSource(fetcher, cfg.Reporting, "")
		checker := pipeline.NewDuplicateChecker(source, fp, log)

		rows, err := pipeline.LoadSnapshotFile(current)
		if err != nil {
			return err
		}
		result = checker.CheckSnapshot(ctx, rows, model.Issue{
			Resource:   strings.TrimSuffix(filepath.Base(current), filepath.Ext(current)),
			Endpoint:   dupEndpoint,
			Collection: dupCollection,
			Pipeline:   dupDataset,
		})
	} else {
		checker := pipeline.NewDuplicateChecker(nil, fp, log)
		result = checker.CheckFiles(current, dupPrevious)
	}

	run := pipeline.NewRunReport("duplicates check")
	run.Duplicates = []model.DuplicateReport{result}
	if err := finishDuplicates(run); err != nil {
		return err
	}
	if result.Error != "" {
		return fmt.Errorf("duplicate check: %s", result.Error)
	}

	return printMatches(result)
}

func runDuplicatesBatch(cmd *cobra.Command, args []string) error {
	scope := strings.ToLower(strings.TrimSpace(dupScope))
	if !model.ValidScope(scope) {
		return fmt.Errorf("'%s' isn't a valid scope, use odp, mandated or single-source", dupScope)
	}
	if dupWorkers > 0 {
		cfg.Concurrency.Workers = dupWorkers
	}

	ctx, cancel := context.WithTimeout(context.Background(), dupTimeout)
	defer cancel()

	rules, err := pipeline.LoadProvisionRules(dupProvisionRules)
	if err != nil {
		return err
	}

	fetcher := pipeline.FetcherFromConfig(cfg, log)
	issues, err := loadIssues(ctx, fetcher, rules)
	if err != nil {
		return err
	}
	selected := pipeline.FilterIssues(issues, scope)

	banner("entorg Duplicate Check")
	fmt.Fprintf(os.Stderr, "  Scope:      %s\n", scope)
	fmt.Fprintf(os.Stderr, "  Issues:     %d (%d in scope)\n", len(issues), len(selected))
	fmt.Fprintf(os.Stderr, "  Workers:    %d\n", cfg.Concurrency.Workers)
	fmt.Fprintln(os.Stderr)

	source := pipeline.NewSnapshotSource(fetcher, cfg.Reporting, dupTransformedDir)
	checker := pipeline.NewDuplicateChecker(source, dedupe.FromConfig(cfg.Fingerprint), log)

	run := pipeline.NewRunReport("duplicates batch")
	run.Duplicates = checker.CheckIssues(ctx, selected, cfg.Concurrency.Workers)
	return finishDuplicates(run)
}

func loadIssues(ctx context.Context, fetcher *pipeline.Fetcher, rules pipeline.ScopeRules) ([]model.Issue, error) {
	source := dupIssues
	if source == "" {
		source = cfg.Reporting.IssueSummaryURL
	}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return pipeline.FetchIssues(ctx, fetcher, source, rules)
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open issue summary: %w", err)
	}
	defer func() { _ = f.Close() }()
	return pipeline.ReadIssues(f, rules)
}

func finishDuplicates(run *model.RunReport) error {
	run.FinishedAt = time.Now().UTC()

	renderer := pipeline.NewRenderer(os.Stderr)
	renderer.RenderDuplicates(run.Duplicates)

	if dupReport != "" {
		if err := renderer.RenderJSON(run, dupReport); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote report: %s\n", dupReport)
	}
	return nil
}

// printMatches writes new entity -> prior entity as a JSON object
func printMatches(r model.DuplicateReport) error {
	out := make(map[string]int64, len(r.Matches))
	for newEntity, prior := range r.MatchMap() {
		out[strconv.FormatInt(newEntity, 10)] = prior
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
