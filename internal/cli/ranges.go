package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/entorg/internal/model"
	"github.com/ppiankov/entorg/internal/pipeline"
	"github.com/ppiankov/entorg/internal/resolve"
)

// ErrNotPublished is returned when any dataset was withheld or a pipeline failed
var ErrNotPublished = errors.New("range tables not published")

var (
	rangesDatasets  []string
	rangesDecisions string
	rangesWorkers   int
	rangesDryRun    bool
	rangesReport    string
	rangesTimeout   time.Duration
)

// rangesCmd represents the ranges command
var rangesCmd = &cobra.Command{
	Use:   "ranges [root]",
	Short: "Build entity-organisation range tables from pipeline lookups",
	Long: `Ranges reads every <root>/*/lookup.csv (or a single pipeline directory
or lookup file), resolves one accountable organisation per entity, compacts
the result into ranges and writes entity-organisation.csv beside each lookup.

Each dataset of a lookup is published or withheld on its own. A dataset is
withheld, keeping the rows already published for it, when:
- its ranges overlap (entity-organisation-overlaps.csv)
- an entity is claimed by several local authorities with no recorded
  decision (entity-organisation-conflicts.csv)

Example:
  entorg ranges pipeline
  entorg ranges pipeline --dataset conservation-area --decisions decisions.yaml
  entorg ranges pipeline/brownfield-site --dry-run --report run.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRanges,
}

func init() {
	rootCmd.AddCommand(rangesCmd)

	rangesCmd.Flags().StringSliceVar(&rangesDatasets, "dataset", nil, "only build these datasets (repeatable)")
	rangesCmd.Flags().StringVar(&rangesDecisions, "decisions", "", "YAML file of decisions for ambiguous entities")
	rangesCmd.Flags().IntVar(&rangesWorkers, "workers", 0, "pipelines built in parallel (default from config)")
	rangesCmd.Flags().BoolVar(&rangesDryRun, "dry-run", false, "report without writing any tables")
	rangesCmd.Flags().StringVar(&rangesReport, "report", "", "write a JSON run report to this path")
	rangesCmd.Flags().DurationVar(&rangesTimeout, "timeout", 30*time.Minute, "total timeout for the run")
}

func runRanges(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}

	if len(rangesDatasets) > 0 {
		cfg.Lookup.Datasets = rangesDatasets
	}
	if rangesDecisions != "" {
		cfg.Lookup.DecisionsFile = rangesDecisions
	}
	if rangesWorkers > 0 {
		cfg.Concurrency.Workers = rangesWorkers
	}

	ctx, cancel := context.WithTimeout(context.Background(), rangesTimeout)
	defer cancel()

	report, err := buildRanges(ctx, cfg, root, rangesDryRun)
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer(os.Stderr)
	renderer.RenderDatasets(report.Datasets)

	if rangesReport != "" {
		if err := renderer.RenderJSON(report, rangesReport); err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote report: %s\n", rangesReport)
	}

	for _, d := range report.Datasets {
		switch d.Status {
		case model.StatusWithheld, model.StatusPartial, model.StatusFailed:
			return ErrNotPublished
		}
	}
	return nil
}

// buildRanges runs the range build for every lookup under root
func buildRanges(ctx context.Context, c *model.Config, root string, dryRun bool) (*model.RunReport, error) {
	paths, err := pipeline.Discover(root, c.Lookup.FileName)
	if err != nil {
		return nil, err
	}

	decisions, err := resolve.LoadDecisions(c.Lookup.DecisionsFile)
	if err != nil {
		return nil, err
	}

	banner("entorg Ranges")
	fmt.Fprintf(os.Stderr, "  Root:       %s\n", root)
	fmt.Fprintf(os.Stderr, "  Lookups:    %d\n", len(paths))
	fmt.Fprintf(os.Stderr, "  Workers:    %d\n", c.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Decisions:  %d\n", decisions.Len())
	if dryRun {
		fmt.Fprintf(os.Stderr, "  Dry run:    nothing will be written\n")
	}
	fmt.Fprintln(os.Stderr)

	report := pipeline.NewRunReport("ranges")
	builder := pipeline.NewRangeBuilder(c, decisions, log).DryRun(dryRun)
	report.Datasets = builder.BuildAll(ctx, paths, c.Concurrency.Workers)
	report.FinishedAt = time.Now().UTC()
	return report, nil
}
