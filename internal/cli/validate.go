package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/entorg/internal/pipeline"
	"github.com/ppiankov/entorg/internal/table"
)

var (
	// ErrOverlaps is returned when a validated range table has overlapping ranges
	ErrOverlaps = errors.New("range table has overlaps")

	// ErrNotMaximal is returned when ranges of one organisation touch and should be one range
	ErrNotMaximal = errors.New("range table is not compacted")
)

var validateOverlapsOut string

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <entity-organisation.csv>",
	Short: "Check an existing range table for overlapping ranges",
	Long: `Validate reads a published entity-organisation table and reports every
range of a dataset whose entities are also covered by another range, and
every pair of ranges of one organisation that touch and should be one range.

Example:
  entorg validate pipeline/conservation-area/entity-organisation.csv
  entorg validate ranges.csv --overlaps overlaps.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateOverlapsOut, "overlaps", "", "write the overlap report to this path")
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	ranges, verdict, err := pipeline.ValidateFile(path)
	if err != nil {
		return err
	}
	log.Debug("range table read", "path", path, "ranges", len(ranges))

	if verdict.Publishable() {
		if verdict.Maximal() {
			fmt.Fprintf(os.Stderr, "✓ %s: %d ranges, no overlaps\n", path, len(ranges))
			return nil
		}
		fmt.Fprintf(os.Stderr, "⚠ %s: %d ranges could be joined\n", path, len(verdict.Touching))
		for _, o := range verdict.Touching {
			fmt.Fprintf(os.Stderr, "    %s %s [%d-%d] follows [%d-%d]\n",
				o.Dataset, o.Current.Organisation, o.Current.Minimum, o.Current.Maximum, o.Previous.Minimum, o.Previous.Maximum)
		}
		return ErrNotMaximal
	}

	fmt.Fprintf(os.Stderr, "✗ %s: %d overlaps\n", path, len(verdict.Overlaps))
	for _, o := range verdict.Overlaps {
		fmt.Fprintf(os.Stderr, "    %s\n", o)
	}

	if validateOverlapsOut != "" {
		if err := table.WriteFile(validateOverlapsOut, table.OverlapHeader, table.OverlapRows(verdict.Overlaps)); err != nil {
			return fmt.Errorf("write overlaps: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote overlaps: %s\n", validateOverlapsOut)
	}
	return ErrOverlaps
}
