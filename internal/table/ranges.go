package table

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ppiankov/entorg/internal/model"
)

// Column layouts of the published tables
var (
	RangeHeader = []string{"dataset", "entity-minimum", "entity-maximum", "organisation"}

	OverlapHeader = []string{
		"dataset",
		"current-entity-minimum", "current-entity-maximum", "current-organisation",
		"previous-entity-minimum", "previous-entity-maximum", "previous-organisation",
	}

	ConflictHeader = []string{"dataset", "entity", "candidates", "reason"}
)

// RangeRows encodes ranges in RangeHeader order
func RangeRows(ranges []model.EntityRange) [][]string {
	rows := make([][]string, len(ranges))
	for i, r := range ranges {
		rows[i] = []string{r.Dataset, itoa(r.Minimum), itoa(r.Maximum), r.Organisation}
	}
	return rows
}

// OverlapRows encodes overlap reports in OverlapHeader order
func OverlapRows(overlaps []model.Overlap) [][]string {
	rows := make([][]string, len(overlaps))
	for i, o := range overlaps {
		rows[i] = []string{
			o.Dataset,
			itoa(o.Current.Minimum), itoa(o.Current.Maximum), o.Current.Organisation,
			itoa(o.Previous.Minimum), itoa(o.Previous.Maximum), o.Previous.Organisation,
		}
	}
	return rows
}

// ConflictRows encodes unresolved conflicts in ConflictHeader order
func ConflictRows(conflicts []model.Conflict) [][]string {
	rows := make([][]string, len(conflicts))
	for i, c := range conflicts {
		rows[i] = []string{c.Dataset, itoa(c.Entity), strings.Join(c.Candidates, ";"), c.Reason}
	}
	return rows
}

// ReadRanges parses a published entity-organisation table
func ReadRanges(r io.Reader) ([]model.EntityRange, error) {
	t, err := Read(r)
	if err != nil {
		return nil, err
	}

	cols, err := t.Require([]string{"dataset"}, []string{"entity-minimum"}, []string{"entity-maximum"}, []string{"organisation"})
	if err != nil {
		return nil, err
	}

	ranges := make([]model.EntityRange, 0, len(t.Records))
	for i, rec := range t.Records {
		minimum, err := parseEntity(Field(rec, cols[1]))
		if err != nil {
			return nil, fmt.Errorf("row %d entity-minimum: %w", i+2, err)
		}
		maximum, err := parseEntity(Field(rec, cols[2]))
		if err != nil {
			return nil, fmt.Errorf("row %d entity-maximum: %w", i+2, err)
		}
		if minimum > maximum {
			return nil, fmt.Errorf("row %d: entity-minimum %d exceeds entity-maximum %d", i+2, minimum, maximum)
		}
		ranges = append(ranges, model.EntityRange{
			Dataset:      strings.TrimSpace(Field(rec, cols[0])),
			Organisation: strings.TrimSpace(Field(rec, cols[3])),
			Minimum:      minimum,
			Maximum:      maximum,
		})
	}

	return ranges, nil
}

// ParseEntity parses a non-negative integer entity identifier
func ParseEntity(s string) (int64, error) {
	return parseEntity(s)
}

func parseEntity(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing entity")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid entity %q", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative entity %d", n)
	}
	return n, nil
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
