// Package validate guards range tables against overlapping ownership.
package validate

import (
	"sort"

	"github.com/ppiankov/entorg/internal/compact"
	"github.com/ppiankov/entorg/internal/model"
)

// Verdict is the outcome of validating one range table
type Verdict struct {
	Overlaps []model.Overlap
	Touching []model.Overlap // Same-organisation neighbours that should be one range
}

// Publishable reports whether the table may replace the published one
func (v Verdict) Publishable() bool {
	return len(v.Overlaps) == 0
}

// Maximal reports whether every range is as long as it can be
func (v Verdict) Maximal() bool {
	return len(v.Touching) == 0
}

// Check validates a range table. ranges may span several datasets.
func Check(ranges []model.EntityRange) Verdict {
	return Verdict{Overlaps: Overlaps(ranges), Touching: Touching(ranges)}
}

// Overlaps reports every range whose minimum falls inside an earlier range of
// the same dataset, ordering by entity-minimum. Each range is compared with its
// adjacent predecessor; when that one does not reach it but an earlier, wider
// range does (nesting), the wider range is reported instead.
func Overlaps(ranges []model.EntityRange) []model.Overlap {
	if len(ranges) < 2 {
		return nil
	}

	sorted := make([]model.EntityRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Dataset != b.Dataset {
			return a.Dataset < b.Dataset
		}
		if a.Minimum != b.Minimum {
			return a.Minimum < b.Minimum
		}
		if a.Maximum != b.Maximum {
			return a.Maximum < b.Maximum
		}
		return a.Organisation < b.Organisation
	})

	var overlaps []model.Overlap
	widest := 0 // index of the range reaching furthest so far in this dataset

	for i := 1; i < len(sorted); i++ {
		cur, prev := sorted[i], sorted[i-1]
		if cur.Dataset != prev.Dataset {
			widest = i
			continue
		}

		switch {
		case cur.Intersects(prev):
			overlaps = append(overlaps, model.Overlap{Dataset: cur.Dataset, Current: cur, Previous: prev})
		case cur.Intersects(sorted[widest]):
			overlaps = append(overlaps, model.Overlap{Dataset: cur.Dataset, Current: cur, Previous: sorted[widest]})
		}

		if cur.Maximum > sorted[widest].Maximum {
			widest = i
		}
	}

	return overlaps
}

// Touching reports ranges of one dataset and organisation where one ends
// directly before the next begins. compact.Merge would join each pair.
func Touching(ranges []model.EntityRange) []model.Overlap {
	if len(ranges) < 2 {
		return nil
	}

	sorted := make([]model.EntityRange, len(ranges))
	copy(sorted, ranges)
	compact.Sort(sorted)

	var touching []model.Overlap
	for i := 1; i < len(sorted); i++ {
		cur, prev := sorted[i], sorted[i-1]
		if cur.Dataset == prev.Dataset && cur.Organisation == prev.Organisation && cur.Minimum-1 == prev.Maximum {
			touching = append(touching, model.Overlap{Dataset: cur.Dataset, Current: cur, Previous: prev})
		}
	}
	return touching
}

// ByDataset groups ranges by dataset
func ByDataset(ranges []model.EntityRange) map[string][]model.EntityRange {
	out := make(map[string][]model.EntityRange)
	for _, r := range ranges {
		out[r.Dataset] = append(out[r.Dataset], r)
	}
	return out
}
