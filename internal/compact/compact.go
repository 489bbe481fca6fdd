// Package compact collapses per-entity ownership into contiguous ranges.
package compact

import (
	"sort"

	"github.com/ppiankov/entorg/internal/model"
)

// Compact groups resolved rows into the minimal set of maximal contiguous ranges
// per (dataset, organisation). Output is sorted by dataset, organisation, minimum.
func Compact(rows []model.ResolvedOwnership) []model.EntityRange {
	if len(rows) == 0 {
		return []model.EntityRange{}
	}

	sorted := make([]model.ResolvedOwnership, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Dataset != b.Dataset {
			return a.Dataset < b.Dataset
		}
		if a.Organisation != b.Organisation {
			return a.Organisation < b.Organisation
		}
		return a.Entity < b.Entity
	})

	var out []model.EntityRange
	cur := model.EntityRange{
		Dataset:      sorted[0].Dataset,
		Organisation: sorted[0].Organisation,
		Minimum:      sorted[0].Entity,
		Maximum:      sorted[0].Entity,
	}

	for _, row := range sorted[1:] {
		sameGroup := row.Dataset == cur.Dataset && row.Organisation == cur.Organisation
		switch {
		case sameGroup && row.Entity == cur.Maximum:
			// repeated entity
		case sameGroup && row.Entity == cur.Maximum+1:
			cur.Maximum = row.Entity
		default:
			out = append(out, cur)
			cur = model.EntityRange{
				Dataset:      row.Dataset,
				Organisation: row.Organisation,
				Minimum:      row.Entity,
				Maximum:      row.Entity,
			}
		}
	}

	return append(out, cur)
}

// Merge compacts existing ranges, joining ranges of the same (dataset,
// organisation) that touch or intersect. Compact output is a fixed point.
func Merge(ranges []model.EntityRange) []model.EntityRange {
	if len(ranges) == 0 {
		return []model.EntityRange{}
	}

	sorted := make([]model.EntityRange, len(ranges))
	copy(sorted, ranges)
	Sort(sorted)

	out := []model.EntityRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.Dataset == last.Dataset && r.Organisation == last.Organisation && r.Minimum-1 <= last.Maximum {
			if r.Maximum > last.Maximum {
				last.Maximum = r.Maximum
			}
			continue
		}
		out = append(out, r)
	}

	return out
}

// Sort orders ranges by dataset, organisation, minimum, maximum
func Sort(ranges []model.EntityRange) {
	sort.Slice(ranges, func(i, j int) bool {
		a, b := ranges[i], ranges[j]
		if a.Dataset != b.Dataset {
			return a.Dataset < b.Dataset
		}
		if a.Organisation != b.Organisation {
			return a.Organisation < b.Organisation
		}
		if a.Minimum != b.Minimum {
			return a.Minimum < b.Minimum
		}
		return a.Maximum < b.Maximum
	})
}
