package dedupe

import (
	"sort"

	"github.com/ppiankov/entorg/internal/model"
)

// Result is the duplicate-candidate outcome of comparing two snapshots
type Result struct {
	NewEntities []int64                // Present in current only, ascending
	Matches     []model.DuplicateMatch // Ascending by NewEntity
	Skipped     bool                   // No previous snapshot to compare with
}

// Map returns the matches as new entity -> prior entity
func (r *Result) Map() map[int64]int64 {
	out := make(map[int64]int64, len(r.Matches))
	for _, m := range r.Matches {
		out[m.NewEntity] = m.PriorEntity
	}
	return out
}

// Matcher finds new entities whose fingerprint equals a prior entity's
type Matcher struct {
	fp *Fingerprinter
}

// NewMatcher creates a matcher
func NewMatcher(fp *Fingerprinter) *Matcher {
	return &Matcher{fp: fp}
}

// Match compares the current snapshot against previous. A nil previous means
// there is no superseded resource and the check is skipped.
func (m *Matcher) Match(current, previous []model.SnapshotRow) *Result {
	if previous == nil {
		return &Result{Skipped: true}
	}

	prevFields, prevOrder := m.fp.Fields(previous)
	curFields, _ := m.fp.Fields(current)

	var fresh []int64
	for entity := range curFields {
		if _, seen := prevFields[entity]; !seen {
			fresh = append(fresh, entity)
		}
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i] < fresh[j] })

	res := &Result{NewEntities: fresh}
	if len(fresh) == 0 {
		return res
	}

	// first prior entity in snapshot order wins a shared fingerprint
	index := make(map[Fingerprint]int64, len(prevOrder))
	for _, entity := range prevOrder {
		key := Of(prevFields[entity])
		if _, taken := index[key]; !taken {
			index[key] = entity
		}
	}

	for _, entity := range fresh {
		if prior, ok := index[Of(curFields[entity])]; ok {
			res.Matches = append(res.Matches, model.DuplicateMatch{NewEntity: entity, PriorEntity: prior})
		}
	}

	return res
}
