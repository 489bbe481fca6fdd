package resolve

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/entorg/internal/model"
)

// Adjudicator supplies operator decisions for ambiguous entities.
// ok is false when no decision has been recorded.
type Adjudicator interface {
	Decide(dataset string, entity int64, candidates []string) (org string, ok bool)
}

// Result is the resolution of one dataset's lookup rows
type Result struct {
	Resolved    []model.ResolvedOwnership // Ascending by entity
	Conflicts   []model.Conflict          // Ascending by entity
	Adjudicated int                       // Ambiguities settled by a decision
}

// Resolver applies a Policy to every entity of a dataset
type Resolver struct {
	policy      *Policy
	adjudicator Adjudicator
}

// NewResolver creates a resolver. adjudicator may be nil.
func NewResolver(policy *Policy, adjudicator Adjudicator) *Resolver {
	return &Resolver{policy: policy, adjudicator: adjudicator}
}

// ResolveDataset picks one organisation per entity for rows of a single dataset.
// Entities that stay ambiguous are returned as conflicts and left out of Resolved.
func (r *Resolver) ResolveDataset(dataset string, rows []model.LookupRow) (*Result, error) {
	claims := make(map[int64][]string)
	for _, row := range rows {
		if row.Dataset != dataset {
			return nil, fmt.Errorf("row for entity %d belongs to %q, not %q", row.Entity, row.Dataset, dataset)
		}
		claims[row.Entity] = append(claims[row.Entity], row.Organisation)
	}

	entities := make([]int64, 0, len(claims))
	for e := range claims {
		entities = append(entities, e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })

	res := &Result{Resolved: make([]model.ResolvedOwnership, 0, len(entities))}
	for _, entity := range entities {
		outcome, err := r.policy.Pick(entity, claims[entity])
		if errors.Is(err, ErrNoCandidates) {
			// Loader already drops placeholder rows; nothing to own here
			continue
		}
		if err != nil {
			return nil, err
		}

		if outcome.Kind == Ambiguous {
			org, conflict := r.adjudicate(dataset, entity, outcome.Candidates)
			if conflict != nil {
				res.Conflicts = append(res.Conflicts, *conflict)
				continue
			}
			res.Adjudicated++
			outcome = resolved(org)
		}

		res.Resolved = append(res.Resolved, model.ResolvedOwnership{
			Dataset:      dataset,
			Entity:       entity,
			Organisation: outcome.Organisation,
		})
	}

	return res, nil
}

func (r *Resolver) adjudicate(dataset string, entity int64, candidates []string) (string, *model.Conflict) {
	conflict := &model.Conflict{
		Dataset:    dataset,
		Entity:     entity,
		Candidates: candidates,
		Reason:     fmt.Sprintf("%d local authorities claim this entity", len(candidates)),
	}

	if r.adjudicator == nil {
		return "", conflict
	}

	org, ok := r.adjudicator.Decide(dataset, entity, candidates)
	if !ok {
		return "", conflict
	}
	for _, c := range candidates {
		if c == org {
			return org, nil
		}
	}

	conflict.Reason = fmt.Sprintf("decision %q is not one of %s", org, strings.Join(candidates, ", "))
	return "", conflict
}
