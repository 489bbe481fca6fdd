// Package resolve picks a single owning organisation for each entity.
package resolve

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/entorg/internal/model"
)

// ErrNoCandidates is returned when an entity has no usable organisation
var ErrNoCandidates = errors.New("no valid organisations")

// OutcomeKind tags the result of applying the policy to one entity
type OutcomeKind int

const (
	Resolved  OutcomeKind = iota // Organisation holds the winner
	Ambiguous                    // Candidates holds the tied local authorities
)

func (k OutcomeKind) String() string {
	if k == Ambiguous {
		return "ambiguous"
	}
	return "resolved"
}

// Outcome is either Resolved(Organisation) or Ambiguous(Candidates)
type Outcome struct {
	Kind         OutcomeKind
	Organisation string
	Candidates   []string
}

func resolved(org string) Outcome {
	return Outcome{Kind: Resolved, Organisation: org}
}

// Policy is the read-only ownership priority policy for one run
type Policy struct {
	classifier   *Classifier
	ignored      string
	preference   []string
	placeholders map[string]bool
}

// NewPolicy builds the policy from configuration
func NewPolicy(cfg model.OrganisationConfig) *Policy {
	p := &Policy{
		classifier:   NewClassifier(cfg),
		ignored:      strings.TrimSpace(cfg.IgnoredAuthority),
		placeholders: map[string]bool{"": true},
	}
	for _, org := range cfg.GovernmentPreference {
		if org = strings.TrimSpace(org); org != "" {
			p.preference = append(p.preference, org)
		}
	}
	for _, ph := range cfg.Placeholders {
		p.placeholders[strings.ToLower(strings.TrimSpace(ph))] = true
	}
	return p
}

// Pick applies the priority rules to every organisation claimed for entity:
// a sole candidate wins; non-government beats government; among non-government
// a single local authority wins (the ignorable authority only counts when it is
// the only one) and several of them are ambiguous; otherwise the smallest
// identifier wins. Government-only entities follow the preference list, then
// the smallest identifier.
func (p *Policy) Pick(entity int64, orgs []string) (Outcome, error) {
	uniq := p.distinct(orgs)
	if len(uniq) == 0 {
		return Outcome{}, fmt.Errorf("entity %d: %w", entity, ErrNoCandidates)
	}
	if len(uniq) == 1 {
		return resolved(uniq[0]), nil
	}

	var nonGov, gov, las []string
	for _, org := range uniq {
		switch p.classifier.Classify(org) {
		case model.KindGovernment:
			gov = append(gov, org)
		case model.KindLocalAuthority:
			las = append(las, org)
			nonGov = append(nonGov, org)
		default:
			nonGov = append(nonGov, org)
		}
	}

	if len(nonGov) > 0 {
		accountable := las
		if len(las) > 1 {
			accountable = make([]string, 0, len(las))
			for _, la := range las {
				if la != p.ignored {
					accountable = append(accountable, la)
				}
			}
		}

		switch {
		case len(accountable) > 1:
			return Outcome{Kind: Ambiguous, Candidates: accountable}, nil
		case len(accountable) == 1:
			return resolved(accountable[0]), nil
		}

		// TODO: confirm with data owners whether the smallest identifier is the
		// intended winner here or a stand-in for a missing rule
		return resolved(nonGov[0]), nil
	}

	for _, preferred := range p.preference {
		for _, org := range gov {
			if org == preferred {
				return resolved(org), nil
			}
		}
	}
	return resolved(gov[0]), nil
}

// distinct trims, drops placeholders, deduplicates and sorts
func (p *Policy) distinct(orgs []string) []string {
	seen := make(map[string]bool, len(orgs))
	out := make([]string, 0, len(orgs))
	for _, org := range orgs {
		org = strings.TrimSpace(org)
		if p.placeholders[strings.ToLower(org)] || seen[org] {
			continue
		}
		seen[org] = true
		out = append(out, org)
	}
	sort.Strings(out)
	return out
}
