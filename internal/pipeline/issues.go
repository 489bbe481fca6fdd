package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/entorg/internal/model"
	"github.com/ppiankov/entorg/internal/table"
)

const (
	unknownEntityIssue = "unknown entity"
	titleBoundary      = "title-boundary"
)

// ScopeRules maps a dataset to its provision scope
type ScopeRules map[string]string

// Scope returns the dataset's scope, single-source when no rule names it
func (s ScopeRules) Scope(dataset string) string {
	if scope, ok := s[dataset]; ok {
		return scope
	}
	return model.ScopeSingleSource
}

// ReadProvisionRules derives dataset scopes from a provision-rule table.
// open-digital-planning datasets are odp even when also statutory.
func ReadProvisionRules(r io.Reader) (ScopeRules, error) {
	t, err := table.Read(r)
	if err != nil {
		return nil, fmt.Errorf("provision rules: %w", err)
	}
	cols, err := t.Require([]string{"dataset"}, []string{"project"}, []string{"provision-reason"}, []string{"role"})
	if err != nil {
		return nil, fmt.Errorf("provision rules: %w", err)
	}

	rules := make(ScopeRules)
	for _, rec := range t.Records {
		dataset := table.Field(rec, cols[0])
		if dataset == "" {
			continue
		}
		project := table.Field(rec, cols[1])
		reason := table.Field(rec, cols[2])
		role := table.Field(rec, cols[3])

		switch {
		case project == "open-digital-planning":
			rules[dataset] = model.ScopeODP
		case reason == "statutory", reason == "encouraged" && role == "local-planning-authority":
			if rules[dataset] != model.ScopeODP {
				rules[dataset] = model.ScopeMandated
			}
		}
	}
	return rules, nil
}

// LoadProvisionRules reads provision rules from path; "" yields no rules
func LoadProvisionRules(path string) (ScopeRules, error) {
	if path == "" {
		return ScopeRules{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open provision rules: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadProvisionRules(f)
}

// ReadIssues parses an issue summary. A scope column is used as given;
// otherwise each issue is scoped from its dataset through rules.
func ReadIssues(r io.Reader, rules ScopeRules) ([]model.Issue, error) {
	t, err := table.Read(r)
	if err != nil {
		return nil, fmt.Errorf("issue summary: %w", err)
	}
	cols, err := t.Require(
		[]string{"issue_type", "issue-type"},
		[]string{"dataset"},
		[]string{"collection"},
		[]string{"pipeline"},
		[]string{"resource"},
		[]string{"endpoint"},
		[]string{"organisation"},
	)
	if err != nil {
		return nil, fmt.Errorf("issue summary: %w", err)
	}
	scopeCol, hasScope := t.Column("scope")

	issues := make([]model.Issue, 0, len(t.Records))
	for _, rec := range t.Records {
		issue := model.Issue{
			IssueType:    table.Field(rec, cols[0]),
			Dataset:      table.Field(rec, cols[1]),
			Collection:   table.Field(rec, cols[2]),
			Pipeline:     table.Field(rec, cols[3]),
			Resource:     table.Field(rec, cols[4]),
			Endpoint:     table.Field(rec, cols[5]),
			Organisation: table.Field(rec, cols[6]),
		}
		if hasScope {
			issue.Scope = strings.ToLower(table.Field(rec, scopeCol))
		}
		if issue.Scope == "" {
			issue.Scope = rules.Scope(issue.Dataset)
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

// FetchIssues downloads and parses the issue summary
func FetchIssues(ctx context.Context, fetcher *Fetcher, rawURL string, rules ScopeRules) ([]model.Issue, error) {
	res, err := fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("issue summary: %w", err)
	}
	return ReadIssues(bytes.NewReader(res.Body), rules)
}

// FilterIssues keeps unknown-entity issues in scope, one per resource and
// endpoint, in input order. title-boundary is never checked.
func FilterIssues(issues []model.Issue, scope string) []model.Issue {
	scope = strings.ToLower(scope)
	seen := make(map[[2]string]bool)

	var out []model.Issue
	for _, issue := range issues {
		if strings.ToLower(issue.IssueType) != unknownEntityIssue ||
			issue.Scope != scope ||
			strings.ToLower(issue.Dataset) == titleBoundary {
			continue
		}
		if issue.Resource == "" || issue.Endpoint == "" {
			continue
		}
		key := [2]string{issue.Resource, issue.Endpoint}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, issue)
	}
	return out
}
