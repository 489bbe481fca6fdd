package resolve

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/entorg/internal/model"
)

func testPolicy() *Policy {
	return NewPolicy(model.DefaultConfig().Organisations)
}

func TestPick(t *testing.T) {
	tests := []struct {
		name string
		orgs []string
		want Outcome
	}{
		{
			name: "single organisation",
			orgs: []string{"government-organisation:D1342"},
			want: Outcome{Kind: Resolved, Organisation: "government-organisation:D1342"},
		},
		{
			name: "repeated claim is one candidate",
			orgs: []string{"local-authority:LB1", " local-authority:LB1 "},
			want: Outcome{Kind: Resolved, Organisation: "local-authority:LB1"},
		},
		{
			name: "local authority beats government",
			orgs: []string{"government-organisation:PB1164", "local-authority:LB1"},
			want: Outcome{Kind: Resolved, Organisation: "local-authority:LB1"},
		},
		{
			name: "several local authorities are ambiguous",
			orgs: []string{"local-authority:LB2", "local-authority:LB1"},
			want: Outcome{Kind: Ambiguous, Candidates: []string{"local-authority:LB1", "local-authority:LB2"}},
		},
		{
			name: "ignored authority drops out when another claims",
			orgs: []string{"local-authority:GLA", "local-authority:LBH"},
			want: Outcome{Kind: Resolved, Organisation: "local-authority:LBH"},
		},
		{
			name: "ignored authority alone still owns",
			orgs: []string{"local-authority:GLA", "development-corporation:DC1"},
			want: Outcome{Kind: Resolved, Organisation: "local-authority:GLA"},
		},
		{
			name: "ignored authority does not break a real tie",
			orgs: []string{"local-authority:GLA", "local-authority:LB1", "local-authority:LB2"},
			want: Outcome{Kind: Ambiguous, Candidates: []string{"local-authority:LB1", "local-authority:LB2"}},
		},
		{
			name: "non-government without authority takes smallest identifier",
			orgs: []string{"national-park-authority:Q72", "development-corporation:DC1", "government-organisation:D1342"},
			want: Outcome{Kind: Resolved, Organisation: "development-corporation:DC1"},
		},
		{
			name: "government preference order",
			orgs: []string{"government-organisation:D1342", "government-organisation:PB1164", "government-organisation:A1"},
			want: Outcome{Kind: Resolved, Organisation: "government-organisation:PB1164"},
		},
		{
			name: "second preference when first absent",
			orgs: []string{"government-organisation:Z9", "government-organisation:D1342"},
			want: Outcome{Kind: Resolved, Organisation: "government-organisation:D1342"},
		},
		{
			name: "government without preference takes smallest identifier",
			orgs: []string{"government-organisation:Z9", "government-organisation:B2"},
			want: Outcome{Kind: Resolved, Organisation: "government-organisation:B2"},
		},
		{
			name: "placeholders ignored",
			orgs: []string{"nan", "None", "", "local-authority:LB1"},
			want: Outcome{Kind: Resolved, Organisation: "local-authority:LB1"},
		},
	}

	p := testPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Pick(1, tt.orgs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPick_NoCandidates(t *testing.T) {
	_, err := testPolicy().Pick(3, []string{"", "nan", "  "})
	assert.True(t, errors.Is(err, ErrNoCandidates))
}

func TestPick_OrderIndependent(t *testing.T) {
	p := testPolicy()
	orders := [][]string{
		{"government-organisation:D1342", "government-organisation:PB1164", "local-authority:LB1"},
		{"local-authority:LB1", "government-organisation:PB1164", "government-organisation:D1342"},
		{"government-organisation:PB1164", "local-authority:LB1", "government-organisation:D1342"},
	}

	first, err := p.Pick(1, orders[0])
	require.NoError(t, err)
	for _, orgs := range orders[1:] {
		got, err := p.Pick(1, orgs)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestClassifier(t *testing.T) {
	cfg := model.DefaultConfig().Organisations
	cfg.Kinds = map[string]string{"mayoral-office:LON": "local-authority"}
	c := NewClassifier(cfg)

	assert.Equal(t, model.KindGovernment, c.Classify("government-organisation:D1342"))
	assert.Equal(t, model.KindLocalAuthority, c.Classify("local-authority:LBH"))
	assert.Equal(t, model.KindOther, c.Classify("national-park-authority:Q72"))
	assert.Equal(t, model.KindLocalAuthority, c.Classify("mayoral-office:LON"))
}
