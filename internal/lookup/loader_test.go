package lookup

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/entorg/internal/model"
	"github.com/ppiankov/entorg/internal/table"
)

func newLoader(datasets ...string) *Loader {
	orgs := model.DefaultConfig().Organisations
	orgs.Aliases = map[string]string{
		"government-organisation:D1342": "government-organisation:D1419",
	}
	return NewLoader(orgs, datasets)
}

func TestLoad(t *testing.T) {
	csv := "prefix,resource,entity,organisation,reference\n" +
		"conservation-area,r1,44000001,local-authority:LBH,CA1\n" +
		"conservation-area,r1,44000002,  NaN ,CA2\n" +
		"conservation-area,r1,,local-authority:LBH,CA3\n" +
		"conservation-area,r1,abc,local-authority:LBH,CA4\n" +
		"conservation-area,r1,44000005,government-organisation:D1342,CA5\n" +
		"conservation-area,r1,44000006,None,CA6\n" +
		"conservation-area,r1,44000007, local-authority:LBH ,CA7\n"

	res, err := newLoader().Load(strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, []model.LookupRow{
		{Dataset: "conservation-area", Entity: 44000001, Organisation: "local-authority:LBH"},
		{Dataset: "conservation-area", Entity: 44000005, Organisation: "government-organisation:D1419"},
		{Dataset: "conservation-area", Entity: 44000007, Organisation: "local-authority:LBH"},
	}, res.Rows)

	assert.Equal(t, Stats{Read: 7, Kept: 3, MissingOrganisation: 2, BadEntity: 2, Aliased: 1}, res.Stats)
}

func TestLoad_DatasetColumn(t *testing.T) {
	csv := "dataset,entity,organisation\ntree,1,local-authority:A\n"
	res, err := newLoader().Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "tree", res.Rows[0].Dataset)
}

func TestLoad_DatasetFilter(t *testing.T) {
	csv := "prefix,entity,organisation\n" +
		"tree,1,local-authority:A\n" +
		"tree-preservation-zone,2,local-authority:A\n"

	res, err := newLoader("tree").Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(1), res.Rows[0].Entity)
	assert.Equal(t, 1, res.Stats.OtherDataset)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want error
	}{
		{"no content", "", table.ErrEmptyTable},
		{"header only", "prefix,entity,organisation\n", table.ErrEmptyTable},
		{"missing organisation column", "prefix,entity\nds,1\n", table.ErrMissingColumn},
		{"missing dataset column", "entity,organisation\n1,a\n", table.ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader().Load(strings.NewReader(tt.csv))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestLoad_AllPlaceholders(t *testing.T) {
	res, err := newLoader().Load(strings.NewReader("prefix,entity,organisation\nds,1,nan\nds,2,\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Equal(t, 2, res.Stats.MissingOrganisation)
}

func TestIsPlaceholder(t *testing.T) {
	l := newLoader()
	for _, v := range []string{"", "  ", "nan", "NaN", "none", "NONE"} {
		assert.True(t, l.IsPlaceholder(v), v)
	}
	assert.False(t, l.IsPlaceholder("local-authority:LBH"))
}

func TestByDataset(t *testing.T) {
	got := ByDataset([]model.LookupRow{
		{Dataset: "a", Entity: 2},
		{Dataset: "b", Entity: 1},
		{Dataset: "a", Entity: 1},
	})
	assert.Equal(t, []model.LookupRow{{Dataset: "a", Entity: 2}, {Dataset: "a", Entity: 1}}, got["a"])
	assert.Len(t, got["b"], 1)
}
