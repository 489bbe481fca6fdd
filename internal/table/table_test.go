package table

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/entorg/internal/model"
)

func TestRead(t *testing.T) {
	tbl, err := Read(strings.NewReader("\ufeffentity, field ,value\n1,name,\"Old, Hall\"\n2,name\n"))
	require.NoError(t, err)

	cols, err := tbl.Require([]string{"entity"}, []string{"field"}, []string{"value"})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, cols)

	assert.Equal(t, "Old, Hall", Field(tbl.Records[0], cols[2]))
	assert.Equal(t, "", Field(tbl.Records[1], cols[2]))
}

func TestRead_Empty(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestRequire_Missing(t *testing.T) {
	tbl, err := Read(strings.NewReader("a,b\n"))
	require.NoError(t, err)

	_, err = tbl.Require([]string{"a"}, []string{"c", "d"})
	assert.True(t, errors.Is(err, ErrMissingColumn))
	assert.Contains(t, err.Error(), "c|d")
}

func TestWriteFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "entity-organisation.csv")

	ranges := []model.EntityRange{{Dataset: "ds", Organisation: "local-authority:A", Minimum: 1, Maximum: 3}}
	require.NoError(t, WriteFile(path, RangeHeader, RangeRows(ranges)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "dataset,entity-minimum,entity-maximum,organisation\nds,1,3,local-authority:A\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestReadRanges_RoundTrip(t *testing.T) {
	in := []model.EntityRange{
		{Dataset: "ds", Organisation: "a", Minimum: 1, Maximum: 3},
		{Dataset: "ds", Organisation: "b", Minimum: 7, Maximum: 7},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, RangeHeader, RangeRows(in)))

	out, err := ReadRanges(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadRanges_Invalid(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"inverted", "dataset,entity-minimum,entity-maximum,organisation\nds,5,1,a\n"},
		{"not a number", "dataset,entity-minimum,entity-maximum,organisation\nds,x,1,a\n"},
		{"negative", "dataset,entity-minimum,entity-maximum,organisation\nds,-1,1,a\n"},
		{"missing column", "dataset,entity-minimum,organisation\nds,1,a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRanges(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}

func TestConflictRows(t *testing.T) {
	rows := ConflictRows([]model.Conflict{{
		Dataset:    "ds",
		Entity:     9,
		Candidates: []string{"local-authority:LB1", "local-authority:LB2"},
		Reason:     "2 local authorities claim this entity",
	}})
	assert.Equal(t, [][]string{{"ds", "9", "local-authority:LB1;local-authority:LB2", "2 local authorities claim this entity"}}, rows)
}

func TestReadSnapshot(t *testing.T) {
	csv := "end-date,entity,entry-date,field,value\n" +
		",1,2024-01-01,name,Old Hall\n" +
		",,2024-01-01,name,orphan\n" +
		",1,2024-01-01,type,barn\n"

	rows, skipped, err := ReadSnapshot(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []model.SnapshotRow{
		{Entity: 1, Field: "name", Value: "Old Hall"},
		{Entity: 1, Field: "type", Value: "barn"},
	}, rows)
}
