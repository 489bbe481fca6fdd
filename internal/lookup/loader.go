// Package lookup turns raw pipeline lookup tables into clean ownership claims.
package lookup

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/entorg/internal/model"
	"github.com/ppiankov/entorg/internal/table"
)

// Stats counts what happened to each row of a lookup table
type Stats struct {
	Read                int `json:"read"`
	Kept                int `json:"kept"`
	MissingOrganisation int `json:"missing_organisation"`
	BadEntity           int `json:"bad_entity"`
	OtherDataset        int `json:"other_dataset"`
	Aliased             int `json:"aliased"`
}

// Result is the cleaned content of one lookup table
type Result struct {
	Rows  []model.LookupRow
	Stats Stats
}

// Loader filters and normalises lookup rows. It is read-only after construction
// and safe for concurrent use.
type Loader struct {
	placeholders map[string]bool
	aliases      map[string]string
	datasets     map[string]bool
}

// NewLoader builds a loader from organisation and lookup settings
func NewLoader(orgs model.OrganisationConfig, datasets []string) *Loader {
	l := &Loader{
		placeholders: make(map[string]bool, len(orgs.Placeholders)),
		aliases:      make(map[string]string, len(orgs.Aliases)),
	}

	for _, p := range orgs.Placeholders {
		l.placeholders[strings.ToLower(strings.TrimSpace(p))] = true
	}
	// "" is always a placeholder
	l.placeholders[""] = true

	for from, to := range orgs.Aliases {
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if from != "" && to != "" && from != to {
			l.aliases[from] = to
		}
	}

	if len(datasets) > 0 {
		l.datasets = make(map[string]bool, len(datasets))
		for _, ds := range datasets {
			l.datasets[strings.TrimSpace(ds)] = true
		}
	}

	return l
}

// IsPlaceholder reports whether an organisation value carries no organisation
func (l *Loader) IsPlaceholder(org string) bool {
	return l.placeholders[strings.ToLower(strings.TrimSpace(org))]
}

// Normalise trims an organisation and maps it through the alias table
func (l *Loader) Normalise(org string) (string, bool) {
	org = strings.TrimSpace(org)
	if to, ok := l.aliases[org]; ok {
		return to, true
	}
	return org, false
}

// LoadFile reads and cleans the lookup table at path
func (l *Loader) LoadFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lookup: %w", err)
	}
	defer func() { _ = f.Close() }()

	return l.Load(f)
}

// Load reads and cleans a lookup table. Only an empty table or missing required
// columns are errors; individual bad rows are dropped and counted.
func (l *Loader) Load(r io.Reader) (*Result, error) {
	t, err := table.Read(r)
	if err != nil {
		return nil, fmt.Errorf("read lookup: %w", err)
	}
	if len(t.Records) == 0 {
		return nil, fmt.Errorf("read lookup: %w", table.ErrEmptyTable)
	}

	// prefix is the lookup's own name for the dataset column
	cols, err := t.Require([]string{"prefix", "dataset"}, []string{"entity"}, []string{"organisation"})
	if err != nil {
		return nil, fmt.Errorf("read lookup: %w", err)
	}

	return l.clean(t.Records, cols[0], cols[1], cols[2]), nil
}

func (l *Loader) clean(records [][]string, dsCol, entityCol, orgCol int) *Result {
	res := &Result{Rows: make([]model.LookupRow, 0, len(records))}

	for _, rec := range records {
		res.Stats.Read++

		dataset := strings.TrimSpace(table.Field(rec, dsCol))
		if l.datasets != nil && !l.datasets[dataset] {
			res.Stats.OtherDataset++
			continue
		}

		rawOrg := table.Field(rec, orgCol)
		if l.IsPlaceholder(rawOrg) {
			res.Stats.MissingOrganisation++
			continue
		}

		entity, err := table.ParseEntity(table.Field(rec, entityCol))
		if err != nil {
			res.Stats.BadEntity++
			continue
		}

		org, aliased := l.Normalise(rawOrg)
		if aliased {
			res.Stats.Aliased++
		}

		res.Rows = append(res.Rows, model.LookupRow{
			Dataset:      dataset,
			Entity:       entity,
			Organisation: org,
		})
	}

	res.Stats.Kept = len(res.Rows)
	return res
}

// ByDataset groups rows by dataset, preserving row order within each group
func ByDataset(rows []model.LookupRow) map[string][]model.LookupRow {
	out := make(map[string][]model.LookupRow)
	for _, r := range rows {
		out[r.Dataset] = append(out[r.Dataset], r)
	}
	return out
}
