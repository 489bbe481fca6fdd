package model

import "time"

// RunReport is the complete record of one entorg invocation
type RunReport struct {
	ID         string    `json:"id"`
	Command    string    `json:"command"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Datasets   []DatasetReport   `json:"datasets,omitempty"`
	Duplicates []DuplicateReport `json:"duplicates,omitempty"`
}

// DatasetStatus is the publication outcome of one pipeline's range table
type DatasetStatus string

const (
	StatusPublished DatasetStatus = "published" // Range table written
	StatusWithheld  DatasetStatus = "withheld"  // Overlaps or conflicts, previous table kept
	StatusPartial   DatasetStatus = "partial"   // Some datasets published, the rest withheld
	StatusSkipped   DatasetStatus = "skipped"   // Nothing usable to publish
	StatusFailed    DatasetStatus = "failed"    // Malformed input or I/O error
)

// DatasetReport summarises the range build for one pipeline lookup
type DatasetReport struct {
	Pipeline string        `json:"pipeline"`
	Source   string        `json:"source"`
	Status   DatasetStatus `json:"status"`

	RowsRead    int `json:"rows_read"`
	RowsKept    int `json:"rows_kept"`
	Entities    int `json:"entities"`
	Adjudicated int `json:"adjudicated,omitempty"`
	Ranges      int `json:"ranges"`

	Overlaps  []Overlap  `json:"overlaps,omitempty"`
	Conflicts []Conflict `json:"conflicts,omitempty"`

	Datasets []DatasetOutcome `json:"datasets,omitempty"` // One per dataset in the lookup, sorted
	Outputs  []string         `json:"outputs,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// DatasetOutcome is the publication outcome of one dataset of a pipeline lookup.
// Each dataset is published or withheld on its own.
type DatasetOutcome struct {
	Dataset   string        `json:"dataset"`
	Status    DatasetStatus `json:"status"`
	Entities  int           `json:"entities"`
	Ranges    int           `json:"ranges"`
	Overlaps  int           `json:"overlaps,omitempty"`
	Conflicts int           `json:"conflicts,omitempty"`
}

// Publishable reports whether the dataset's ranges may replace its published rows
func (o DatasetOutcome) Publishable() bool {
	return o.Overlaps == 0 && o.Conflicts == 0
}

// DuplicateReport is the advisory outcome of comparing a resource with its predecessor
type DuplicateReport struct {
	Resource         string           `json:"resource"`
	Endpoint         string           `json:"endpoint,omitempty"`
	Dataset          string           `json:"dataset,omitempty"`
	Collection       string           `json:"collection,omitempty"`
	PreviousResource string           `json:"previous_resource,omitempty"`
	NewEntities      int              `json:"new_entities"`
	Matches          []DuplicateMatch `json:"matches,omitempty"`
	Skipped          bool             `json:"skipped,omitempty"` // No superseded snapshot exists
	Error            string           `json:"error,omitempty"`
}

// MatchMap returns the matches as new entity -> prior entity
func (r *DuplicateReport) MatchMap() map[int64]int64 {
	out := make(map[int64]int64, len(r.Matches))
	for _, m := range r.Matches {
		out[m.NewEntity] = m.PriorEntity
	}
	return out
}
