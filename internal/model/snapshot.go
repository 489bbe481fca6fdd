package model

// SnapshotRow is one (entity, field, value) fact from a transformed resource
type SnapshotRow struct {
	Entity int64  `json:"entity"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

// DuplicateMatch pairs a newly introduced entity with the prior entity it duplicates
type DuplicateMatch struct {
	NewEntity   int64 `json:"new_entity"`
	PriorEntity int64 `json:"prior_entity"`
}

// Issue is one row of the reporting issue summary that drives batch duplicate checks
type Issue struct {
	IssueType    string `json:"issue_type"`
	Dataset      string `json:"dataset"`
	Collection   string `json:"collection"`
	Pipeline     string `json:"pipeline"`
	Resource     string `json:"resource"`
	Endpoint     string `json:"endpoint"`
	Organisation string `json:"organisation"`
	Scope        string `json:"scope"`
}

// Scope names used to select issues for a batch run
const (
	ScopeODP          = "odp"
	ScopeMandated     = "mandated"
	ScopeSingleSource = "single-source"
)

// ValidScope reports whether s is one of the known scopes
func ValidScope(s string) bool {
	switch s {
	case ScopeODP, ScopeMandated, ScopeSingleSource:
		return true
	}
	return false
}
