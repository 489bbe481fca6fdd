package model

// LookupRow is one raw ownership claim read from a pipeline lookup table
type LookupRow struct {
	Dataset      string `json:"dataset"`
	Entity       int64  `json:"entity"`
	Organisation string `json:"organisation"`
}

// ResolvedOwnership is an entity after a single owning organisation has been picked
type ResolvedOwnership struct {
	Dataset      string `json:"dataset"`
	Entity       int64  `json:"entity"`
	Organisation string `json:"organisation"`
}

// Conflict is an entity whose ownership could not be resolved without an operator decision
type Conflict struct {
	Dataset    string   `json:"dataset"`
	Entity     int64    `json:"entity"`
	Candidates []string `json:"candidates"` // Sorted, distinct
	Reason     string   `json:"reason"`
}

// OrganisationKind classifies an organisation by its namespace
type OrganisationKind int

const (
	KindOther          OrganisationKind = 0 // Unprefixed or any other namespace
	KindLocalAuthority OrganisationKind = 1 // local-authority:<code>
	KindGovernment     OrganisationKind = 2 // government-organisation:<code>
)

func (k OrganisationKind) String() string {
	switch k {
	case KindLocalAuthority:
		return "local-authority"
	case KindGovernment:
		return "government"
	default:
		return "other"
	}
}
