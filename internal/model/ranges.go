package model

import "fmt"

// EntityRange is an inclusive block of entity identifiers owned by one organisation
type EntityRange struct {
	Dataset      string `json:"dataset"`
	Organisation string `json:"organisation"`
	Minimum      int64  `json:"entity_minimum"`
	Maximum      int64  `json:"entity_maximum"`
}

// Intersects reports whether two ranges of the same dataset share an entity
func (r EntityRange) Intersects(o EntityRange) bool {
	return r.Dataset == o.Dataset && r.Minimum <= o.Maximum && o.Minimum <= r.Maximum
}

func (r EntityRange) String() string {
	return fmt.Sprintf("%s %s [%d-%d]", r.Dataset, r.Organisation, r.Minimum, r.Maximum)
}

// Overlap names two ranges of one dataset whose entity intervals intersect.
// Current sorts after Previous by entity-minimum.
type Overlap struct {
	Dataset  string      `json:"dataset"`
	Current  EntityRange `json:"current"`
	Previous EntityRange `json:"previous"`
}

func (o Overlap) String() string {
	return fmt.Sprintf("%s: %s [%d-%d] overlaps %s [%d-%d]",
		o.Dataset,
		o.Current.Organisation, o.Current.Minimum, o.Current.Maximum,
		o.Previous.Organisation, o.Previous.Minimum, o.Previous.Maximum)
}
