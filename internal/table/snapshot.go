package table

import (
	"io"

	"github.com/ppiankov/entorg/internal/model"
)

// ReadSnapshot parses a transformed resource into entity facts. Rows without a
// usable entity are not facts about any entity and are counted in skipped.
func ReadSnapshot(r io.Reader) (rows []model.SnapshotRow, skipped int, err error) {
	t, err := Read(r)
	if err != nil {
		return nil, 0, err
	}

	cols, err := t.Require([]string{"entity"}, []string{"field"}, []string{"value"})
	if err != nil {
		return nil, 0, err
	}

	rows = make([]model.SnapshotRow, 0, len(t.Records))
	for _, rec := range t.Records {
		entity, perr := parseEntity(Field(rec, cols[0]))
		if perr != nil {
			skipped++
			continue
		}
		rows = append(rows, model.SnapshotRow{
			Entity: entity,
			Field:  Field(rec, cols[1]),
			Value:  Field(rec, cols[2]),
		})
	}

	return rows, skipped, nil
}
