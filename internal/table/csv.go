// Package table reads and writes the delimited tables exchanged with the
// planning data pipelines.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyTable is returned when a table has no header or no data rows
	ErrEmptyTable = errors.New("empty table")

	// ErrMissingColumn is returned when a required column is absent
	ErrMissingColumn = errors.New("missing column")
)

// Table is a header plus its records, held in memory
type Table struct {
	Header  []string
	Records [][]string
	index   map[string]int
}

// Read parses a CSV table with a header row
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{Header: header, index: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", len(t.Records)+1, err)
		}
		t.Records = append(t.Records, rec)
	}

	return t, nil
}

// ReadFile opens and parses a CSV file
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return Read(f)
}

// Column returns the index of the first name present in the header
func (t *Table) Column(names ...string) (int, bool) {
	for _, name := range names {
		if i, ok := t.index[name]; ok {
			return i, true
		}
	}
	return -1, false
}

// Require resolves every column, failing with ErrMissingColumn on the first absent one
func (t *Table) Require(columns ...[]string) ([]int, error) {
	out := make([]int, len(columns))
	for i, alternatives := range columns {
		idx, ok := t.Column(alternatives...)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(alternatives, "|"))
		}
		out[i] = idx
	}
	return out, nil
}

// Field returns the value at column idx, or "" for short records
func Field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// WriteFile writes header and rows to path via a temp file and rename, so readers
// never see a partial table
func WriteFile(path string, header []string, rows [][]string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, header, rows); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Write encodes header and rows as CSV
func Write(w io.Writer, header []string, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}
