package resolve

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Decisions are operator rulings for ambiguous entities, keyed by dataset then entity.
//
//	conservation-area:
//	  44000123: local-authority:LBH
type Decisions map[string]map[int64]string

// Decide implements Adjudicator
func (d Decisions) Decide(dataset string, entity int64, _ []string) (string, bool) {
	org, ok := d[dataset][entity]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(org), true
}

// Len returns the number of recorded decisions
func (d Decisions) Len() int {
	n := 0
	for _, byEntity := range d {
		n += len(byEntity)
	}
	return n
}

// ParseDecisions decodes a YAML decisions document
func ParseDecisions(r io.Reader) (Decisions, error) {
	d := Decisions{}
	if err := yaml.NewDecoder(r).Decode(&d); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode decisions: %w", err)
	}
	return d, nil
}

// LoadDecisions reads a decisions file. An empty path yields no decisions.
func LoadDecisions(path string) (Decisions, error) {
	if path == "" {
		return Decisions{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open decisions: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseDecisions(f)
}
