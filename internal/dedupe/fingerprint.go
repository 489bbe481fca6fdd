// Package dedupe detects newly harvested entities that repeat existing content.
package dedupe

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/entorg/internal/model"
)

// Fingerprint is the canonical encoding of an entity's non-volatile field/value
// set. Equal fingerprints mean equal sets.
type Fingerprint string

// Normalizer rewrites values before they are fingerprinted. The zero value
// leaves values untouched.
type Normalizer struct {
	TrimSpace     bool // Strip surrounding whitespace
	CollapseSpace bool // Replace internal whitespace runs with a single space
	Round         bool // Round decimal numbers to Precision places
	Precision     int
}

var (
	spaceRun = regexp.MustCompile(`\s+`)
	decimal  = regexp.MustCompile(`-?\d+\.\d+`)
)

// NormalizerFromConfig builds the normalizer configured for fingerprinting
func NormalizerFromConfig(cfg model.FingerprintConfig) Normalizer {
	return Normalizer{
		TrimSpace:     cfg.TrimSpace,
		CollapseSpace: cfg.CollapseSpace,
		Round:         cfg.CoordinatePrecision >= 0,
		Precision:     cfg.CoordinatePrecision,
	}
}

// Normalize applies the enabled rules in order: collapse, trim, round
func (n Normalizer) Normalize(v string) string {
	if n.CollapseSpace {
		v = spaceRun.ReplaceAllString(v, " ")
	}
	if n.TrimSpace || n.CollapseSpace {
		v = strings.TrimSpace(v)
	}
	if n.Round {
		v = decimal.ReplaceAllStringFunc(v, n.round)
	}
	return v
}

func (n Normalizer) round(num string) string {
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return num
	}
	scale := math.Pow(10, float64(n.Precision))
	f = math.Round(f*scale) / scale
	if f == 0 {
		f = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(f, 'f', n.Precision, 64)
}

// Fingerprinter builds fingerprints excluding volatile bookkeeping fields
type Fingerprinter struct {
	volatile   map[string]bool
	normalizer Normalizer
}

// NewFingerprinter creates a fingerprinter ignoring the given fields
func NewFingerprinter(volatile []string, normalizer Normalizer) *Fingerprinter {
	f := &Fingerprinter{
		volatile:   make(map[string]bool, len(volatile)),
		normalizer: normalizer,
	}
	for _, field := range volatile {
		f.volatile[strings.TrimSpace(field)] = true
	}
	return f
}

// FromConfig creates the fingerprinter described by cfg
func FromConfig(cfg model.FingerprintConfig) *Fingerprinter {
	return NewFingerprinter(cfg.VolatileFields, NormalizerFromConfig(cfg))
}

// Fields returns the comparable field/value map of every entity in rows,
// keyed by entity, plus the entities in first-appearance order. A field
// repeated within one entity keeps its last value.
func (f *Fingerprinter) Fields(rows []model.SnapshotRow) (map[int64]map[string]string, []int64) {
	fields := make(map[int64]map[string]string)
	var order []int64

	for _, row := range rows {
		m, ok := fields[row.Entity]
		if !ok {
			m = make(map[string]string)
			fields[row.Entity] = m
			order = append(order, row.Entity)
		}
		if f.volatile[row.Field] {
			continue
		}
		m[row.Field] = f.normalizer.Normalize(row.Value)
	}

	return fields, order
}

// Of encodes a field/value map as a Fingerprint
func Of(fields map[string]string) Fingerprint {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		// length prefixes keep separators inside values unambiguous
		b.WriteString(strconv.Itoa(len(k)))
		b.WriteByte(':')
		b.WriteString(k)
		v := fields[k]
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return Fingerprint(b.String())
}
