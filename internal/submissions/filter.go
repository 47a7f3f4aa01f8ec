package submissions

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"voicecohort/internal/config"
)

// Rules configures Filter.
type Rules struct {
	KeyFields          []string
	AgeField           string
	GenderField        string
	SmokingField       string
	RecordingsPrefix   string
	ExcludedGenders    []string
	SmokingCorrections map[string]string
	MinAge             float64
	MaxAge             float64
}

// RulesFromConfig maps the [matching] config section onto filter rules.
func RulesFromConfig(m config.Matching) Rules {
	return Rules{
		KeyFields:          m.KeyFields,
		AgeField:           m.AgeField,
		GenderField:        m.GenderField,
		SmokingField:       m.SmokingField,
		RecordingsPrefix:   m.RecordingsPrefix,
		ExcludedGenders:    m.ExcludedGenders,
		SmokingCorrections: m.SmokingCorrections,
		MinAge:             m.MinAge,
		MaxAge:             m.MaxAge,
	}
}

// FilterStats counts what Filter removed or changed.
type FilterStats struct {
	Input          int
	NoRecordings   int
	MissingField   map[string]int
	ExcludedGender int
	AgeOutOfRange  int
	Corrected      int
	Kept           int
}

// Dropped returns the total number of removed rows.
func (s FilterStats) Dropped() int {
	return s.Input - s.Kept
}

// Filter returns a new table holding the people that pass the data-quality
// rules. Rules run in key-field order, mirroring how each key field is
// cleaned before the next one is considered. Categorical values are compared
// in canonical form but exported as submitted. The input table is not modified.
func Filter(t *Table, rules Rules) (*Table, FilterStats) {
	stats := FilterStats{Input: t.Len(), MissingField: make(map[string]int)}
	excluded := make(map[string]struct{}, len(rules.ExcludedGenders))
	for _, g := range rules.ExcludedGenders {
		excluded[Canonical(g)] = struct{}{}
	}
	corrections := make(map[string]string, len(rules.SmokingCorrections))
	for from, to := range rules.SmokingCorrections {
		corrections[Canonical(from)] = to
	}

	out := newTable(t.columns)
	for _, original := range t.People {
		if len(original.RecordingKinds(rules.RecordingsPrefix)) == 0 {
			stats.NoRecordings++
			continue
		}
		p := original.clone()
		if rules.AgeField != "" {
			p.set(rules.AgeField, coerceNumber(p.fields[rules.AgeField]))
		}

		keep := true
		for _, field := range rules.KeyFields {
			if !p.HasValue(field) {
				stats.MissingField[field]++
				keep = false
				break
			}
			switch field {
			case rules.GenderField:
				if _, ok := excluded[Canonical(p.Text(field))]; ok {
					stats.ExcludedGender++
					keep = false
				}
			case rules.SmokingField:
				if fixed, ok := corrections[Canonical(p.Text(field))]; ok {
					p.set(field, fixed)
					stats.Corrected++
				}
			case rules.AgeField:
				age, _ := p.Number(field)
				if age <= rules.MinAge || age >= rules.MaxAge {
					stats.AgeOutOfRange++
					keep = false
				}
			}
			if !keep {
				break
			}
		}
		if keep {
			out.People = append(out.People, p)
		}
	}
	stats.Kept = out.Len()
	return out, stats
}

// Canonical returns the NFC form of a categorical value with surrounding
// whitespace removed.
func Canonical(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// MissingFields returns the key fields that caused drops, sorted.
func (s FilterStats) MissingFields() []string {
	fields := make([]string, 0, len(s.MissingField))
	for f := range s.MissingField {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

func coerceNumber(v any) any {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		return n
	case bool:
		if val {
			return 1.0
		}
		return 0.0
	default:
		return nil
	}
}
