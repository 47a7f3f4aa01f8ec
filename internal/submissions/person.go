package submissions

import (
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"
)

// Person is one flattened submission keyed by its identifier.
type Person struct {
	id     string
	fields map[string]any
}

// NewPerson builds a person from already flattened fields.
func NewPerson(id string, fields map[string]any) *Person {
	copied := make(map[string]any, len(fields))
	maps.Copy(copied, fields)
	return &Person{id: id, fields: copied}
}

// ID returns the submission identifier.
func (p *Person) ID() string {
	return p.id
}

// Value returns the raw flattened value of field.
func (p *Person) Value(field string) (any, bool) {
	v, ok := p.fields[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// HasValue reports whether field is present and not null.
func (p *Person) HasValue(field string) bool {
	_, ok := p.Value(field)
	return ok
}

// Text renders field as a string; missing values render empty.
func (p *Person) Text(field string) string {
	v, ok := p.Value(field)
	if !ok {
		return ""
	}
	return formatValue(v)
}

// Number returns field as a float64 when it holds a number.
func (p *Person) Number(field string) (float64, bool) {
	v, ok := p.Value(field)
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

// RecordingKinds lists the recording types referenced by the person, for
// example "cough" for a non-null recordings.cough field.
func (p *Person) RecordingKinds(prefix string) []string {
	var kinds []string
	for field, v := range p.fields {
		if v == nil || !strings.HasPrefix(field, prefix) {
			continue
		}
		kinds = append(kinds, strings.TrimPrefix(field, prefix))
	}
	sort.Strings(kinds)
	return kinds
}

// Fields returns a copy of the flattened fields.
func (p *Person) Fields() map[string]any {
	out := make(map[string]any, len(p.fields))
	maps.Copy(out, p.fields)
	return out
}

func (p *Person) clone() *Person {
	return NewPerson(p.id, p.fields)
}

func (p *Person) set(field string, value any) {
	if value == nil {
		delete(p.fields, field)
		return
	}
	p.fields[field] = value
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
