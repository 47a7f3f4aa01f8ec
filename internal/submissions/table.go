package submissions

import (
	"fmt"
	"slices"

	"github.com/tidwall/gjson"

	"voicecohort/internal/services"
)

// Table is an ordered set of people plus the columns observed while loading.
type Table struct {
	People  []*Person
	columns []string
	index   map[string]struct{}
}

func newTable(columns []string) *Table {
	t := &Table{index: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

func (t *Table) addColumn(name string) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = struct{}{}
	t.columns = append(t.columns, name)
}

// Columns returns the column names in document order.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// HasColumn reports whether any record carried field.
func (t *Table) HasColumn(field string) bool {
	_, ok := t.index[field]
	return ok
}

// Len returns the number of people.
func (t *Table) Len() int {
	return len(t.People)
}

// Require returns a structural error naming the first missing column.
func (t *Table) Require(fields ...string) error {
	for _, f := range fields {
		if !t.HasColumn(f) {
			return services.Wrap(services.ErrStructural, "submissions", "require column", fmt.Sprintf("column %q not found in submissions", f), nil)
		}
	}
	return nil
}

// Split partitions people by whether field equals value, keeping order.
func (t *Table) Split(field, value string) (matching, rest []*Person) {
	for _, p := range t.People {
		if p.Text(field) == value {
			matching = append(matching, p)
		} else {
			rest = append(rest, p)
		}
	}
	return matching, rest
}

// Load parses a submissions export. Nested objects are flattened into dotted
// paths; arrays and scalars are kept as leaf values.
func Load(data []byte, idField string) (*Table, error) {
	if !gjson.ValidBytes(data) {
		return nil, services.Wrap(services.ErrStructural, "submissions", "load", "submissions is not valid JSON", nil)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, services.Wrap(services.ErrStructural, "submissions", "load", "submissions must be a JSON array of records", nil)
	}

	table := newTable(nil)
	seen := make(map[string]int)
	var loadErr error
	row := 0
	root.ForEach(func(_, record gjson.Result) bool {
		row++
		if !record.IsObject() {
			loadErr = services.Wrap(services.ErrStructural, "submissions", "load", fmt.Sprintf("record %d is not an object", row), nil)
			return false
		}
		fields := make(map[string]any)
		flatten("", record, fields, table)
		id, ok := fields[idField]
		if !ok || id == nil {
			loadErr = services.Wrap(services.ErrStructural, "submissions", "load", fmt.Sprintf("record %d has no %q", row, idField), nil)
			return false
		}
		person := &Person{id: formatValue(id), fields: fields}
		if first, dup := seen[person.id]; dup {
			loadErr = services.Wrap(services.ErrStructural, "submissions", "load", fmt.Sprintf("duplicate id %q in records %d and %d", person.id, first, row), nil)
			return false
		}
		seen[person.id] = row
		table.People = append(table.People, person)
		return true
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return table, nil
}

func flatten(prefix string, value gjson.Result, out map[string]any, table *Table) {
	value.ForEach(func(key, child gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		if child.IsObject() && len(child.Map()) > 0 {
			flatten(name, child, out, table)
			return true
		}
		table.addColumn(name)
		out[name] = leafValue(child)
		return true
	})
}

func leafValue(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.Number:
		return v.Num
	case gjson.String:
		return v.Str
	case gjson.True:
		return true
	case gjson.False:
		return false
	default:
		return v.Value()
	}
}
