package export

import (
	"encoding/json"

	"voicecohort/internal/submissions"
)

// cellValue converts a flattened field into a value a spreadsheet cell accepts.
func cellValue(p *submissions.Person, column string) any {
	v, ok := p.Value(column)
	if !ok {
		return nil
	}
	switch v.(type) {
	case string, float64, bool:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return p.Text(column)
		}
		return string(data)
	}
}
