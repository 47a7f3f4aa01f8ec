package export

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"voicecohort/internal/curation"
	"voicecohort/internal/fileutil"
	"voicecohort/internal/services"
	"voicecohort/internal/submissions"
)

// GroupJSON writes positives.json and controlgroup.json as arrays of records
// whose keys follow the submissions column order.
type GroupJSON struct {
	outputDir string
}

// NewGroupJSON returns a JSON exporter writing into outputDir.
func NewGroupJSON(outputDir string) *GroupJSON {
	return &GroupJSON{outputDir: outputDir}
}

func (g *GroupJSON) Name() string { return "json" }

func (g *GroupJSON) Export(_ context.Context, report *curation.Report) error {
	groups := []struct {
		file   string
		people []*submissions.Person
	}{
		{PositivesJSONFile, report.Cohort.PositivePeople()},
		{ControlsJSONFile, report.Cohort.ControlPeople()},
	}
	for _, group := range groups {
		data, err := encodeRecords(report.Columns, group.people)
		if err != nil {
			return services.Wrap(services.ErrExternal, "export", "json", "encode "+group.file, err)
		}
		path := filepath.Join(g.outputDir, group.file)
		err = fileutil.WriteFileAtomic(path, 0o644, func(f *os.File) error {
			_, err := f.Write(data)
			return err
		})
		if err != nil {
			return services.Wrap(services.ErrExternal, "export", "json", "write "+path, err)
		}
	}
	return nil
}

// encodeRecords renders people as a JSON array of objects. Missing fields
// encode as null so every record carries every column. A nil person encodes
// as null so control rows stay index-aligned with positives.
func encodeRecords(columns []string, people []*submissions.Person) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, p := range people {
		if i > 0 {
			buf.WriteByte(',')
		}
		if p == nil {
			buf.WriteString("null")
			continue
		}
		buf.WriteByte('{')
		for j, column := range columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(column)
			if err != nil {
				return nil, err
			}
			v, _ := p.Value(column)
			value, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
