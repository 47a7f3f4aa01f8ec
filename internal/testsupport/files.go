package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Submission builds one nested submissions.json record with the fields the
// matcher uses. Empty strings are omitted; age <= 0 omits the age.
type Submission struct {
	ID        string
	Diagnosed string
	Gender    string
	Smoking   string
	Country   string
	Age       float64
	// Recordings adds a recordings.<kind> reference per entry.
	Recordings []string
	// Extra is merged into formData.
	Extra map[string]any
}

// Record renders the submission in the nested layout of a raw export.
func (s Submission) Record() map[string]any {
	form := map[string]any{}
	if s.Gender != "" {
		form["gender"] = s.Gender
	}
	if s.Smoking != "" {
		form["smokingHabits"] = s.Smoking
	}
	if s.Country != "" {
		form["country"] = s.Country
	}
	if s.Age > 0 {
		form["age"] = s.Age
	}
	if s.Diagnosed != "" {
		form["covid19"] = map[string]any{"diagnosedCovid19": s.Diagnosed}
	}
	for k, v := range s.Extra {
		form[k] = v
	}
	record := map[string]any{"_id": s.ID, "formData": form}
	if len(s.Recordings) > 0 {
		recs := map[string]any{}
		for _, kind := range s.Recordings {
			recs[kind] = s.ID + "/" + kind + ".wav"
		}
		record["recordings"] = recs
	}
	return record
}

// WriteSubmissions writes submissions.json under dir.
func WriteSubmissions(t testing.TB, dir string, subs ...Submission) string {
	t.Helper()

	records := make([]map[string]any, 0, len(subs))
	for _, s := range subs {
		records = append(records, s.Record())
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		t.Fatalf("marshal submissions: %v", err)
	}
	path := filepath.Join(dir, "submissions.json")
	WriteFile(t, path, data)
	return path
}
