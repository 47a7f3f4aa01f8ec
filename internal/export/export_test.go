package export_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xuri/excelize/v2"

	"voicecohort/internal/cohort"
	"voicecohort/internal/config"
	"voicecohort/internal/curation"
	"voicecohort/internal/export"
	"voicecohort/internal/logging"
	"voicecohort/internal/recording"
	"voicecohort/internal/submissions"
	"voicecohort/internal/testsupport"
)

func newReport(t *testing.T, cfg *config.Config) *curation.Report {
	t.Helper()
	dir := cfg.Paths.DatasetRoot
	testsupport.WriteWAV(t, filepath.Join(dir, "pos1", "cough.wav"), 48000, testsupport.Cough(0.5))
	testsupport.WriteFile(t, filepath.Join(dir, "pos1", "meta.txt"), []byte("meta"))
	testsupport.WriteWAV(t, filepath.Join(dir, "neg1", "cough.wav"), testsupport.SampleRate, testsupport.Cough(0.4))

	ds, err := recording.OpenDataset(dir)
	if err != nil {
		t.Fatalf("open dataset: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })

	pos := submissions.NewPerson("pos1", map[string]any{"_id": "pos1", "formData.age": 41.0, "formData.gender": "Female", "tags": []any{"a", "b"}})
	neg := submissions.NewPerson("neg1", map[string]any{"_id": "neg1", "formData.age": 40.0, "formData.gender": "Female"})
	return &curation.Report{
		RunID:   "run-123",
		Columns: []string{"_id", "formData.gender", "formData.age", "tags"},
		Cohort: cohort.Cohort{Pairs: []cohort.Pair{{
			PositiveID: "pos1", ControlID: "neg1", Positive: pos, Control: neg,
		}}},
		Dataset: ds,
	}
}

func TestSpreadsheetWritesBothSheets(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	report := newReport(t, cfg)

	if err := export.NewSpreadsheet(cfg.Paths.OutputDir).Export(context.Background(), report); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenFile(filepath.Join(cfg.Paths.OutputDir, export.SpreadsheetFile))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != export.PositiveSheet || sheets[1] != export.ControlSheet {
		t.Fatalf("sheets = %v", sheets)
	}
	rows, err := f.GetRows(export.PositiveSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "_id" || rows[1][0] != "pos1" || rows[1][2] != "41" || rows[1][3] != `["a","b"]` {
		t.Fatalf("positive rows = %v", rows)
	}
	rows, err = f.GetRows(export.ControlSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "neg1" {
		t.Fatalf("control rows = %v", rows)
	}
}

func TestGroupJSONKeepsColumnOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	report := newReport(t, cfg)

	if err := export.NewGroupJSON(cfg.Paths.OutputDir).Export(context.Background(), report); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, export.ControlsJSONFile))
	if err != nil {
		t.Fatal(err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0]["_id"] != "neg1" {
		t.Fatalf("records = %v", records)
	}
	if v, ok := records[0]["tags"]; !ok || v != nil {
		t.Fatalf("missing column should be null, got %v (%v)", v, ok)
	}
	text := string(data)
	if strings.Index(text, `"_id"`) > strings.Index(text, `"formData.age"`) {
		t.Fatalf("columns out of order:\n%s", text)
	}
}

// withUnmatched appends a positive that found no control.
func withUnmatched(report *curation.Report) {
	lonely := submissions.NewPerson("pos2", map[string]any{"_id": "pos2", "formData.age": 70.0, "formData.gender": "Male"})
	report.Cohort.Pairs = append(report.Cohort.Pairs, cohort.Pair{PositiveID: "pos2", Positive: lonely})
}

func TestGroupJSONAlignsUnmatchedPositives(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	report := newReport(t, cfg)
	withUnmatched(report)

	if err := export.NewGroupJSON(cfg.Paths.OutputDir).Export(context.Background(), report); err != nil {
		t.Fatalf("export: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, export.ControlsJSONFile))
	if err != nil {
		t.Fatal(err)
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 || records[0]["_id"] != "neg1" || records[1] != nil {
		t.Fatalf("records = %v", records)
	}
}

func TestSpreadsheetAlignsUnmatchedPositives(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	report := newReport(t, cfg)
	withUnmatched(report)

	if err := export.NewSpreadsheet(cfg.Paths.OutputDir).Export(context.Background(), report); err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenFile(filepath.Join(cfg.Paths.OutputDir, export.SpreadsheetFile))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	positives, err := f.GetRows(export.PositiveSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(positives) != 3 || positives[2][0] != "pos2" {
		t.Fatalf("positive rows = %v", positives)
	}
	cell, err := f.GetCellValue(export.ControlSheet, "A3")
	if err != nil {
		t.Fatal(err)
	}
	if cell != "" {
		t.Fatalf("control row for unmatched positive = %q, want blank", cell)
	}
	cell, err = f.GetCellValue(export.ControlSheet, "A2")
	if err != nil || cell != "neg1" {
		t.Fatalf("control row 2 = %q, %v", cell, err)
	}
}

func TestFilesCopiesAndResamples(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Export.ApplyVADAndResampling = true
	report := newReport(t, cfg)

	if err := export.NewFiles(cfg, logging.NewNop()).Export(context.Background(), report); err != nil {
		t.Fatalf("export: %v", err)
	}

	meta, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, cfg.Export.PositiveDir, "pos1", "meta.txt"))
	if err != nil || string(meta) != "meta" {
		t.Fatalf("meta copy = %q, %v", meta, err)
	}

	for _, path := range []string{
		filepath.Join(cfg.Paths.OutputDir, cfg.Export.PositiveDir, "pos1", "cough.wav"),
		filepath.Join(cfg.Paths.OutputDir, cfg.Export.ControlDir, "neg1", "cough.wav"),
	} {
		in, err := os.Open(path)
		if err != nil {
			t.Fatalf("open %s: %v", path, err)
		}
		rec, err := recording.Decode(in)
		_ = in.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		if rec.SampleRate != cfg.Export.TargetSampleRate {
			t.Fatalf("%s rate = %d", path, rec.SampleRate)
		}
		if rec.Duration().Seconds() >= 1 {
			t.Fatalf("%s was not trimmed: %v", path, rec.Duration())
		}
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, export.ManifestFile))
	if err != nil {
		t.Fatal(err)
	}
	var manifest []export.ManifestEntry
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatal(err)
	}
	if len(manifest) != 3 || manifest[0].Group != cfg.Export.ControlDir || manifest[0].SHA256 == "" {
		t.Fatalf("manifest = %+v", manifest)
	}
}

func TestFilesCopiesVerbatimWithoutResampling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	report := newReport(t, cfg)

	if err := export.NewFiles(cfg, nil).Export(context.Background(), report); err != nil {
		t.Fatalf("export: %v", err)
	}
	src, err := os.ReadFile(filepath.Join(cfg.Paths.DatasetRoot, "pos1", "cough.wav"))
	if err != nil {
		t.Fatal(err)
	}
	dst, err := os.ReadFile(filepath.Join(cfg.Paths.OutputDir, cfg.Export.PositiveDir, "pos1", "cough.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if string(src) != string(dst) {
		t.Fatal("copied wav differs from source")
	}
}

func TestFilesReplacesPreviousSelection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	report := newReport(t, cfg)
	files := export.NewFiles(cfg, nil)
	if err := files.Export(context.Background(), report); err != nil {
		t.Fatalf("first export: %v", err)
	}

	testsupport.WriteWAV(t, filepath.Join(cfg.Paths.DatasetRoot, "neg2", "cough.wav"), testsupport.SampleRate, testsupport.Cough(0.4))
	neg2 := submissions.NewPerson("neg2", map[string]any{"_id": "neg2", "formData.age": 42.0, "formData.gender": "Female"})
	report.Cohort.Pairs[0].ControlID = "neg2"
	report.Cohort.Pairs[0].Control = neg2
	if err := files.Export(context.Background(), report); err != nil {
		t.Fatalf("second export: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(cfg.Paths.OutputDir, cfg.Export.ControlDir))
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if strings.Join(got, ",") != "neg2" {
		t.Fatalf("control folders = %v, want [neg2]", got)
	}
}

type fakePutter struct {
	mu   sync.Mutex
	keys map[string]string
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if *in.Bucket != "curated" {
		return nil, errors.New("unexpected bucket " + *in.Bucket)
	}
	f.keys[*in.Key] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func TestS3PublisherUploadsOutputFolder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.S3.Bucket = "curated"
	cfg.S3.Prefix = "/cohorts/"
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.OutputDir, "positives.json"), []byte("[]"))
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.OutputDir, "control_group", "n1", "cough.wav"), []byte("wav"))
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.OutputDir, ".voicecohort.lock"), nil)

	fake := &fakePutter{keys: map[string]string{}}
	pub := export.NewS3PublisherWithClient(fake, cfg, logging.NewNop())
	if err := pub.Export(context.Background(), &curation.Report{RunID: "run-1"}); err != nil {
		t.Fatalf("export: %v", err)
	}

	var keys []string
	for k := range fake.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	want := []string{"cohorts/run-1/control_group/n1/cough.wav", "cohorts/run-1/positives.json"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	if fake.keys["cohorts/run-1/positives.json"] != "[]" {
		t.Fatal("object body mismatch")
	}
}

func TestFromConfigHonorsToggles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutExports())
	exporters, err := export.FromConfig(context.Background(), cfg, nil)
	if err != nil || len(exporters) != 0 {
		t.Fatalf("exporters = %v, %v", exporters, err)
	}
	cfg.Export.CreateXLSX = true
	cfg.Export.CopyFiles = true
	exporters, err = export.FromConfig(context.Background(), cfg, nil)
	if err != nil || len(exporters) != 2 || exporters[0].Name() != "xlsx" || exporters[1].Name() != "files" {
		t.Fatalf("exporters = %v, %v", exporters, err)
	}
}
