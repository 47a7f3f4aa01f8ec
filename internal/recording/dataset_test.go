package recording_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"voicecohort/internal/recording"
	"voicecohort/internal/services"
	"voicecohort/internal/testsupport"
)

func buildDataset(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "dataset")
	testsupport.WriteSubmissions(t, dir, testsupport.Submission{ID: "p1", Recordings: []string{"cough"}})
	testsupport.WriteWAV(t, filepath.Join(dir, "p1", "cough.wav"), testsupport.SampleRate, testsupport.Cough(0.5))
	testsupport.WriteWAV(t, filepath.Join(dir, "p1", "voice.wav"), testsupport.SampleRate, testsupport.Cough(0.4))
	testsupport.WriteFile(t, filepath.Join(dir, "p1", "notes.txt"), []byte("hello"))
	testsupport.WriteWAV(t, filepath.Join(dir, "p2", "cough.wav"), testsupport.SampleRate, testsupport.Cough(0.5))
	testsupport.WriteWAV(t, filepath.Join(dir, "p2", "voice.wav"), testsupport.SampleRate, make([]float64, 400))
	testsupport.WriteFile(t, filepath.Join(dir, "p3", "cough.wav"), []byte("not a wav"))
	return dir
}

func TestDatasetDirectoryAndZipAgree(t *testing.T) {
	dir := buildDataset(t)
	zipPath := filepath.Join(t.TempDir(), "export.zip")
	testsupport.ZipDir(t, dir, zipPath)

	v := recording.NewValidator(recording.DefaultOptions())
	for _, root := range []string{dir, zipPath} {
		ds, err := recording.OpenDataset(root)
		if err != nil {
			t.Fatalf("open %s: %v", root, err)
		}
		t.Cleanup(func() { _ = ds.Close() })

		if _, err := ds.ReadSubmissions(); err != nil {
			t.Fatalf("%s: read submissions: %v", root, err)
		}
		files, err := ds.PersonFiles("p1")
		if err != nil || len(files) != 3 {
			t.Fatalf("%s: files = %v, err = %v", root, files, err)
		}
		wavs, err := ds.Recordings("p1")
		if err != nil || len(wavs) != 2 || wavs[0] != "cough.wav" {
			t.Fatalf("%s: recordings = %v, err = %v", root, wavs, err)
		}

		cases := map[string]string{
			"p1":      "",
			"p2":      recording.ReasonSilence,
			"p3":      recording.ReasonCorrupted,
			"missing": recording.ReasonNoRecordings,
		}
		for id, reason := range cases {
			got := ds.ValidatePerson(v, id)
			if reason == "" && !got.Valid {
				t.Fatalf("%s: %s rejected: %s", root, id, got.Reason)
			}
			if reason != "" && got.Reason != reason {
				t.Fatalf("%s: %s reason = %q, want %q", root, id, got.Reason, reason)
			}
		}
	}
}

func TestOpenDatasetErrors(t *testing.T) {
	if _, err := recording.OpenDataset(filepath.Join(t.TempDir(), "absent")); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	plain := filepath.Join(t.TempDir(), "data.csv")
	testsupport.WriteFile(t, plain, []byte("x"))
	if _, err := recording.OpenDataset(plain); !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected ErrStructural, got %v", err)
	}

	empty := t.TempDir()
	ds, err := recording.OpenDataset(empty)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := ds.ReadSubmissions(); !errors.Is(err, services.ErrStructural) {
		t.Fatalf("missing submissions should be structural, got %v", err)
	}
}

func TestEncodeDecodeAndResample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	rec := recording.Recording{Samples: testsupport.Cough(0.5), SampleRate: 16000}
	if err := recording.Encode(f, rec); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_ = f.Close()

	in, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()
	decoded, err := recording.Decode(in)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.SampleRate != 16000 || len(decoded.Samples) != len(rec.Samples) {
		t.Fatalf("decoded rate=%d len=%d", decoded.SampleRate, len(decoded.Samples))
	}
	if p := recording.Peak(decoded.Samples); p < 0.49 || p > 0.51 {
		t.Fatalf("decoded peak = %v", p)
	}

	same, err := recording.Resample(decoded, 16000)
	if err != nil || len(same.Samples) != len(decoded.Samples) {
		t.Fatalf("same-rate resample changed data: %v", err)
	}
	down, err := recording.Resample(decoded, 8000)
	if err != nil {
		t.Fatalf("resample: %v", err)
	}
	// Half a second of audio at 8 kHz, including the resampler's buffered tail.
	if down.SampleRate != 8000 || len(down.Samples) < 3990 || len(down.Samples) > 4000 {
		t.Fatalf("resampled rate=%d len=%d, want 4000 samples", down.SampleRate, len(down.Samples))
	}
}

func TestValidatePersonReportsUnreadableFolder(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := buildDataset(t)
	locked := filepath.Join(dir, "p1")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	ds, err := recording.OpenDataset(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = ds.Close() })

	got := ds.ValidatePerson(recording.NewValidator(recording.DefaultOptions()), "p1")
	if got.Valid || got.Code() != "unreadable_recordings" {
		t.Fatalf("result = %+v, want unreadable recordings", got)
	}
	if !errors.Is(got.Err(), services.ErrExternal) {
		t.Fatalf("unreadable folder should classify as external, got %v", got.Err())
	}
}
