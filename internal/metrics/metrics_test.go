package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"voicecohort/internal/metrics"
)

func TestRecorderCountsAndWrites(t *testing.T) {
	r := metrics.New()
	r.Decision("positive", "accepted")
	r.Decision("positive", "accepted")
	r.Rejection("control", "silence_file")
	r.Dropped("no_recordings", 3)
	r.Dropped("ignored", 0)
	r.Cohort(2, 1, 1)
	start := time.Unix(1000, 0)
	r.Finished(start, start.Add(1500*time.Millisecond))

	if got, err := testutil.GatherAndCount(r.Registry(), "voicecohort_decisions_total"); err != nil || got != 1 {
		t.Fatalf("decision series = %d, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "out", "metrics.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`voicecohort_decisions_total{result="accepted",stage="positive"} 2`,
		`voicecohort_rejections_total{reason="no_recordings",stage="filter"} 3`,
		`voicecohort_cohort_size{group="unmatched"} 1`,
		`voicecohort_run_duration_seconds 1.5`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "ignored") {
		t.Fatal("zero drop count should not create a series")
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *metrics.Recorder
	r.Decision("positive", "accepted")
	r.Cohort(1, 1, 0)
	if err := r.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")); err != nil {
		t.Fatalf("nil recorder write: %v", err)
	}
}
