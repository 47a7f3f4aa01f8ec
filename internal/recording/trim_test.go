package recording_test

import (
	"math"
	"testing"

	"voicecohort/internal/recording"
	"voicecohort/internal/testsupport"
)

func defaultTrim() recording.TrimOptions {
	return recording.DefaultOptions().TrimOptions()
}

func TestNormalizeScalesPeakToOne(t *testing.T) {
	out := recording.Normalize([]float64{0.1, -0.25, 0.05})
	if got := recording.Peak(out); got != 1 {
		t.Fatalf("peak = %v, want 1", got)
	}
	if out[1] != -1 {
		t.Fatalf("sign not preserved: %v", out)
	}
	if recording.Normalize([]float64{0, 0}) != nil {
		t.Fatal("expected nil for silent input")
	}
}

func TestTrimReturnsContiguousNormalizedWindow(t *testing.T) {
	samples := testsupport.Cough(0.5)
	normalized := recording.Normalize(samples)
	trimmed := recording.Trim(samples, testsupport.SampleRate, defaultTrim())

	if len(trimmed) == 0 || len(trimmed) >= len(samples) {
		t.Fatalf("unexpected trimmed length %d of %d", len(trimmed), len(samples))
	}
	if got := recording.Peak(trimmed); got != 1 {
		t.Fatalf("trimmed peak = %v, want 1", got)
	}

	offset := -1
	for start := 0; start+len(trimmed) <= len(normalized); start++ {
		if normalized[start] == trimmed[0] && normalized[start+len(trimmed)-1] == trimmed[len(trimmed)-1] {
			match := true
			for i := range trimmed {
				if normalized[start+i] != trimmed[i] {
					match = false
					break
				}
			}
			if match {
				offset = start
				break
			}
		}
	}
	if offset < 0 {
		t.Fatal("trimmed output is not a contiguous window of the normalized input")
	}
	buffer := int(testsupport.SampleRate * defaultTrim().BufferSeconds)
	if math.Abs(trimmed[buffer]) <= defaultTrim().Threshold {
		t.Fatalf("sample after buffer = %v, expected above threshold", trimmed[buffer])
	}
}

func TestTrimIsIdempotentWhenBufferFits(t *testing.T) {
	once := recording.Trim(testsupport.Cough(0.5), testsupport.SampleRate, defaultTrim())
	twice := recording.Trim(once, testsupport.SampleRate, defaultTrim())
	if len(once) != len(twice) {
		t.Fatalf("second trim changed length: %d -> %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("sample %d differs: %v vs %v", i, once[i], twice[i])
		}
	}
}

func TestTrimKeepsWholeSignalBelowThreshold(t *testing.T) {
	samples := []float64{0.1, 0.1, 0.1, 0.1}
	// normalized every sample is 1.0, so all exceed the threshold
	if got := recording.Trim(samples, 10, defaultTrim()); len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	opts := recording.TrimOptions{Threshold: 1, BufferSeconds: 0}
	if got := recording.Trim([]float64{0.5, 1, 0.5}, 10, opts); len(got) != 3 {
		t.Fatalf("no sample above threshold should keep everything, got %d", len(got))
	}
}

func TestTrimClampsBufferToSignalBounds(t *testing.T) {
	samples := []float64{1, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	got := recording.Trim(samples, 100, recording.TrimOptions{Threshold: 0.2, BufferSeconds: 1})
	if len(got) != len(samples) {
		t.Fatalf("len = %d, want %d", len(got), len(samples))
	}
}
