package testsupport

import (
	"archive/zip"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SampleRate is the rate used by generated fixtures.
const SampleRate = 8000

// Cough returns a one second signal: 0.3 s of silence, 0.4 s of a 440 Hz tone
// at the given amplitude, then 0.3 s of silence.
func Cough(amplitude float64) []float64 {
	samples := make([]float64, SampleRate)
	start, end := int(0.3*SampleRate), int(0.7*SampleRate)
	for i := start; i < end; i++ {
		samples[i] = amplitude * math.Sin(2*math.Pi*440*float64(i)/SampleRate)
	}
	return samples
}

// Clipped returns a square wave at full scale, which is entirely clipped.
func Clipped() []float64 {
	samples := make([]float64, SampleRate/2)
	for i := range samples {
		if (i/20)%2 == 0 {
			samples[i] = 1
		} else {
			samples[i] = -1
		}
	}
	return samples
}

// WriteWAV encodes samples as a mono 16-bit PCM WAV file at path.
func WriteWAV(t testing.TB, path string, rate int, samples []float64) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(math.Round(math.Max(-1, math.Min(1, s)) * 32767))
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder %s: %v", path, err)
	}
}

// ZipDir archives every file under dir into zipPath, storing each entry
// below the data/ prefix used by raw dataset exports.
func ZipDir(t testing.TB, dir, zipPath string) {
	t.Helper()

	out, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create %s: %v", zipPath, err)
	}
	defer out.Close()
	zw := zip.NewWriter(out)
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		w, err := zw.Create("data/" + filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
	if err != nil {
		t.Fatalf("zip %s: %v", dir, err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("finalize %s: %v", zipPath, err)
	}
}
