package main

import (
	"path/filepath"
	"testing"

	"voicecohort/internal/testsupport"
)

func TestInspectReportsEachRecording(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "wavs")
	good := filepath.Join(dir, "good.wav")
	clipped := filepath.Join(dir, "clipped.wav")
	silent := filepath.Join(dir, "silent.wav")
	testsupport.WriteWAV(t, good, testsupport.SampleRate, testsupport.Cough(0.5))
	testsupport.WriteWAV(t, clipped, testsupport.SampleRate, testsupport.Clipped())
	testsupport.WriteWAV(t, silent, testsupport.SampleRate, make([]float64, 800))
	broken := filepath.Join(dir, "broken.wav")
	testsupport.WriteFile(t, broken, []byte("not a wav"))

	out, _, err := runCLI(t, []string{"inspect", good, clipped, silent, broken}, env.configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "good.wav")
	requireContains(t, out, "valid")
	requireContains(t, out, "too clipped (")
	requireContains(t, out, "silence file")
	requireContains(t, out, "corrupted file")

	if _, _, err := runCLI(t, []string{"inspect", "--strict", good, silent}, env.configPath); err == nil {
		t.Fatal("expected --strict to fail on an invalid recording")
	}
	if _, _, err := runCLI(t, []string{"inspect", "--strict", good}, env.configPath); err != nil {
		t.Fatalf("inspect --strict on valid file: %v", err)
	}
}
