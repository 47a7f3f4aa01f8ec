package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"voicecohort/internal/config"
	"voicecohort/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	datasetDir string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(homeDir, ".config", "voicecohort", "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		datasetDir: cfg.Paths.DatasetRoot,
		baseDir:    base,
	}
}

// writeCohortDataset lays out two positives and three negatives. The closest
// candidate for pos2 only holds digital silence.
func writeCohortDataset(t *testing.T, dir string) {
	t.Helper()
	person := func(id, diagnosed, gender string, age float64) testsupport.Submission {
		return testsupport.Submission{
			ID:         id,
			Diagnosed:  diagnosed,
			Gender:     gender,
			Smoking:    "Never",
			Country:    "Israel",
			Age:        age,
			Recordings: []string{"cough"},
		}
	}
	testsupport.WriteSubmissions(t, dir,
		person("pos1", "Yes", "Female", 40),
		person("neg_f41", "No", "Female", 41),
		person("pos2", "Yes", "Male", 60),
		person("neg_silent", "No", "Male", 60),
		person("neg_m58", "No", "Male", 58),
	)
	for _, id := range []string{"pos1", "pos2", "neg_f41", "neg_m58"} {
		testsupport.WriteWAV(t, filepath.Join(dir, id, "cough.wav"), testsupport.SampleRate, testsupport.Cough(0.5))
	}
	testsupport.WriteWAV(t, filepath.Join(dir, "neg_silent", "cough.wav"), testsupport.SampleRate, make([]float64, 800))
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--env-file", ""}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	testsupport.WriteFile(t, path, data)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// runIDFromOutput extracts the id printed on the "Run <id>" summary line.
func runIDFromOutput(t *testing.T, output string) string {
	t.Helper()
	for _, line := range strings.Split(output, "\n") {
		if id, ok := strings.CutPrefix(line, "Run "); ok {
			return strings.TrimSpace(id)
		}
	}
	t.Fatalf("no run id in output %q", output)
	return ""
}
