package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains dataset, output, and state locations.
type Paths struct {
	DatasetRoot string `toml:"dataset_root"`
	OutputDir   string `toml:"output_dir"`
	LogDir      string `toml:"log_dir"`
}

// Validation contains the recording quality thresholds.
type Validation struct {
	// SilenceThreshold is the normalized amplitude a sample must exceed to
	// count as signal when trimming leading/trailing silence. Default: 0.2
	SilenceThreshold float64 `toml:"silence_threshold"`
	// TrimBufferSeconds is kept on each side of the detected signal. Default: 0.2
	TrimBufferSeconds float64 `toml:"trim_buffer_seconds"`
	// NormalizationFactorThreshold is the largest gain (1/peak) a recording may
	// need before it is rejected as too quiet. Default: 50
	NormalizationFactorThreshold float64 `toml:"normalization_factor_threshold"`
	// MinTrimmedSeconds rejects recordings whose trimmed length is at or below
	// this value. Default: 0.0002
	MinTrimmedSeconds float64 `toml:"min_trimmed_seconds"`
	// ClipLevel is the normalized amplitude above which a sample is clipped. Default: 0.98
	ClipLevel float64 `toml:"clip_level"`
	// ClippedRatioThreshold is the largest tolerated clipped fraction. Default: 0.15
	ClippedRatioThreshold float64 `toml:"clipped_ratio_threshold"`
	// ClippingMode is "samples" (fraction of clipped samples) or "legacy".
	ClippingMode string `toml:"clipping_mode"`
	// Workers bounds concurrent recording validation of positive cases.
	Workers int `toml:"workers"`
}

// Matching contains the metadata fields that drive filtering and cohort matching.
type Matching struct {
	IDField          string   `toml:"id_field"`
	DiagnosisField   string   `toml:"diagnosis_field"`
	PositiveValue    string   `toml:"positive_value"`
	KeyFields        []string `toml:"key_fields"`
	AgeField         string   `toml:"age_field"`
	GenderField      string   `toml:"gender_field"`
	SmokingField     string   `toml:"smoking_field"`
	RecordingsPrefix string   `toml:"recordings_prefix"`
	ExcludedGenders  []string `toml:"excluded_genders"`
	// SmokingCorrections maps known misspelled categories to their canonical value.
	SmokingCorrections map[string]string `toml:"smoking_corrections"`
	MinAge             float64           `toml:"min_age"`
	MaxAge             float64           `toml:"max_age"`
	// DropUnmatched removes positives without a valid control from the exported cohort.
	DropUnmatched bool `toml:"drop_unmatched"`
}

// Export contains the collaborator toggles applied after matching.
type Export struct {
	CreateXLSX            bool   `toml:"create_xlsx"`
	CreateGroupJSONs      bool   `toml:"create_group_jsons"`
	CopyFiles             bool   `toml:"copy_files"`
	ApplyVADAndResampling bool   `toml:"apply_vad_and_resampling"`
	TargetSampleRate      int    `toml:"target_sample_rate"`
	PositiveDir           string `toml:"positive_dir"`
	ControlDir            string `toml:"control_dir"`
}

// S3 contains the optional object-storage publish target for the output folder.
type S3 struct {
	Enabled   bool   `toml:"enabled"`
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	Prefix    string `toml:"prefix"`
	PathStyle bool   `toml:"path_style"`
}

// Ledger contains the SQLite audit ledger location.
type Ledger struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Metrics contains the Prometheus textfile output settings.
type Metrics struct {
	Enabled bool `toml:"enabled"`
	// TextfilePath defaults to <output_dir>/metrics.prom when empty.
	TextfilePath string `toml:"textfile_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for voicecohort.
//
// Configuration sections by subsystem:
//   - Paths: dataset root, output folder, log directory
//   - Validation: recording quality thresholds
//   - Matching: metadata fields used for filtering and cohort matching
//   - Export: spreadsheet/JSON/file-copy collaborators
//   - S3: optional upload of the output folder
//   - Ledger: SQLite audit trail of runs and decisions
//   - Metrics: Prometheus textfile output
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Validation Validation `toml:"validation"`
	Matching   Matching   `toml:"matching"`
	Export     Export     `toml:"export"`
	S3         S3         `toml:"s3"`
	Ledger     Ledger     `toml:"ledger"`
	Metrics    Metrics    `toml:"metrics"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/voicecohort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("voicecohort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and state directories a run writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.LogDir}
	if c.Ledger.Enabled && strings.TrimSpace(c.Ledger.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.Ledger.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MetricsPath returns the resolved Prometheus textfile location.
func (c *Config) MetricsPath() string {
	if strings.TrimSpace(c.Metrics.TextfilePath) != "" {
		return c.Metrics.TextfilePath
	}
	return filepath.Join(c.Paths.OutputDir, "metrics.prom")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
