package testsupport

import (
	"path/filepath"
	"testing"

	"voicecohort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Exporters that touch the network are off; the ledger and metrics write
// under the temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DatasetRoot = filepath.Join(base, "dataset")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Ledger.Path = filepath.Join(base, "state", "ledger.db")
	cfgVal.Metrics.TextfilePath = filepath.Join(base, "output", "metrics.prom")
	cfgVal.Validation.Workers = 2
	cfgVal.S3.Enabled = false

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDatasetRoot points the config at an existing dataset.
func WithDatasetRoot(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.DatasetRoot = path
	}
}

// WithoutExports disables every file-producing exporter.
func WithoutExports() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.CreateXLSX = false
		b.cfg.Export.CreateGroupJSONs = false
		b.cfg.Export.CopyFiles = false
	}
}

// WithLedger toggles the audit ledger.
func WithLedger(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ledger.Enabled = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
