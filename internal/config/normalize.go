package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeValidation()
	c.normalizeMatching()
	c.normalizeExport()
	c.normalizeS3()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("VOICECOHORT_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.DatasetRoot = strings.TrimSpace(c.Paths.DatasetRoot)
	if c.Paths.DatasetRoot != "" {
		if c.Paths.DatasetRoot, err = expandPath(c.Paths.DatasetRoot); err != nil {
			return fmt.Errorf("paths.dataset_root: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeValidation() {
	c.Validation.ClippingMode = strings.ToLower(strings.TrimSpace(c.Validation.ClippingMode))
	if c.Validation.ClippingMode == "" {
		c.Validation.ClippingMode = defaultClippingMode
	}
	if c.Validation.Workers <= 0 {
		c.Validation.Workers = 1
	}
}

func (c *Config) normalizeMatching() {
	c.Matching.IDField = strings.TrimSpace(c.Matching.IDField)
	if c.Matching.IDField == "" {
		c.Matching.IDField = defaultIDField
	}
	c.Matching.DiagnosisField = strings.TrimSpace(c.Matching.DiagnosisField)
	if c.Matching.DiagnosisField == "" {
		c.Matching.DiagnosisField = defaultDiagnosisField
	}
	c.Matching.PositiveValue = strings.TrimSpace(c.Matching.PositiveValue)
	if c.Matching.PositiveValue == "" {
		c.Matching.PositiveValue = defaultPositiveValue
	}
	c.Matching.AgeField = strings.TrimSpace(c.Matching.AgeField)
	c.Matching.GenderField = strings.TrimSpace(c.Matching.GenderField)
	c.Matching.SmokingField = strings.TrimSpace(c.Matching.SmokingField)
	c.Matching.RecordingsPrefix = strings.TrimSpace(c.Matching.RecordingsPrefix)
	if c.Matching.RecordingsPrefix == "" {
		c.Matching.RecordingsPrefix = defaultRecordingsPrefix
	}

	fields := make([]string, 0, len(c.Matching.KeyFields))
	seen := make(map[string]struct{}, len(c.Matching.KeyFields))
	for _, field := range c.Matching.KeyFields {
		trimmed := strings.TrimSpace(field)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		fields = append(fields, trimmed)
	}
	if len(fields) == 0 {
		fields = defaultKeyFields()
	}
	c.Matching.KeyFields = fields
}

func (c *Config) normalizeExport() {
	if c.Export.TargetSampleRate <= 0 {
		c.Export.TargetSampleRate = defaultTargetSampleRate
	}
	c.Export.PositiveDir = strings.TrimSpace(c.Export.PositiveDir)
	if c.Export.PositiveDir == "" {
		c.Export.PositiveDir = defaultPositiveDir
	}
	c.Export.ControlDir = strings.TrimSpace(c.Export.ControlDir)
	if c.Export.ControlDir == "" {
		c.Export.ControlDir = defaultControlDir
	}
}

func (c *Config) normalizeS3() {
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	if c.S3.Bucket == "" {
		if value, ok := os.LookupEnv("VOICECOHORT_S3_BUCKET"); ok {
			c.S3.Bucket = strings.TrimSpace(value)
		}
	}
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	if value, ok := os.LookupEnv("AWS_REGION"); ok && strings.TrimSpace(value) != "" && (c.S3.Region == "" || c.S3.Region == defaultS3Region) {
		c.S3.Region = strings.TrimSpace(value)
	}
	if c.S3.Region == "" {
		c.S3.Region = defaultS3Region
	}
	c.S3.Endpoint = strings.TrimSpace(c.S3.Endpoint)
	c.S3.Prefix = strings.Trim(strings.TrimSpace(c.S3.Prefix), "/")
}

func (c *Config) normalizeLedger() error {
	var err error
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = defaultLedgerPath
	}
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	c.Metrics.TextfilePath = strings.TrimSpace(c.Metrics.TextfilePath)
	if c.Metrics.TextfilePath == "" {
		return nil
	}
	if c.Metrics.TextfilePath, err = expandPath(c.Metrics.TextfilePath); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
