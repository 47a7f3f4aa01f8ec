package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateValidation(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateS3(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateValidation() error {
	v := c.Validation
	if v.SilenceThreshold < 0 || v.SilenceThreshold > 1 {
		return errors.New("validation.silence_threshold must be between 0 and 1")
	}
	if v.TrimBufferSeconds < 0 {
		return errors.New("validation.trim_buffer_seconds must be non-negative")
	}
	if v.NormalizationFactorThreshold <= 1 {
		return errors.New("validation.normalization_factor_threshold must be greater than 1")
	}
	if v.MinTrimmedSeconds < 0 {
		return errors.New("validation.min_trimmed_seconds must be non-negative")
	}
	if v.ClipLevel <= 0 || v.ClipLevel > 1 {
		return errors.New("validation.clip_level must be in (0, 1]")
	}
	if v.ClippedRatioThreshold < 0 || v.ClippedRatioThreshold > 1 {
		return errors.New("validation.clipped_ratio_threshold must be between 0 and 1")
	}
	switch v.ClippingMode {
	case ClippingModeSamples, ClippingModeLegacy:
	default:
		return fmt.Errorf("validation.clipping_mode: unsupported value %q (use %q or %q)", v.ClippingMode, ClippingModeSamples, ClippingModeLegacy)
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if len(m.KeyFields) == 0 {
		return errors.New("matching.key_fields must list at least one field")
	}
	if slices.Contains(m.KeyFields, m.IDField) {
		return fmt.Errorf("matching.key_fields must not include the id field %q", m.IDField)
	}
	if slices.Contains(m.KeyFields, m.DiagnosisField) {
		return fmt.Errorf("matching.key_fields must not include the diagnosis field %q", m.DiagnosisField)
	}
	if m.AgeField != "" {
		if idx := slices.Index(m.KeyFields, m.AgeField); idx >= 0 && idx != len(m.KeyFields)-1 {
			return fmt.Errorf("matching.key_fields: numeric field %q must be listed last", m.AgeField)
		}
	}
	if m.MaxAge <= m.MinAge {
		return errors.New("matching.max_age must be greater than matching.min_age")
	}
	return nil
}

func (c *Config) validateExport() error {
	if c.Export.PositiveDir == c.Export.ControlDir {
		return errors.New("export.positive_dir and export.control_dir must differ")
	}
	for key, dir := range map[string]string{"positive_dir": c.Export.PositiveDir, "control_dir": c.Export.ControlDir} {
		if !filepath.IsLocal(dir) || filepath.Clean(dir) == "." {
			return fmt.Errorf("export.%s must be a folder inside the output directory, got %q", key, dir)
		}
	}
	if c.Export.ApplyVADAndResampling && c.Export.TargetSampleRate < 1000 {
		return errors.New("export.target_sample_rate must be at least 1000 Hz")
	}
	return nil
}

func (c *Config) validateS3() error {
	if !c.S3.Enabled {
		return nil
	}
	if c.S3.Bucket == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/voicecohort/config.toml"
		}
		return fmt.Errorf("s3.bucket is required when s3.enabled is true. Set VOICECOHORT_S3_BUCKET or edit %s", defaultPath)
	}
	return nil
}
