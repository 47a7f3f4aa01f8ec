// Package config loads, normalizes, and validates voicecohort configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VOICECOHORT_OUTPUT_DIR and VOICECOHORT_S3_BUCKET. The Config type
// centralizes every knob the curation run and the CLI need: recording quality
// thresholds, matching fields, export toggles, and audit/metrics outputs.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
