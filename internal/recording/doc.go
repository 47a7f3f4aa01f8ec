// Package recording decodes submission audio and decides whether it is usable
// for model training.
//
// Every recording goes through the same short-circuiting checks: it must
// decode, must not be digital silence, must not need more than the configured
// gain to reach full scale, must keep some signal once leading and trailing
// silence is trimmed, and must not be dominated by clipped samples. The first
// failing check names the rejection reason; results are values, never errors,
// so one malformed upload cannot abort a curation run.
//
// Trim and Normalize are exported on their own because the export stage
// reuses them when it writes trimmed, resampled copies of selected recordings.
package recording
