// Package services defines shared plumbing consumed by the curation stages
// and their collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, person IDs, and stage names for
//     logging and auditing.
//   - Structured error markers plus the Wrap helper that separate per-record
//     failures (decode, quality) from run-level failures (structural input,
//     configuration, external services).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error classification, observability) stays uniform across the pipeline.
package services
