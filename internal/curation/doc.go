// Package curation drives one end-to-end dataset curation run.
//
// A run opens the dataset, loads and filters the submissions table, splits it
// into positive cases and candidate controls, validates the recordings of
// every positive, matches a control to each surviving positive, and hands the
// resulting Report to the configured exporters. Every decision is recorded in
// the audit ledger and the run metrics when those are enabled.
//
// Per-record problems (undecodable audio, poor quality, no control found)
// never fail a run; they surface as rejection reasons in the Report and as
// WARN logs. Structural problems with the submissions export abort the run.
package curation
