// Package ledger persists an audit trail of curation runs in SQLite.
//
// Each run records where the dataset came from, how many records survived
// each stage, and the cohort balance summary. Every accept, reject, and
// assignment decision made during the run is stored alongside it so an
// operator can later explain why a submission was or was not selected.
//
// Schema changes bump schemaVersion in schema.go; users delete the ledger
// file to adopt a new schema.
package ledger
