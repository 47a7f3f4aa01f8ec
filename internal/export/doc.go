// Package export turns a curation report into the artifacts handed to the
// model-training pipeline: a two-sheet spreadsheet of the selected
// submissions, one JSON file per group, per-person folders of recordings,
// and optionally a copy of the whole output folder in S3-compatible object
// storage.
package export
