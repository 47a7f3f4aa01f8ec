// Package main hosts the voicecohort CLI entrypoint and command graph.
//
// The Cobra-based command tree loads configuration, runs curation passes over
// a dataset folder or archive, inspects individual recordings, and reads back
// the audit ledger of earlier runs.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
