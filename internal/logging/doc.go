// Package logging assembles structured slog loggers and formatting helpers used
// across voicecohort.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so curation stages automatically tag log
// lines with run IDs, person IDs, and stage names. Rejections and cohort
// assignments are logged through DecisionAttrs so an operator can audit every
// cohort composition decision from the log alone. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
