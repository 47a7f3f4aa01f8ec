// Package cohort builds a demographically matched control group for a set of
// positive cases.
//
// For each positive, in order, every candidate control is ranked by a
// distance vector over the configured key fields: absolute difference for
// numeric fields, 0 or 1 for categorical ones. Vectors are compared
// lexicographically in key-field priority order with a stable sort, so ties
// keep the candidates' original order. The matcher walks the ranking, skips
// controls already assigned to an earlier positive, validates the next
// candidate's recordings, and assigns the first valid one. Validation results
// are memoized for the run, so a rejected candidate is never re-examined.
package cohort
