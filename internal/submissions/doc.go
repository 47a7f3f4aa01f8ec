// Package submissions loads the crowd-sourced submissions export and prepares
// it for cohort matching.
//
// The export is a JSON array of nested records. Load flattens every record
// into dotted field paths (formData.age, recordings.cough, ...) and keeps the
// column order of the document. Filter then applies the data-quality rules
// that precede matching: people without any recording reference are dropped,
// ages are coerced to numbers, rows missing a key field are dropped, and a
// few known categorical inconsistencies are corrected.
package submissions
