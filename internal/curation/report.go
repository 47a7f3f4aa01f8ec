package curation

import (
	"time"

	"voicecohort/internal/cohort"
	"voicecohort/internal/ledger"
	"voicecohort/internal/recording"
	"voicecohort/internal/submissions"
)

// Decision stages.
const (
	StagePositive = "positive"
	StageControl  = "control"
)

// PersonResult pairs a submission id with its recording validation outcome.
type PersonResult struct {
	ID     string
	Result recording.Result
}

// Report captures everything a run decided.
type Report struct {
	RunID       string
	DatasetRoot string
	OutputDir   string
	StartedAt   time.Time
	FinishedAt  time.Time

	// Columns lists the flattened submission columns in document order.
	Columns     []string
	Submissions int
	Filter      submissions.FilterStats
	Positives   int
	Negatives   int

	PositiveRejections []PersonResult
	// Validation holds the result for every person whose recordings were
	// examined, including the trimmed buffers of valid recordings.
	Validation map[string]recording.Result

	Cohort cohort.Cohort
	// Unmatched lists positives that found no control, even when they were
	// dropped from Cohort.
	Unmatched []string
	Balance   cohort.Balance

	// Dataset is open only while exporters run.
	Dataset *recording.Dataset
}

// ValidPositives returns the number of positives whose recordings passed.
func (r *Report) ValidPositives() int {
	return r.Positives - len(r.PositiveRejections)
}

// Duration reports the run wall time.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Decisions flattens the report into ledger decisions in the order they were made.
func (r *Report) Decisions() []ledger.Decision {
	var out []ledger.Decision
	for _, rej := range r.PositiveRejections {
		out = append(out, ledger.Decision{PersonID: rej.ID, Stage: StagePositive, Result: ledger.ResultRejected, Reason: rej.Result.Reason})
	}
	rejections := make(map[string][]cohort.Rejection)
	for _, rej := range r.Cohort.Rejections {
		rejections[rej.PositiveID] = append(rejections[rej.PositiveID], rej)
	}
	dropped := make(map[string]struct{})
	for _, id := range r.Unmatched {
		dropped[id] = struct{}{}
	}

	for _, pair := range r.Cohort.Pairs {
		delete(dropped, pair.PositiveID)
		out = append(out, ledger.Decision{PersonID: pair.PositiveID, Stage: StagePositive, Result: ledger.ResultAccepted})
		for _, rej := range rejections[pair.PositiveID] {
			out = append(out, ledger.Decision{PersonID: rej.CandidateID, Stage: StageControl, Result: ledger.ResultRejected, Reason: rej.Result.Reason, RelatedID: pair.PositiveID})
		}
		delete(rejections, pair.PositiveID)
		if pair.Matched() {
			out = append(out, ledger.Decision{PersonID: pair.ControlID, Stage: StageControl, Result: ledger.ResultAssigned, RelatedID: pair.PositiveID})
		} else {
			out = append(out, ledger.Decision{PersonID: pair.PositiveID, Stage: StagePositive, Result: ledger.ResultUnmatched, Reason: "no valid control candidate"})
		}
	}
	for _, id := range r.Unmatched {
		if _, ok := dropped[id]; !ok {
			continue
		}
		for _, rej := range rejections[id] {
			out = append(out, ledger.Decision{PersonID: rej.CandidateID, Stage: StageControl, Result: ledger.ResultRejected, Reason: rej.Result.Reason, RelatedID: id})
		}
		out = append(out, ledger.Decision{PersonID: id, Stage: StagePositive, Result: ledger.ResultDropped, Reason: "no valid control candidate"})
	}
	return out
}

// LedgerRun summarizes the report as a ledger run row.
func (r *Report) LedgerRun() ledger.Run {
	return ledger.Run{
		ID:             r.RunID,
		Dataset:        r.DatasetRoot,
		OutputDir:      r.OutputDir,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Submissions:    r.Submissions,
		Filtered:       r.Filter.Kept,
		Positives:      r.Positives,
		Negatives:      r.Negatives,
		ValidPositives: r.ValidPositives(),
		Controls:       len(r.Cohort.MatchedControls()),
		Unmatched:      len(r.Unmatched),
	}
}
