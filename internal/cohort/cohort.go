package cohort

import (
	"voicecohort/internal/recording"
	"voicecohort/internal/submissions"
)

// Pair links a positive case to its assigned control. ControlID is empty
// when no valid control could be found.
type Pair struct {
	PositiveID string
	ControlID  string
	Positive   *submissions.Person
	Control    *submissions.Person
	// Distance is the control's distance vector to the positive.
	Distance []float64
}

// Matched reports whether the pair has a control.
func (p Pair) Matched() bool {
	return p.ControlID != ""
}

// Rejection records a candidate control whose recordings failed validation.
type Rejection struct {
	PositiveID  string
	CandidateID string
	Result      recording.Result
}

// Cohort is the ordered result of matching.
type Cohort struct {
	Pairs      []Pair
	Rejections []Rejection
	// Validated counts candidates whose recordings were examined.
	Validated int
}

// Positives returns the positive ids in input order.
func (c Cohort) Positives() []string {
	ids := make([]string, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		ids = append(ids, p.PositiveID)
	}
	return ids
}

// Controls returns the control ids index-aligned with Positives. Unmatched
// positives hold an empty id.
func (c Cohort) Controls() []string {
	ids := make([]string, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		ids = append(ids, p.ControlID)
	}
	return ids
}

// MatchedControls returns the assigned control ids only, in pair order.
func (c Cohort) MatchedControls() []string {
	ids := make([]string, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		if p.Matched() {
			ids = append(ids, p.ControlID)
		}
	}
	return ids
}

// Unmatched returns positive ids that have no control.
func (c Cohort) Unmatched() []string {
	var ids []string
	for _, p := range c.Pairs {
		if !p.Matched() {
			ids = append(ids, p.PositiveID)
		}
	}
	return ids
}

// PositivePeople returns the positive records in order.
func (c Cohort) PositivePeople() []*submissions.Person {
	people := make([]*submissions.Person, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		people = append(people, p.Positive)
	}
	return people
}

// ControlPeople returns the control records index-aligned with
// PositivePeople. Unmatched positives hold nil.
func (c Cohort) ControlPeople() []*submissions.Person {
	people := make([]*submissions.Person, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		people = append(people, p.Control)
	}
	return people
}

// WithoutUnmatched returns a copy of the cohort restricted to matched pairs.
func (c Cohort) WithoutUnmatched() Cohort {
	out := Cohort{Rejections: c.Rejections, Validated: c.Validated}
	for _, p := range c.Pairs {
		if p.Matched() {
			out.Pairs = append(out.Pairs, p)
		}
	}
	return out
}
