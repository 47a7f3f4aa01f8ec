package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a curation run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Decision outcomes.
const (
	ResultAccepted  = "accepted"
	ResultRejected  = "rejected"
	ResultAssigned  = "assigned"
	ResultUnmatched = "unmatched"
	ResultDropped   = "dropped"
)

// Run is one curation run.
type Run struct {
	ID             string
	Dataset        string
	OutputDir      string
	Status         Status
	StartedAt      time.Time
	FinishedAt     time.Time
	Submissions    int
	Filtered       int
	Positives      int
	Negatives      int
	ValidPositives int
	Controls       int
	Unmatched      int
	BalanceJSON    string
	ErrorMessage   string
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Decision is one accept, reject, or assignment made during a run.
type Decision struct {
	Seq      int
	PersonID string
	// Stage is "positive" or "control".
	Stage  string
	Result string
	Reason string
	// RelatedID links a control decision to its positive case.
	RelatedID string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}
