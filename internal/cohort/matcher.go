package cohort

import (
	"context"
	"log/slog"

	"voicecohort/internal/logging"
	"voicecohort/internal/recording"
	"voicecohort/internal/services"
	"voicecohort/internal/submissions"
)

// CandidateValidator checks whether a person's recordings are usable.
type CandidateValidator func(ctx context.Context, person *submissions.Person) recording.Result

// Matcher assigns one distinct control to each positive case.
type Matcher struct {
	keyFields []string
	validate  CandidateValidator
	logger    *slog.Logger
}

// NewMatcher constructs a matcher over keyFields in priority order.
func NewMatcher(keyFields []string, validate CandidateValidator, logger *slog.Logger) *Matcher {
	return &Matcher{
		keyFields: keyFields,
		validate:  validate,
		logger:    logging.NewComponentLogger(logger, "cohort"),
	}
}

// Build matches every positive against the negatives. The assigned-control
// set is owned by this loop; a control is never assigned twice and a
// positive id is never used as a control. A positive with no valid unused
// candidate gets an empty control.
func (m *Matcher) Build(ctx context.Context, positives, negatives []*submissions.Person) (Cohort, error) {
	var result Cohort
	assigned := make(map[string]struct{}, len(positives))
	for _, p := range positives {
		assigned[p.ID()] = struct{}{}
	}
	memo := make(map[string]recording.Result)

	for _, positive := range positives {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		pctx := services.WithPersonID(ctx, positive.ID())
		logger := logging.WithContext(pctx, m.logger)

		pair := Pair{PositiveID: positive.ID(), Positive: positive}
		for _, candidate := range Rank(positive, negatives, m.keyFields) {
			id := candidate.Person.ID()
			if _, used := assigned[id]; used {
				continue
			}
			res, seen := memo[id]
			if !seen {
				res = m.validate(services.WithPersonID(ctx, id), candidate.Person)
				memo[id] = res
				result.Validated++
			}
			if !res.Valid {
				if !seen {
					result.Rejections = append(result.Rejections, Rejection{PositiveID: positive.ID(), CandidateID: id, Result: res})
					logging.WarnWithContext(logger, "control candidate rejected", "control_rejected",
						logging.String("candidate_id", id),
						logging.String("reason", res.Reason),
						logging.String(logging.FieldErrorHint, "inspect the candidate recordings"),
						logging.String(logging.FieldImpact, "next closest candidate considered"),
					)
				}
				continue
			}
			assigned[id] = struct{}{}
			pair.ControlID = id
			pair.Control = candidate.Person
			pair.Distance = candidate.Distance
			break
		}

		if pair.Matched() {
			logger.Info("control assigned", logging.Args(append(
				logging.DecisionAttrs("control_match", "assigned", "closest valid candidate"),
				logging.String("control_id", pair.ControlID),
			)...)...)
		} else {
			logging.WarnWithContext(logger, "no valid control candidate", "cohort_unmatched",
				logging.String(logging.FieldErrorHint, "add more negative submissions or relax key fields"),
				logging.String(logging.FieldImpact, "positive kept without a control"),
			)
		}
		result.Pairs = append(result.Pairs, pair)
	}
	return result, nil
}
