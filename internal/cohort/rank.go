package cohort

import (
	"math"
	"slices"

	"voicecohort/internal/submissions"
)

// Ranked pairs a candidate with its distance vector to the target.
type Ranked struct {
	Person   *submissions.Person
	Distance []float64
}

// Distance computes the per-field distance between target and candidate.
// Numeric fields use the absolute difference; any other value scores 0 when
// equal and 1 otherwise. A candidate missing a numeric field is infinitely far.
func Distance(target, candidate *submissions.Person, keyFields []string) []float64 {
	out := make([]float64, len(keyFields))
	for i, field := range keyFields {
		if want, ok := target.Number(field); ok {
			got, ok := candidate.Number(field)
			if !ok {
				out[i] = math.Inf(1)
				continue
			}
			out[i] = math.Abs(got - want)
			continue
		}
		if submissions.Canonical(target.Text(field)) != submissions.Canonical(candidate.Text(field)) {
			out[i] = 1
		}
	}
	return out
}

// Rank orders candidates from most to least similar to target. The sort is
// stable, so equally distant candidates keep their input order.
func Rank(target *submissions.Person, candidates []*submissions.Person, keyFields []string) []Ranked {
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{Person: c, Distance: Distance(target, c, keyFields)}
	}
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return compareVectors(a.Distance, b.Distance)
	})
	return ranked
}

func compareVectors(a, b []float64) int {
	for i := range min(len(a), len(b)) {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return len(a) - len(b)
}
