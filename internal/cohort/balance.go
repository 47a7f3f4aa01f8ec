package cohort

import (
	"github.com/montanaflynn/stats"

	"voicecohort/internal/submissions"
)

// GroupStats summarizes the numeric demographics of one group.
type GroupStats struct {
	Count     int
	AgeMean   float64
	AgeMedian float64
	AgeStdDev float64
	AgeMin    float64
	AgeMax    float64
}

// FieldBalance describes how closely matched pairs agree on one key field.
type FieldBalance struct {
	Field string
	// Agreement is the share of matched pairs with zero distance on the field.
	Agreement float64
	// MeanDistance is the average distance over matched pairs.
	MeanDistance float64
}

// Balance compares the positive and control groups of a cohort.
type Balance struct {
	Positive GroupStats
	Control  GroupStats
	Fields   []FieldBalance
	Matched  int
}

// ComputeBalance summarizes the cohort over keyFields. ageField selects the
// numeric field used for the group statistics.
func ComputeBalance(c Cohort, keyFields []string, ageField string) Balance {
	b := Balance{
		Positive: groupStats(c.PositivePeople(), ageField),
		Control:  groupStats(c.ControlPeople(), ageField),
	}

	distances := make([][]float64, len(keyFields))
	for _, p := range c.Pairs {
		if !p.Matched() || len(p.Distance) != len(keyFields) {
			continue
		}
		b.Matched++
		for i, d := range p.Distance {
			distances[i] = append(distances[i], d)
		}
	}
	for i, field := range keyFields {
		fb := FieldBalance{Field: field}
		if n := len(distances[i]); n > 0 {
			zero := 0
			for _, d := range distances[i] {
				if d == 0 {
					zero++
				}
			}
			fb.Agreement = float64(zero) / float64(n)
			fb.MeanDistance, _ = stats.Mean(distances[i])
		}
		b.Fields = append(b.Fields, fb)
	}
	return b
}

func groupStats(people []*submissions.Person, ageField string) GroupStats {
	var g GroupStats
	var ages stats.Float64Data
	for _, p := range people {
		if p == nil {
			continue
		}
		g.Count++
		if age, ok := p.Number(ageField); ok {
			ages = append(ages, age)
		}
	}
	if len(ages) == 0 {
		return g
	}
	g.AgeMean, _ = stats.Mean(ages)
	g.AgeMedian, _ = stats.Median(ages)
	g.AgeStdDev, _ = stats.StandardDeviation(ages)
	g.AgeMin, _ = stats.Min(ages)
	g.AgeMax, _ = stats.Max(ages)
	return g
}
