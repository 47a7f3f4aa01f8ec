package cohort_test

import (
	"context"
	"math"
	"reflect"
	"testing"

	"voicecohort/internal/cohort"
	"voicecohort/internal/logging"
	"voicecohort/internal/recording"
	"voicecohort/internal/submissions"
)

var keyFields = []string{"gender", "smoking", "country", "age"}

func person(id, gender, smoking, country string, age float64) *submissions.Person {
	return submissions.NewPerson(id, map[string]any{
		"_id":     id,
		"gender":  gender,
		"smoking": smoking,
		"country": country,
		"age":     age,
	})
}

func allValid(context.Context, *submissions.Person) recording.Result {
	return recording.Result{Valid: true}
}

func ids(ranked []cohort.Ranked) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Person.ID())
	}
	return out
}

func TestDistanceMixesNumericAndCategorical(t *testing.T) {
	p := person("p", "F", "Never", "IL", 40)
	c := person("c", "M", "Never", "IL", 43.5)
	got := cohort.Distance(p, c, keyFields)
	want := []float64{1, 0, 0, 3.5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("distance = %v, want %v", got, want)
	}

	missing := submissions.NewPerson("m", map[string]any{"gender": "F"})
	got = cohort.Distance(p, missing, keyFields)
	if got[1] != 1 || !math.IsInf(got[3], 1) {
		t.Fatalf("missing fields distance = %v", got)
	}
}

func TestRankPrefersHigherPriorityFields(t *testing.T) {
	p := person("p", "F", "Never", "IL", 40)
	a := person("A", "F", "Never", "IL", 41)
	b := person("B", "F", "Never", "IL", 40)
	c := person("C", "M", "Never", "IL", 40)
	d := person("D", "F", "Daily", "IL", 40)

	got := ids(cohort.Rank(p, []*submissions.Person{c, a, d, b}, keyFields))
	want := []string{"B", "A", "D", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rank = %v, want %v", got, want)
	}
}

func TestRankIsStableForTies(t *testing.T) {
	p := person("p", "F", "Never", "IL", 40)
	first := person("first", "F", "Never", "IL", 42)
	second := person("second", "F", "Never", "IL", 38)
	got := ids(cohort.Rank(p, []*submissions.Person{first, second}, keyFields))
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Fatalf("tie order = %v", got)
	}
}

func TestMatcherNeverReusesControls(t *testing.T) {
	positives := []*submissions.Person{
		person("p1", "F", "Never", "IL", 40),
		person("p2", "F", "Never", "IL", 40),
		person("p3", "F", "Never", "IL", 40),
	}
	negatives := []*submissions.Person{
		person("n1", "F", "Never", "IL", 40),
		person("n2", "F", "Never", "IL", 45),
	}
	m := cohort.NewMatcher(keyFields, allValid, logging.NewNop())
	got, err := m.Build(context.Background(), positives, negatives)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !reflect.DeepEqual(got.Positives(), []string{"p1", "p2", "p3"}) {
		t.Fatalf("positives = %v", got.Positives())
	}
	if !reflect.DeepEqual(got.Controls(), []string{"n1", "n2", ""}) {
		t.Fatalf("controls = %v", got.Controls())
	}
	if !reflect.DeepEqual(got.MatchedControls(), []string{"n1", "n2"}) {
		t.Fatalf("matched controls = %v", got.MatchedControls())
	}
	if people := got.ControlPeople(); len(people) != 3 || people[2] != nil {
		t.Fatalf("control people not aligned with positives: %v", people)
	}
	if !reflect.DeepEqual(got.Unmatched(), []string{"p3"}) {
		t.Fatalf("unmatched = %v", got.Unmatched())
	}
	if len(got.WithoutUnmatched().Pairs) != 2 {
		t.Fatalf("without unmatched = %d pairs", len(got.WithoutUnmatched().Pairs))
	}
}

func TestMatcherRetriesAfterInvalidCandidate(t *testing.T) {
	positives := []*submissions.Person{
		person("p1", "F", "Never", "IL", 40),
		person("p2", "F", "Never", "IL", 40),
	}
	negatives := []*submissions.Person{
		person("best", "F", "Never", "IL", 40),
		person("second", "F", "Never", "IL", 41),
		person("third", "F", "Never", "IL", 50),
	}
	calls := map[string]int{}
	validate := func(_ context.Context, p *submissions.Person) recording.Result {
		calls[p.ID()]++
		if p.ID() == "best" {
			return recording.Invalid(recording.ReasonSilence)
		}
		return recording.Result{Valid: true}
	}

	got, err := cohort.NewMatcher(keyFields, validate, logging.NewNop()).Build(context.Background(), positives, negatives)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !reflect.DeepEqual(got.Controls(), []string{"second", "third"}) {
		t.Fatalf("controls = %v", got.Controls())
	}
	if calls["best"] != 1 {
		t.Fatalf("rejected candidate validated %d times", calls["best"])
	}
	if len(got.Rejections) != 1 || got.Rejections[0].CandidateID != "best" || got.Rejections[0].Result.Reason != recording.ReasonSilence {
		t.Fatalf("rejections = %+v", got.Rejections)
	}
	if got.Validated != 3 {
		t.Fatalf("validated = %d, want 3", got.Validated)
	}
}

func TestMatcherHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := cohort.NewMatcher(keyFields, allValid, nil).Build(ctx, []*submissions.Person{person("p", "F", "N", "IL", 1)}, nil)
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestComputeBalance(t *testing.T) {
	positives := []*submissions.Person{
		person("p1", "F", "Never", "IL", 40),
		person("p2", "M", "Never", "IL", 60),
	}
	negatives := []*submissions.Person{
		person("n1", "F", "Never", "IL", 42),
		person("n2", "F", "Never", "IL", 58),
	}
	c, err := cohort.NewMatcher(keyFields, allValid, nil).Build(context.Background(), positives, negatives)
	if err != nil {
		t.Fatal(err)
	}
	b := cohort.ComputeBalance(c, keyFields, "age")
	if b.Positive.Count != 2 || b.Control.Count != 2 || b.Matched != 2 {
		t.Fatalf("balance counts = %+v", b)
	}
	if b.Positive.AgeMean != 50 || b.Control.AgeMean != 50 {
		t.Fatalf("age means = %v / %v", b.Positive.AgeMean, b.Control.AgeMean)
	}
	if b.Fields[0].Field != "gender" || b.Fields[0].Agreement != 0.5 {
		t.Fatalf("gender balance = %+v", b.Fields[0])
	}
	if b.Fields[3].MeanDistance != 2 {
		t.Fatalf("age mean distance = %v", b.Fields[3].MeanDistance)
	}
}
