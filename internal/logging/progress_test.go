package logging

import "testing"

func TestProgressEmitsOncePerBucket(t *testing.T) {
	p := NewProgress(20, 25)
	var emitted []int
	for range 20 {
		done, _, ok := p.Step()
		if ok {
			emitted = append(emitted, done)
		}
	}
	want := []int{5, 10, 15, 20}
	if len(emitted) != len(want) {
		t.Fatalf("emitted at %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted at %v, want %v", emitted, want)
		}
	}
}

func TestProgressDefaultsAndOverflow(t *testing.T) {
	p := NewProgress(1, 0)
	if p.bucketSize != 10 {
		t.Fatalf("bucketSize = %v, want 10", p.bucketSize)
	}
	if _, pct, ok := p.Step(); !ok || pct != 100 {
		t.Fatalf("final step = %v/%v, want emit at 100", pct, ok)
	}
	if _, _, ok := p.Step(); ok {
		t.Fatal("steps past the total should not emit")
	}
}

func TestProgressNilAndEmpty(t *testing.T) {
	var p *Progress
	if _, _, ok := p.Step(); ok {
		t.Fatal("nil progress should not emit")
	}
	empty := NewProgress(0, 10)
	if _, _, ok := empty.Step(); ok {
		t.Fatal("zero-total progress should not emit")
	}
}
