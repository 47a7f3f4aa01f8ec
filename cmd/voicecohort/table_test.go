package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"x"}, {"y", "z"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"A", "B", "x", "y", "z"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty render without headers")
	}
}

func TestColorizeSkipsNonTerminals(t *testing.T) {
	var buf bytes.Buffer
	if shouldColorize(&buf) {
		t.Fatal("buffer is not a terminal")
	}
	if got := colorize(&buf, "valid", nil); got != "valid" {
		t.Fatalf("colorize = %q", got)
	}
}
