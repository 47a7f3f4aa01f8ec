package services_test

import (
	"errors"
	"strings"
	"testing"

	"voicecohort/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStructural, "submissions", "load", "missing column", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"submissions", "load", "missing column"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestIsRecordLevel(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.Wrap(services.ErrDecode, "recording", "decode", "bad header", nil), true},
		{services.Wrap(services.ErrQuality, "recording", "validate", "silence file", nil), true},
		{services.Wrap(services.ErrStructural, "submissions", "load", "bad json", nil), false},
		{services.Wrap(services.ErrConfiguration, "config", "load", "bad key", nil), false},
		{nil, false},
	}
	for _, tc := range cases {
		if got := services.IsRecordLevel(tc.err); got != tc.want {
			t.Fatalf("IsRecordLevel(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
