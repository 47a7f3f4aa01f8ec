package services_test

import (
	"context"
	"testing"

	"voicecohort/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithPersonID(ctx, "5e730b5d")
	ctx = services.WithStage(ctx, "matching")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-1" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.PersonIDFromContext(ctx); !ok || id != "5e730b5d" {
		t.Fatalf("unexpected person id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "matching" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithPersonID(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.PersonIDFromContext(ctx); ok {
		t.Fatal("expected no person id")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id")
	}
}
