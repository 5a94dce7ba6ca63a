package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven/mocks"
)

func TestLedgerService_MarkUsedIsIdempotent(t *testing.T) {
	dedup := mocks.NewMockDedupStore()
	svc := NewLedgerService(dedup, mocks.NewMockProducedStore(), nil)
	ctx := context.Background()

	if err := svc.MarkUsed(ctx, "t1", []string{"c2", "c1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.MarkUsed(ctx, "t1", []string{"c1", "c3"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	used, err := svc.UsedUnits(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string][]string{"t1": {"c1", "c2", "c3"}}
	if !reflect.DeepEqual(used, want) {
		t.Errorf("used = %v, want %v", used, want)
	}
}

func TestLedgerService_MarkUsedValidation(t *testing.T) {
	svc := NewLedgerService(mocks.NewMockDedupStore(), mocks.NewMockProducedStore(), nil)
	ctx := context.Background()

	if err := svc.MarkUsed(ctx, "", []string{"c1"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := svc.MarkUsed(ctx, "t1", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLedgerService_MarkUnsuitable(t *testing.T) {
	svc := NewLedgerService(mocks.NewMockDedupStore(), mocks.NewMockProducedStore(), nil)
	ctx := context.Background()

	if err := svc.MarkUnsuitable(ctx, "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Recording again is a no-op, not an error.
	if err := svc.MarkUnsuitable(ctx, "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids, err := svc.UnsuitableSources(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"t1"}) {
		t.Errorf("ids = %v", ids)
	}
}

func TestLedgerService_Produced(t *testing.T) {
	produced := mocks.NewMockProducedStore()
	svc := NewLedgerService(mocks.NewMockDedupStore(), produced, nil)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2"} {
		if err := produced.Record(ctx, &domain.ProducedVideo{SourceID: id}); err != nil {
			t.Fatal(err)
		}
	}

	videos, err := svc.Produced(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos", len(videos))
	}
	if videos[0].SourceID != "t2" {
		t.Errorf("expected newest first, got %s", videos[0].SourceID)
	}
}
