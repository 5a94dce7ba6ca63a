package file

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
)

func TestDedupStore_RecordUsedMergesAndSorts(t *testing.T) {
	store, err := NewDedupStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.RecordUsed(ctx, "t1", []string{"c3", "c1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordUsed(ctx, "t1", []string{"c2", "c1"}); err != nil {
		t.Fatal(err)
	}

	used, err := store.UsedUnits(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(used, []string{"c1", "c2", "c3"}) {
		t.Errorf("used = %v", used)
	}
}

func TestDedupStore_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewDedupStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.RecordUsed(ctx, "t1", []string{"c1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordUnsuitable(ctx, "bad"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewDedupStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	used, _ := reopened.UsedUnits(ctx, "t1")
	if !reflect.DeepEqual(used, []string{"c1"}) {
		t.Errorf("used = %v", used)
	}
	ids, _ := reopened.UnsuitableSources(ctx)
	if !reflect.DeepEqual(ids, []string{"bad"}) {
		t.Errorf("unsuitable = %v", ids)
	}
}

func TestDedupStore_CorruptFileResetsEmpty(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, usedFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewDedupStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	used, err := store.AllUsedUnits(ctx)
	if err != nil {
		t.Fatalf("corrupt ledger must not fail reads: %v", err)
	}
	if len(used) != 0 {
		t.Errorf("used = %v, want empty", used)
	}

	// Writing replaces the corrupt file.
	if err := store.RecordUsed(ctx, "t1", []string{"c1"}); err != nil {
		t.Fatal(err)
	}
	got, _ := store.UsedUnits(ctx, "t1")
	if !reflect.DeepEqual(got, []string{"c1"}) {
		t.Errorf("used = %v", got)
	}
}

func TestDedupStore_RecordUnsuitableIdempotent(t *testing.T) {
	store, err := NewDedupStore(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.RecordUnsuitable(ctx, "t1"); err != nil {
			t.Fatal(err)
		}
	}

	ids, _ := store.UnsuitableSources(ctx)
	if !reflect.DeepEqual(ids, []string{"t1"}) {
		t.Errorf("ids = %v", ids)
	}
}

func TestProducedStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewProducedStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range []string{"t1", "t2"} {
		err := store.Record(ctx, &domain.ProducedVideo{
			SourceID:  id,
			Subreddit: "stories",
			Title:     "Thread " + id,
			Filename:  "Thread " + id + ".mp4",
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	done, err := store.IsProduced(ctx, "t1")
	if err != nil || !done {
		t.Errorf("IsProduced(t1) = %v, %v", done, err)
	}
	done, _ = store.IsProduced(ctx, "t3")
	if done {
		t.Error("t3 should not be produced")
	}

	reopened, err := NewProducedStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	videos, err := reopened.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 2 {
		t.Fatalf("got %d videos", len(videos))
	}
	if videos[0].SourceID != "t2" {
		t.Errorf("expected newest first, got %s", videos[0].SourceID)
	}
	if videos[0].CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be stamped")
	}
}
