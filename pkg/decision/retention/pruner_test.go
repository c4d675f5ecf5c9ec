package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/decision"
	"mercator-hq/callisto/pkg/decision/storage"
)

// seedStore writes n records, one per day ending yesterday, oldest
// first.
func seedStore(t *testing.T, store decision.Store, n int) {
	t.Helper()
	now := time.Now()
	for i := 0; i < n; i++ {
		record := &decision.Record{
			ID:      fmt.Sprintf("rec-%03d", i),
			Time:    now.AddDate(0, 0, -(n - i)),
			Policy:  "access/is-admin",
			Outcome: decision.OutcomeSatisfied,
		}
		if err := store.Store(context.Background(), record); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
}

func TestPruner_ByAge(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedStore(t, store, 10)

	pruner := NewPruner(store, &Config{Days: 5}, nil)
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	// Records 10..6 days old are past the 5 day window.
	if deleted != 5 {
		t.Errorf("deleted = %d, want 5", deleted)
	}
	count, _ := store.Count(ctx, nil)
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestPruner_ByCount(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedStore(t, store, 10)

	pruner := NewPruner(store, &Config{MaxRecords: 4}, nil)
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 6 {
		t.Errorf("deleted = %d, want 6", deleted)
	}

	remaining, _ := store.Query(ctx, &decision.Query{SortOrder: "asc"})
	if len(remaining) != 4 {
		t.Fatalf("remaining = %d", len(remaining))
	}
	// The newest records survive.
	if remaining[0].ID != "rec-006" {
		t.Errorf("oldest survivor = %q", remaining[0].ID)
	}
}

func TestPruner_BothPhases(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedStore(t, store, 10)

	pruner := NewPruner(store, &Config{Days: 7, MaxRecords: 2}, nil)
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 8 {
		t.Errorf("deleted = %d, want 8", deleted)
	}
	count, _ := store.Count(ctx, nil)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestPruner_ZeroConfigIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedStore(t, store, 5)

	pruner := NewPruner(store, &Config{}, nil)
	deleted, err := pruner.Prune(ctx)
	if err != nil || deleted != 0 {
		t.Errorf("Prune = %d, %v", deleted, err)
	}
	count, _ := store.Count(ctx, nil)
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestPruner_UnderCapIsNoOp(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	seedStore(t, store, 3)

	pruner := NewPruner(store, &Config{MaxRecords: 10}, nil)
	deleted, err := pruner.Prune(ctx)
	if err != nil || deleted != 0 {
		t.Errorf("Prune = %d, %v", deleted, err)
	}
}
