package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/decision"
)

func seedRecords(t *testing.T, store decision.Store, n int) []*decision.Record {
	t.Helper()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	records := make([]*decision.Record, n)
	for i := 0; i < n; i++ {
		outcome := decision.OutcomeSatisfied
		if i%2 == 1 {
			outcome = decision.OutcomeConflict
		}
		records[i] = &decision.Record{
			ID:      fmt.Sprintf("rec-%03d", i),
			Time:    base.Add(time.Duration(i) * time.Hour),
			Policy:  "access/is-admin",
			Outcome: outcome,
		}
		if err := store.Store(context.Background(), records[i]); err != nil {
			t.Fatalf("Store: %v", err)
		}
	}
	return records
}

func TestMemoryStore_QueryFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedRecords(t, store, 6)

	t.Run("all, newest first", func(t *testing.T) {
		got, err := store.Query(ctx, nil)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(got) != 6 || got[0].ID != "rec-005" {
			t.Errorf("got %d records, first %q", len(got), got[0].ID)
		}
	})

	t.Run("outcome filter", func(t *testing.T) {
		got, err := store.Query(ctx, &decision.Query{Outcome: decision.OutcomeConflict})
		if err != nil || len(got) != 3 {
			t.Errorf("got %d conflict records, err %v", len(got), err)
		}
	})

	t.Run("policy filter", func(t *testing.T) {
		got, _ := store.Query(ctx, &decision.Query{Policy: "other/policy"})
		if len(got) != 0 {
			t.Errorf("got %d records for unknown policy", len(got))
		}
	})

	t.Run("time range", func(t *testing.T) {
		start := time.Date(2026, 8, 1, 13, 30, 0, 0, time.UTC)
		end := time.Date(2026, 8, 1, 16, 30, 0, 0, time.UTC)
		got, _ := store.Query(ctx, &decision.Query{StartTime: &start, EndTime: &end})
		// Hours 14, 15 and 16.
		if len(got) != 3 {
			t.Errorf("got %d records in range", len(got))
		}
	})

	t.Run("ascending with pagination", func(t *testing.T) {
		got, _ := store.Query(ctx, &decision.Query{SortOrder: "asc", Offset: 1, Limit: 2})
		if len(got) != 2 || got[0].ID != "rec-001" || got[1].ID != "rec-002" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("offset past the end", func(t *testing.T) {
		got, _ := store.Query(ctx, &decision.Query{Offset: 100})
		if len(got) != 0 {
			t.Errorf("got %d records", len(got))
		}
	})
}

func TestMemoryStore_CountAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seedRecords(t, store, 6)

	count, err := store.Count(ctx, nil)
	if err != nil || count != 6 {
		t.Fatalf("Count = %d, %v", count, err)
	}

	deleted, err := store.Delete(ctx, &decision.Query{Outcome: decision.OutcomeConflict})
	if err != nil || deleted != 3 {
		t.Fatalf("Delete = %d, %v", deleted, err)
	}

	count, _ = store.Count(ctx, nil)
	if count != 3 {
		t.Errorf("count after delete = %d", count)
	}
	remaining, _ := store.Query(ctx, nil)
	for _, record := range remaining {
		if record.Outcome != decision.OutcomeSatisfied {
			t.Errorf("record %q survived deletion", record.ID)
		}
	}
}

func TestMemoryStore_StoreCopies(t *testing.T) {
	store := NewMemoryStore()
	record := &decision.Record{ID: "a", Policy: "x/y"}
	if err := store.Store(context.Background(), record); err != nil {
		t.Fatalf("Store: %v", err)
	}

	record.Policy = "mutated"
	got, _ := store.Query(context.Background(), nil)
	if got[0].Policy != "x/y" {
		t.Error("store shares memory with the caller")
	}
}
