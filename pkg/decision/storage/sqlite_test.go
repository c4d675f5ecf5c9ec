package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/decision"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "decisions.db")
	store, err := NewSQLiteStore(cfg, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	record := &decision.Record{
		ID:              "rec-001",
		Time:            time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Policy:          "access/is-admin",
		RegistryVersion: 3,
		DocumentHash:    "abc123",
		Outcome:         decision.OutcomeConflict,
		Residual:        `{role: [[conflict [= admin] guest]]}`,
		Paths:           []string{"role"},
		Witnesses: []decision.Witness{
			{Path: "role", Op: "=", Expected: "admin", Actual: "guest"},
		},
		Duration: 125 * time.Microsecond,
	}
	if err := store.Store(ctx, record); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, err := store.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records", len(got))
	}

	out := got[0]
	if out.ID != record.ID || out.Policy != record.Policy || out.Outcome != record.Outcome {
		t.Errorf("record = %+v", out)
	}
	if out.RegistryVersion != 3 || out.DocumentHash != "abc123" {
		t.Errorf("record = %+v", out)
	}
	if out.Duration != record.Duration {
		t.Errorf("duration = %v", out.Duration)
	}
	if len(out.Paths) != 1 || out.Paths[0] != "role" {
		t.Errorf("paths = %v", out.Paths)
	}
	if len(out.Witnesses) != 1 || out.Witnesses[0].Actual != "guest" {
		t.Errorf("witnesses = %+v", out.Witnesses)
	}
	if !out.Time.Equal(record.Time) {
		t.Errorf("time = %v, want %v", out.Time, record.Time)
	}
}

func TestSQLiteStore_FiltersAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)
	seedRecords(t, store, 6)

	t.Run("outcome filter", func(t *testing.T) {
		got, err := store.Query(ctx, &decision.Query{Outcome: decision.OutcomeConflict})
		if err != nil || len(got) != 3 {
			t.Errorf("got %d conflict records, err %v", len(got), err)
		}
	})

	t.Run("ascending order with limit", func(t *testing.T) {
		got, err := store.Query(ctx, &decision.Query{SortOrder: "asc", Limit: 2})
		if err != nil || len(got) != 2 {
			t.Fatalf("got %d records, err %v", len(got), err)
		}
		if got[0].ID != "rec-000" || got[1].ID != "rec-001" {
			t.Errorf("order = %q, %q", got[0].ID, got[1].ID)
		}
	})

	t.Run("time cutoff delete", func(t *testing.T) {
		cutoff := time.Date(2026, 8, 1, 14, 0, 0, 0, time.UTC)
		deleted, err := store.Delete(ctx, &decision.Query{EndTime: &cutoff})
		if err != nil || deleted != 3 {
			t.Fatalf("Delete = %d, %v", deleted, err)
		}
		count, _ := store.Count(ctx, nil)
		if count != 3 {
			t.Errorf("count after delete = %d", count)
		}
	})
}

func TestSQLiteStore_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	record := &decision.Record{ID: "dup", Time: time.Now(), Policy: "a/b", Outcome: decision.OutcomeOpen}
	if err := store.Store(ctx, record); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := store.Store(ctx, record); err == nil {
		t.Error("duplicate primary key accepted")
	}
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "decisions.db")

	store, err := NewSQLiteStore(cfg, nil)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	seedRecords(t, store, 2)
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewSQLiteStore(cfg, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	count, err := reopened.Count(ctx, nil)
	if err != nil || count != 2 {
		t.Errorf("count after reopen = %d, %v", count, err)
	}
}
