package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestAppendAndList(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	records := []Record{
		{Op: "upload", Kind: "dataset", ItemID: "pick-place", Files: 12, Bytes: 4096, Success: true, StartedAt: base, FinishedAt: base.Add(time.Second)},
		{Op: "download", Kind: "model", ItemID: "act-policy", Files: 3, Bytes: 1024, Success: false, Error: "connection reset", StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute + time.Second)},
	}
	for _, rec := range records {
		if err := db.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := db.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(got))
	}

	// Newest first.
	if got[0].ItemID != "act-policy" {
		t.Errorf("first record = %q, want act-policy", got[0].ItemID)
	}
	if got[0].Success {
		t.Error("failed transfer reported success")
	}
	if got[0].Error != "connection reset" {
		t.Errorf("error text = %q", got[0].Error)
	}
	if got[1].Bytes != 4096 {
		t.Errorf("bytes = %d, want 4096", got[1].Bytes)
	}
	if got[1].ID == "" {
		t.Error("expected generated ID")
	}
	if !got[1].FinishedAt.Equal(base.Add(time.Second)) {
		t.Errorf("finished_at = %v", got[1].FinishedAt)
	}
}

func TestListForItem(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range []string{"a", "b", "a"} {
		rec := Record{Op: "upload", Kind: "dataset", ItemID: id, Success: true,
			StartedAt: now.Add(time.Duration(i) * time.Second), FinishedAt: now.Add(time.Duration(i+1) * time.Second)}
		if err := db.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := db.ListForItem(ctx, "dataset", "a", 10)
	if err != nil {
		t.Fatalf("ListForItem() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListForItem() returned %d records, want 2", len(got))
	}
	for _, rec := range got {
		if rec.ItemID != "a" {
			t.Errorf("unexpected item %q", rec.ItemID)
		}
	}
}

func TestListLimit(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		rec := Record{Op: "upload", Kind: "dataset", ItemID: "x", Success: true,
			StartedAt: now, FinishedAt: now.Add(time.Duration(i) * time.Second)}
		if err := db.Append(ctx, rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := db.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List(limit=2) returned %d records", len(got))
	}
}
