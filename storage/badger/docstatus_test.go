package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/ragstore/core"
	"github.com/poiesic/ragstore/storage"
)

func newTestDocStatus(t *testing.T) storage.DocStatusStore {
	t.Helper()
	kv, docStatus, graph, _, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	t.Cleanup(func() { graph.Close(); docStatus.Close(); kv.Close() })
	return docStatus
}

func TestDocStatusUpsertDefaults(t *testing.T) {
	store := newTestDocStatus(t)
	ctx := context.Background()

	record := core.NewDocStatusRecord("doc-1", core.StatusPending)
	record.Content = "raw text"
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	stored, err := store.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if stored == nil {
		t.Fatal("Expected stored record")
	}
	if stored.ChunksCount != -1 {
		t.Fatalf("Expected ChunksCount -1 before chunking, got %d", stored.ChunksCount)
	}
	if stored.FilePath != "no-file-path" {
		t.Fatalf("Expected default file path, got %q", stored.FilePath)
	}
	if stored.CreatedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Fatal("Expected timestamps to be set")
	}
}

func TestDocStatusZeroChunksStored(t *testing.T) {
	store := newTestDocStatus(t)
	ctx := context.Background()

	// An empty document legitimately produces zero chunks; the count must
	// survive the write as-is.
	record := core.NewDocStatusRecord("doc-1", core.StatusProcessed)
	record.ChunksCount = 0
	if err := store.Upsert(ctx, record); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	stored, err := store.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if stored.ChunksCount != 0 {
		t.Fatalf("Expected ChunksCount 0, got %d", stored.ChunksCount)
	}
}

func TestDocStatusUpsertPreservesCreatedAt(t *testing.T) {
	store := newTestDocStatus(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, &core.DocStatusRecord{ID: "doc-1", Status: core.StatusPending}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	first, err := store.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}

	// Transition with the stored record: CreatedAt must carry through.
	first.Status = core.StatusProcessed
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Failed to upsert transition: %v", err)
	}
	second, err := store.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("Expected CreatedAt to be preserved, got %v and %v", first.CreatedAt, second.CreatedAt)
	}
	if second.Status != core.StatusProcessed {
		t.Fatalf("Expected processed status, got %q", second.Status)
	}
}

func TestDocStatusInvalidStatus(t *testing.T) {
	store := newTestDocStatus(t)

	err := store.Upsert(context.Background(), &core.DocStatusRecord{ID: "doc-1", Status: "done"})
	if !errors.Is(err, core.ErrInvalidStatus) {
		t.Fatalf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestDocStatusCounts(t *testing.T) {
	store := newTestDocStatus(t)
	ctx := context.Background()

	err := store.Upsert(ctx,
		&core.DocStatusRecord{ID: "doc-1", Status: core.StatusPending},
		&core.DocStatusRecord{ID: "doc-2", Status: core.StatusPending},
		&core.DocStatusRecord{ID: "doc-3", Status: core.StatusProcessed},
		&core.DocStatusRecord{ID: "doc-4", Status: core.StatusFailed},
	)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	counts, err := store.StatusCounts(ctx)
	if err != nil {
		t.Fatalf("Failed to count statuses: %v", err)
	}
	if counts[core.StatusPending] != 2 {
		t.Fatalf("Expected 2 pending, got %d", counts[core.StatusPending])
	}
	if counts[core.StatusProcessed] != 1 {
		t.Fatalf("Expected 1 processed, got %d", counts[core.StatusProcessed])
	}
	if counts[core.StatusFailed] != 1 {
		t.Fatalf("Expected 1 failed, got %d", counts[core.StatusFailed])
	}
	if counts[core.StatusProcessing] != 0 {
		t.Fatalf("Expected 0 processing, got %d", counts[core.StatusProcessing])
	}
}

func TestDocStatusByStatus(t *testing.T) {
	store := newTestDocStatus(t)
	ctx := context.Background()

	err := store.Upsert(ctx,
		&core.DocStatusRecord{ID: "doc-1", Status: core.StatusPending},
		&core.DocStatusRecord{ID: "doc-2", Status: core.StatusProcessed},
		&core.DocStatusRecord{ID: "doc-3", Status: core.StatusPending},
	)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	pending, err := store.ByStatus(ctx, core.StatusPending)
	if err != nil {
		t.Fatalf("Failed to get by status: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending records, got %d", len(pending))
	}
	if _, ok := pending["doc-1"]; !ok {
		t.Fatal("Expected doc-1 in pending set")
	}
	if _, ok := pending["doc-3"]; !ok {
		t.Fatal("Expected doc-3 in pending set")
	}

	_, err = store.ByStatus(ctx, "done")
	if !errors.Is(err, core.ErrInvalidStatus) {
		t.Fatalf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestDocStatusFilterMissingAndDelete(t *testing.T) {
	store := newTestDocStatus(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, &core.DocStatusRecord{ID: "doc-1", Status: core.StatusPending}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	missing, err := store.FilterMissing(ctx, "doc-1", "doc-2")
	if err != nil {
		t.Fatalf("Failed to filter: %v", err)
	}
	if len(missing) != 1 {
		t.Fatalf("Expected 1 missing, got %d", len(missing))
	}
	if _, ok := missing["doc-2"]; !ok {
		t.Fatal("Expected doc-2 to be missing")
	}

	removed, err := store.Delete(ctx, "doc-1", "doc-2")
	if err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Expected 1 removed, got %d", removed)
	}
}
