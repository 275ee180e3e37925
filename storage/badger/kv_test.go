package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/poiesic/ragstore/core"
	"github.com/poiesic/ragstore/storage"
)

func newTestKV(t *testing.T) storage.KVStore {
	t.Helper()
	kv, docStatus, graph, _, err := NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	t.Cleanup(func() { graph.Close(); docStatus.Close(); kv.Close() })
	return kv
}

func TestKVUpsertAndGet(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	err := kv.Upsert(ctx,
		&core.Record{ID: "doc-1", Fields: core.Fields{"content": "first"}},
		&core.Record{ID: "doc-2", Fields: core.Fields{"content": "second"}},
	)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	record, err := kv.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if record == nil || record.Fields["content"] != "first" {
		t.Fatalf("Unexpected record: %+v", record)
	}

	// Missing id is nil, not an error.
	missing, err := kv.GetByID(ctx, "nope")
	if err != nil {
		t.Fatalf("Expected nil error for missing id, got %v", err)
	}
	if missing != nil {
		t.Fatalf("Expected nil record for missing id, got %+v", missing)
	}

	records, err := kv.GetByIDs(ctx, "doc-2", "nope", "doc-1")
	if err != nil {
		t.Fatalf("Failed to get records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].ID != "doc-2" || records[1].ID != "doc-1" {
		t.Fatalf("Expected input order, got %s, %s", records[0].ID, records[1].ID)
	}
}

func TestKVUpsertReplaces(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Upsert(ctx, &core.Record{ID: "doc-1", Fields: core.Fields{"a": "1", "b": "2"}}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	if err := kv.Upsert(ctx, &core.Record{ID: "doc-1", Fields: core.Fields{"a": "3"}}); err != nil {
		t.Fatalf("Failed to upsert replacement: %v", err)
	}

	record, err := kv.GetByID(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Failed to get record: %v", err)
	}
	if record.Fields["a"] != "3" {
		t.Fatalf("Expected replaced value, got %q", record.Fields["a"])
	}
	if _, ok := record.Fields["b"]; ok {
		t.Fatal("Expected full replace to drop old fields")
	}
}

func TestKVUpsertEmptyID(t *testing.T) {
	kv := newTestKV(t)

	err := kv.Upsert(context.Background(), &core.Record{Fields: core.Fields{"a": "1"}})
	if err == nil {
		t.Fatal("Expected error for empty record ID")
	}
}

func TestKVFilterMissing(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Upsert(ctx, &core.Record{ID: "a", Fields: core.Fields{}}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	missing, err := kv.FilterMissing(ctx, "a", "b", "c")
	if err != nil {
		t.Fatalf("Failed to filter: %v", err)
	}
	if len(missing) != 2 {
		t.Fatalf("Expected 2 missing ids, got %d", len(missing))
	}
	if _, ok := missing["b"]; !ok {
		t.Fatal("Expected b to be missing")
	}
	if _, ok := missing["c"]; !ok {
		t.Fatal("Expected c to be missing")
	}
	if _, ok := missing["a"]; ok {
		t.Fatal("Expected a to be present")
	}
}

func TestKVCacheFirstWriteWins(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	first := &core.Record{ID: "query-hash", Fields: core.Fields{"return": "answer one"}}
	if err := kv.UpsertCache(ctx, "global", first); err != nil {
		t.Fatalf("Failed to upsert cache: %v", err)
	}

	second := &core.Record{ID: "query-hash", Fields: core.Fields{"return": "answer two"}}
	if err := kv.UpsertCache(ctx, "global", second); err != nil {
		t.Fatalf("Failed to upsert cache again: %v", err)
	}

	record, err := kv.GetByModeAndID(ctx, "global", "query-hash")
	if err != nil {
		t.Fatalf("Failed to get cache record: %v", err)
	}
	if record == nil {
		t.Fatal("Expected cache record")
	}
	if record.Fields["return"] != "answer one" {
		t.Fatalf("Expected first writer to win, got %q", record.Fields["return"])
	}
}

func TestKVCacheConcurrent(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			record := &core.Record{ID: "shared", Fields: core.Fields{"return": fmt.Sprintf("answer %d", n)}}
			if err := kv.UpsertCache(ctx, "global", record); err != nil {
				t.Errorf("Failed to upsert cache: %v", err)
			}
		}(i)
	}
	wg.Wait()

	before, err := kv.GetByModeAndID(ctx, "global", "shared")
	if err != nil {
		t.Fatalf("Failed to get cache record: %v", err)
	}
	if before == nil {
		t.Fatal("Expected a cache record to exist")
	}

	// Whatever won the race, it stays won.
	late := &core.Record{ID: "shared", Fields: core.Fields{"return": "late answer"}}
	if err := kv.UpsertCache(ctx, "global", late); err != nil {
		t.Fatalf("Failed to upsert cache: %v", err)
	}
	after, err := kv.GetByModeAndID(ctx, "global", "shared")
	if err != nil {
		t.Fatalf("Failed to get cache record: %v", err)
	}
	if after.Fields["return"] != before.Fields["return"] {
		t.Fatalf("Cache entry changed from %q to %q", before.Fields["return"], after.Fields["return"])
	}
}

func TestKVDropCacheModes(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	record := func(id string) *core.Record {
		return &core.Record{ID: id, Fields: core.Fields{"return": "x"}}
	}
	if err := kv.UpsertCache(ctx, "global", record("q1"), record("q2")); err != nil {
		t.Fatalf("Failed to upsert cache: %v", err)
	}
	if err := kv.UpsertCache(ctx, "local", record("q1")); err != nil {
		t.Fatalf("Failed to upsert cache: %v", err)
	}
	if err := kv.Upsert(ctx, &core.Record{ID: "plain", Fields: core.Fields{"content": "doc"}}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	removed, err := kv.DropCacheModes(ctx, "global")
	if err != nil {
		t.Fatalf("Failed to drop cache mode: %v", err)
	}
	if removed != 2 {
		t.Fatalf("Expected 2 removed, got %d", removed)
	}

	if got, _ := kv.GetByModeAndID(ctx, "global", "q1"); got != nil {
		t.Fatal("Expected global cache entry to be gone")
	}
	if got, _ := kv.GetByModeAndID(ctx, "local", "q1"); got == nil {
		t.Fatal("Expected local cache entry to survive")
	}
	if got, _ := kv.GetByID(ctx, "plain"); got == nil {
		t.Fatal("Expected plain record to survive")
	}
}

func TestKVDeleteIdempotent(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Upsert(ctx, &core.Record{ID: "a", Fields: core.Fields{}}); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	removed, err := kv.Delete(ctx, "a", "missing")
	if err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Expected 1 removed, got %d", removed)
	}

	removed, err = kv.Delete(ctx, "a")
	if err != nil {
		t.Fatalf("Expected repeat delete to succeed, got %v", err)
	}
	if removed != 0 {
		t.Fatalf("Expected 0 removed on repeat, got %d", removed)
	}
}

func TestKVDrop(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		record := &core.Record{ID: fmt.Sprintf("doc-%d", i), Fields: core.Fields{}}
		if err := kv.Upsert(ctx, record); err != nil {
			t.Fatalf("Failed to upsert: %v", err)
		}
	}

	removed, err := kv.Drop(ctx)
	if err != nil {
		t.Fatalf("Failed to drop: %v", err)
	}
	if removed != 3 {
		t.Fatalf("Expected 3 removed, got %d", removed)
	}

	if got, _ := kv.GetByID(ctx, "doc-0"); got != nil {
		t.Fatal("Expected store to be empty after drop")
	}

	removed, err = kv.Drop(ctx)
	if err != nil || removed != 0 {
		t.Fatalf("Expected empty drop to be a no-op, got %d, %v", removed, err)
	}
}
