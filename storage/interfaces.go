package storage

import (
	"context"

	"github.com/poiesic/ragstore/core"
)

// Store provides lifecycle operations shared by all storage contracts.
// Implementations must be safe for concurrent use. Every store acquires the
// shared database handle at construction and releases it in Close; the
// underlying connection is torn down when the last store closes.
type Store interface {
	// Drop removes every document in the store's collection and returns the
	// number removed. Dropping an empty store is a no-op.
	Drop(ctx context.Context) (int, error)

	// Close releases the store's reference on the shared backend.
	Close() error
}

// KVStore is a generic key-to-document store. Reads of nonexistent ids
// return nil results, never an error. Per-record writes within one Upsert
// call are issued concurrently with no cross-item atomicity: a partial
// failure leaves some records written and is not rolled back.
type KVStore interface {
	Store

	// GetByID returns the record with the given id, or nil if absent.
	GetByID(ctx context.Context, id string) (*core.Record, error)

	// GetByIDs returns the records that exist among ids, in input order.
	GetByIDs(ctx context.Context, ids ...string) ([]*core.Record, error)

	// FilterMissing returns the subset of ids with no stored record.
	FilterMissing(ctx context.Context, ids ...string) (map[string]struct{}, error)

	// Upsert fully replaces each record's document.
	Upsert(ctx context.Context, records ...*core.Record) error

	// UpsertCache writes records under the composite id mode + "_" + key.
	// Writes are insert-only: an existing document is never overwritten, so
	// concurrent recomputation of the same cache entry is first-writer-wins.
	UpsertCache(ctx context.Context, mode string, records ...*core.Record) error

	// GetByModeAndID returns the cache record for (mode, id), or nil.
	GetByModeAndID(ctx context.Context, mode, id string) (*core.Record, error)

	// Delete removes the given ids and returns how many existed.
	// Deleting a nonexistent id is a no-op.
	Delete(ctx context.Context, ids ...string) (int, error)

	// DropCacheModes removes every cache record whose id starts with one of
	// the given mode prefixes. Used to invalidate cache cohorts in bulk.
	DropCacheModes(ctx context.Context, modes ...string) (int, error)
}

// DocStatusStore tracks per-document processing lifecycle with status
// aggregation. Upsert is a full-document replace with concurrent per-item
// writes, like KVStore.
type DocStatusStore interface {
	Store

	GetByID(ctx context.Context, id string) (*core.DocStatusRecord, error)
	GetByIDs(ctx context.Context, ids ...string) ([]*core.DocStatusRecord, error)
	FilterMissing(ctx context.Context, ids ...string) (map[string]struct{}, error)
	Upsert(ctx context.Context, records ...*core.DocStatusRecord) error
	Delete(ctx context.Context, ids ...string) (int, error)

	// StatusCounts returns the number of documents in each status.
	StatusCounts(ctx context.Context) (map[core.DocStatus]int, error)

	// ByStatus returns all documents currently in the given status, keyed by id.
	ByStatus(ctx context.Context, status core.DocStatus) (map[string]*core.DocStatusRecord, error)
}

// GraphStore is a persistent directed graph with adjacency embedded per
// node. Traversal is an explicit bounded breadth-first walk.
type GraphStore interface {
	Store

	HasNode(ctx context.Context, id string) (bool, error)

	// HasEdge reports whether tgt appears as a target in src's edge list.
	HasEdge(ctx context.Context, src, tgt string) (bool, error)

	// NodeDegree is outbound (length of id's edge list) plus inbound (count
	// of edges across the whole collection whose target is id). The inbound
	// count is a full scan, O(collection size); there is no reverse index.
	// This is the dominant cost center of the graph engine.
	NodeDegree(ctx context.Context, id string) (int, error)

	// EdgeDegree counts edges in src's list targeting tgt (parallel edges
	// with distinct relations each count).
	EdgeDegree(ctx context.Context, src, tgt string) (int, error)

	// GetNode returns the full node document, or nil if absent.
	GetNode(ctx context.Context, id string) (*core.Node, error)

	// GetEdge returns the first edge in src's list targeting tgt, or nil.
	GetEdge(ctx context.Context, src, tgt string) (*core.Edge, error)

	// GetOutgoingEdges returns (src, target) pairs for src's edge list,
	// or nil if src does not exist.
	GetOutgoingEdges(ctx context.Context, src string) ([]core.EdgeRef, error)

	// UpsertNode merge-sets attributes onto the node, creating it with an
	// empty edge list if absent. Existing edges are never overwritten.
	UpsertNode(ctx context.Context, id string, attrs core.Fields) error

	// UpsertEdge ensures src exists (creating it without attributes if
	// missing) and atomically replaces-or-appends the edge to tgt. Concurrent
	// upserts of the same (src, tgt) pair serialize; exactly one edge
	// survives.
	UpsertEdge(ctx context.Context, src, tgt string, attrs core.Fields) error

	// DeleteNode removes the node and cascade-strips every edge elsewhere
	// that points at it.
	DeleteNode(ctx context.Context, id string) error

	// RemoveNodes is the bulk form of DeleteNode.
	RemoveNodes(ctx context.Context, ids ...string) error

	// RemoveEdges removes each (source, target) pair as an independent
	// concurrent update with no cross-pair atomicity.
	RemoveEdges(ctx context.Context, pairs ...core.EdgeRef) error

	// AllNodeIDs returns every node id, sorted ascending.
	AllNodeIDs(ctx context.Context) ([]string, error)

	// Subgraph extracts the bounded-depth expansion from label (depth 0 is
	// the start node itself). The wildcard label "*" materializes every node
	// and every edge. A missing start label yields an empty subgraph.
	Subgraph(ctx context.Context, label string, maxDepth int) (*core.Subgraph, error)
}

// VectorStore is an embedding-indexed document store with cosine-similarity
// search. Upsert embeds record contents in concurrent batches; Query embeds
// the query text on the latency-sensitive path and filters matches by the
// store's similarity threshold.
type VectorStore interface {
	Store

	// Upsert embeds each record's "content" field and writes a vector
	// record per id. Only declared metadata fields are persisted; the
	// content itself is used solely to produce the embedding.
	Upsert(ctx context.Context, data map[string]core.Fields) error

	// Query returns up to topK records with similarity >= the configured
	// threshold, highest first, vectors stripped. A non-empty ids list
	// restricts the candidate set.
	Query(ctx context.Context, text string, topK int, ids ...string) ([]*core.VectorMatch, error)

	GetByID(ctx context.Context, id string) (*core.VectorRecord, error)
	GetByIDs(ctx context.Context, ids ...string) ([]*core.VectorRecord, error)

	Delete(ctx context.Context, ids ...string) (int, error)

	// DeleteEntity removes the record stored under core.EntityID(name).
	DeleteEntity(ctx context.Context, name string) error

	// DeleteEntityRelation removes every record whose src_id or tgt_id
	// metadata equals name. Used when records represent graph-relation
	// embeddings rather than entity embeddings.
	DeleteEntityRelation(ctx context.Context, name string) error
}
