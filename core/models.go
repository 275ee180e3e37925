package core

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Fields holds arbitrary scalar attributes of a stored document.
type Fields = map[string]string

// EntityIDPrefix and RelationIDPrefix tag content-hash IDs by the kind of
// payload they index.
const (
	EntityIDPrefix   = "ent-"
	RelationIDPrefix = "rel-"
)

// hashID generates a deterministic hex digest of text using BLAKE2b.
// Identical content always produces the identical ID.
func hashID(prefix, text string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(text))
	return prefix + hex.EncodeToString(h.Sum(nil))
}

// EntityID returns the deterministic record ID for an entity embedding.
func EntityID(name string) string {
	return hashID(EntityIDPrefix, name)
}

// RelationID returns the deterministic record ID for a relation embedding.
func RelationID(content string) string {
	return hashID(RelationIDPrefix, content)
}

// Record is a generic key-value document: an ID plus arbitrary fields.
type Record struct {
	ID     string
	Fields Fields
}

// DocStatus is the lifecycle state of an ingested document.
type DocStatus string

const (
	StatusPending    DocStatus = "pending"
	StatusProcessing DocStatus = "processing"
	StatusProcessed  DocStatus = "processed"
	StatusFailed     DocStatus = "failed"
)

// Valid reports whether s is one of the defined lifecycle states.
func (s DocStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// NewDocStatusRecord creates a status record for a newly tracked document.
// ChunksCount starts at -1 until chunking has produced a real count; zero is
// a valid count and is stored as given.
func NewDocStatusRecord(id string, status DocStatus) *DocStatusRecord {
	return &DocStatusRecord{
		ID:          id,
		Status:      status,
		ChunksCount: -1,
	}
}

// DocStatusRecord tracks the processing lifecycle of a single document.
type DocStatusRecord struct {
	ID             string
	Status         DocStatus
	Content        string
	ContentSummary string
	ContentLength  int
	ChunksCount    int // -1 when chunking has not happened yet
	FilePath       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Edge is a directed edge embedded in its source node's document.
// The target is referenced by ID and need not exist (dangling edges are
// permitted; there is no referential-integrity enforcement).
type Edge struct {
	Target     string
	Relation   string
	Attributes Fields
}

// Node is a graph vertex: attributes plus its outbound edge list.
// UpsertEdge keeps at most one edge per distinct target.
type Node struct {
	ID         string
	Attributes Fields
	Edges      []Edge
}

// EdgeRef identifies an edge by its endpoints.
type EdgeRef struct {
	Source string
	Target string
}

// SubgraphNode is a node materialized by a subgraph extraction.
type SubgraphNode struct {
	ID         string
	Attributes Fields
}

// SubgraphEdge is an edge materialized by a subgraph extraction.
// Key is "source-target-relation" and is unique within one extraction.
type SubgraphEdge struct {
	Key        string
	Source     string
	Target     string
	Relation   string
	Attributes Fields
}

// Subgraph is the result of a bounded-depth expansion or a wildcard
// materialization of the whole graph.
type Subgraph struct {
	Nodes []SubgraphNode
	Edges []SubgraphEdge
}

// VectorRecord is an embedding-indexed document. Vector length is fixed per
// collection and equals the embedder's declared dimensionality. Vectors are
// stored L2-normalized; the text they were computed from is not persisted.
type VectorRecord struct {
	ID        string
	Vector    []float32
	CreatedAt int64 // unix seconds
	Metadata  Fields
}

// VectorMatch is one similarity-query result: the record's stored fields
// plus its cosine-similarity score. The raw vector is stripped.
type VectorMatch struct {
	ID        string
	Score     float32
	CreatedAt int64
	Metadata  Fields
}

// VectorIndex describes the similarity index provisioned over a vector
// collection.
type VectorIndex struct {
	Name       string
	Dimensions int
	Metric     string
}
