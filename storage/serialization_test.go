package storage

import (
	"testing"
	"time"

	"github.com/poiesic/ragstore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalRecord(t *testing.T) {
	record := &core.Record{
		ID: "chunk-42",
		Fields: core.Fields{
			"content":     "some chunk text",
			"full_doc_id": "doc-1",
		},
	}

	data := MarshalRecord(record)
	require.NotEmpty(t, data)

	decoded, err := UnmarshalRecord(data)
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestMarshalUnmarshalRecord_EmptyFields(t *testing.T) {
	record := &core.Record{ID: "doc-1", Fields: core.Fields{}}

	decoded, err := UnmarshalRecord(MarshalRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record.ID, decoded.ID)
	assert.Empty(t, decoded.Fields)
}

func TestUnmarshalRecord_Invalid(t *testing.T) {
	_, err := UnmarshalRecord([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalNode(t *testing.T) {
	node := &core.Node{
		ID:         "Alice",
		Attributes: core.Fields{"entity_type": "person", "description": "protagonist"},
		Edges: []core.Edge{
			{Target: "Bob", Relation: "knows", Attributes: core.Fields{"weight": "0.9"}},
			{Target: "Paris", Relation: "lives_in", Attributes: core.Fields{"source_id": "chunk-7"}},
		},
	}

	decoded, err := UnmarshalNode(MarshalNode(node))
	require.NoError(t, err)
	assert.Equal(t, node, decoded)
}

func TestMarshalUnmarshalNode_NoEdges(t *testing.T) {
	node := &core.Node{ID: "lonely", Attributes: core.Fields{}, Edges: []core.Edge{}}

	decoded, err := UnmarshalNode(MarshalNode(node))
	require.NoError(t, err)
	assert.Equal(t, node.ID, decoded.ID)
	assert.Empty(t, decoded.Edges)
}

func TestMarshalUnmarshalDocStatusRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	record := &core.DocStatusRecord{
		ID:             "doc-1",
		Status:         core.StatusProcessing,
		Content:        "full document text",
		ContentSummary: "full document...",
		ContentLength:  18,
		ChunksCount:    -1,
		FilePath:       "docs/a.txt",
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	decoded, err := UnmarshalDocStatusRecord(MarshalDocStatusRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestMarshalUnmarshalVectorRecord(t *testing.T) {
	record := &core.VectorRecord{
		ID:        core.EntityID("Alice"),
		Vector:    []float32{0.1, -0.5, 0.85},
		CreatedAt: time.Now().Unix(),
		Metadata:  core.Fields{"entity_name": "Alice", "source_id": "chunk-1"},
	}

	decoded, err := UnmarshalVectorRecord(MarshalVectorRecord(record))
	require.NoError(t, err)
	assert.Equal(t, record, decoded)
}

func TestMarshalUnmarshalVectorIndex(t *testing.T) {
	index := &core.VectorIndex{Name: "vector_knn_index", Dimensions: 768, Metric: "cosine"}

	decoded, err := UnmarshalVectorIndex(MarshalVectorIndex(index))
	require.NoError(t, err)
	assert.Equal(t, index, decoded)
}

func TestUnmarshalVectorRecord_Truncated(t *testing.T) {
	record := &core.VectorRecord{
		ID:       "x",
		Vector:   []float32{1, 2, 3},
		Metadata: core.Fields{},
	}
	data := MarshalVectorRecord(record)

	_, err := UnmarshalVectorRecord(data[:len(data)/2])
	assert.Error(t, err)
}
