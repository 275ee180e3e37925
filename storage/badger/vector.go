// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package badger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragstore/ai"
	"github.com/poiesic/ragstore/core"
	"github.com/poiesic/ragstore/storage"
)

const (
	// VectorIndexName is the name under which every collection's similarity
	// index descriptor is provisioned.
	VectorIndexName = "vector_knn_index"

	// VectorIndexMetric is the similarity metric of the index. Vectors are
	// L2-normalized at write time, so the cosine score reduces to a dot
	// product at query time.
	VectorIndexMetric = "cosine"

	// contentField is the record field that gets embedded. It is never
	// persisted.
	contentField = "content"

	defaultMaxBatchSize = 32
)

// Metadata field names used by relation embeddings.
const (
	MetaSourceID = "src_id"
	MetaTargetID = "tgt_id"
)

type vectorStore struct {
	manager      *Manager
	backend      *Backend
	collection   string
	embedder     ai.Embedder
	threshold    float32
	maxBatchSize int
	metaFields   map[string]struct{}
	logger       *slog.Logger
}

// VectorStoreOption configures a vector store at construction.
type VectorStoreOption func(*vectorStore)

// WithMaxBatchSize sets how many texts go into one embedding request.
func WithMaxBatchSize(size int) VectorStoreOption {
	return func(s *vectorStore) {
		if size > 0 {
			s.maxBatchSize = size
		}
	}
}

// WithMetaFields declares which record fields are persisted as metadata.
// Undeclared fields are dropped at write time.
func WithMetaFields(fields ...string) VectorStoreOption {
	return func(s *vectorStore) {
		for _, f := range fields {
			s.metaFields[f] = struct{}{}
		}
	}
}

// NewVectorStore creates an embedding-indexed store over the named
// collection. The similarity index descriptor is provisioned idempotently at
// construction; an existing descriptor with different dimensionality is an
// error.
func NewVectorStore(manager *Manager, collection string, embedder ai.Embedder, threshold float32, opts ...VectorStoreOption) (storage.VectorStore, error) {
	backend, err := manager.Acquire()
	if err != nil {
		return nil, err
	}
	s := &vectorStore{
		manager:      manager,
		backend:      backend,
		collection:   collection,
		embedder:     embedder,
		threshold:    threshold,
		maxBatchSize: defaultMaxBatchSize,
		metaFields:   make(map[string]struct{}),
		logger:       slog.Default().With("store", "vector", "collection", collection),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := backend.EnsureCollection(collection); err != nil {
		manager.Release(backend)
		return nil, err
	}
	if err := s.ensureVectorIndex(); err != nil {
		manager.Release(backend)
		return nil, err
	}
	return s, nil
}

// ensureVectorIndex provisions the index descriptor if absent and validates
// dimensional agreement with the embedder if present.
func (s *vectorStore) ensureVectorIndex() error {
	key := makeVectorIndexKey(s.collection)
	dims := s.embedder.Dimensions()
	return s.backend.Update(func(tx *badger.Txn) error {
		val, err := getRaw(tx, key)
		if err != nil {
			return err
		}
		if val == nil {
			index := &core.VectorIndex{Name: VectorIndexName, Dimensions: dims, Metric: VectorIndexMetric}
			s.logger.Debug("provisioning vector index", "dimensions", dims)
			return tx.Set(key, storage.MarshalVectorIndex(index))
		}
		index, err := storage.UnmarshalVectorIndex(val)
		if err != nil {
			return fmt.Errorf("%w: vector index: %w", storage.ErrSerializationFailed, err)
		}
		if index.Dimensions != dims {
			return fmt.Errorf("%w: index has %d dimensions, embedder produces %d",
				storage.ErrDimensionMismatch, index.Dimensions, dims)
		}
		return nil
	})
}

func (s *vectorStore) readIndex() (*core.VectorIndex, error) {
	var index *core.VectorIndex
	err := s.backend.View(func(tx *badger.Txn) error {
		val, err := getRaw(tx, makeVectorIndexKey(s.collection))
		if err != nil || val == nil {
			return err
		}
		index, err = storage.UnmarshalVectorIndex(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

// Upsert embeds each record's content field and writes one vector record per
// id. Embedding requests run concurrently in batches; per-record writes run
// concurrently with no cross-item atomicity.
func (s *vectorStore) Upsert(ctx context.Context, data map[string]core.Fields) error {
	if len(data) == 0 {
		return nil
	}

	ids := make([]string, 0, len(data))
	for id := range data {
		if id == "" {
			return core.ErrEmptyID
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	contents := make([]string, len(ids))
	for i, id := range ids {
		content, ok := data[id][contentField]
		if !ok || content == "" {
			return fmt.Errorf("%w: record %s", core.ErrMissingContent, id)
		}
		contents[i] = content
	}

	vectors, err := s.embedAll(ctx, contents)
	if err != nil {
		return err
	}

	dims := s.embedder.Dimensions()
	now := time.Now().Unix()
	tasks := make([]func() error, len(ids))
	for i, id := range ids {
		if len(vectors[i]) != dims {
			return fmt.Errorf("%w: embedder returned %d dimensions, expected %d",
				storage.ErrDimensionMismatch, len(vectors[i]), dims)
		}
		record := &core.VectorRecord{
			ID:        id,
			Vector:    normalizeVector(vectors[i]),
			CreatedAt: now,
			Metadata:  s.filterMetadata(data[id]),
		}
		tasks[i] = func() error {
			return s.backend.Update(func(tx *badger.Txn) error {
				return tx.Set(makeDocKey(s.collection, record.ID), storage.MarshalVectorRecord(record))
			})
		}
	}
	if err := s.backend.runBatch(tasks...); err != nil {
		return err
	}
	s.logger.Debug("upserted vector records", "count", len(ids))
	return nil
}

// embedAll splits contents into batches and embeds them concurrently,
// reassembling results in input order.
func (s *vectorStore) embedAll(ctx context.Context, contents []string) ([][]float32, error) {
	vectors := make([][]float32, len(contents))
	var tasks []func() error
	for start := 0; start < len(contents); start += s.maxBatchSize {
		end := start + s.maxBatchSize
		if end > len(contents) {
			end = len(contents)
		}
		batch := contents[start:end]
		tasks = append(tasks, func() error {
			embedded, err := s.embedder.EmbedTexts(ctx, batch)
			if err != nil {
				return fmt.Errorf("embedding batch of %d: %w", len(batch), err)
			}
			if len(embedded) != len(batch) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), len(batch))
			}
			copy(vectors[start:end], embedded)
			return nil
		})
	}
	if err := s.backend.runBatch(tasks...); err != nil {
		return nil, err
	}
	return vectors, nil
}

// filterMetadata copies only the declared metadata fields; the content field
// is never persisted.
func (s *vectorStore) filterMetadata(fields core.Fields) core.Fields {
	meta := core.Fields{}
	for k := range s.metaFields {
		if v, ok := fields[k]; ok {
			meta[k] = v
		}
	}
	return meta
}

// Query embeds text on the latency-sensitive single-text path, then scans
// the collection scoring by dot product against the stored normalized
// vectors. Results below the similarity threshold are dropped.
func (s *vectorStore) Query(ctx context.Context, text string, topK int, ids ...string) ([]*core.VectorMatch, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", storage.ErrInvalidQuery, topK)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty query text", storage.ErrInvalidQuery)
	}

	query, err := s.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	dims := s.embedder.Dimensions()
	if len(query) != dims {
		return nil, fmt.Errorf("%w: embedder returned %d dimensions, expected %d",
			storage.ErrDimensionMismatch, len(query), dims)
	}
	query = normalizeVector(query)

	var allowed map[string]struct{}
	if len(ids) > 0 {
		allowed = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			allowed[id] = struct{}{}
		}
	}

	var matches []*core.VectorMatch
	err = s.backend.scanCollection(s.collection, func(id string, val []byte) error {
		if allowed != nil {
			if _, ok := allowed[id]; !ok {
				return nil
			}
		}
		record, err := storage.UnmarshalVectorRecord(val)
		if err != nil {
			return fmt.Errorf("%w: vector record %s: %w", storage.ErrSerializationFailed, id, err)
		}
		score := dotProduct(query, record.Vector)
		if score < s.threshold {
			return nil
		}
		matches = append(matches, &core.VectorMatch{
			ID:        record.ID,
			Score:     score,
			CreatedAt: record.CreatedAt,
			Metadata:  record.Metadata,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *vectorStore) GetByID(ctx context.Context, id string) (*core.VectorRecord, error) {
	var record *core.VectorRecord
	err := s.backend.View(func(tx *badger.Txn) error {
		val, err := getRaw(tx, makeDocKey(s.collection, id))
		if err != nil || val == nil {
			return err
		}
		record, err = storage.UnmarshalVectorRecord(val)
		if err != nil {
			return fmt.Errorf("%w: vector record %s: %w", storage.ErrSerializationFailed, id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *vectorStore) GetByIDs(ctx context.Context, ids ...string) ([]*core.VectorRecord, error) {
	records := make([]*core.VectorRecord, 0, len(ids))
	err := s.backend.View(func(tx *badger.Txn) error {
		for _, id := range ids {
			val, err := getRaw(tx, makeDocKey(s.collection, id))
			if err != nil {
				return err
			}
			if val == nil {
				continue
			}
			record, err := storage.UnmarshalVectorRecord(val)
			if err != nil {
				return fmt.Errorf("%w: vector record %s: %w", storage.ErrSerializationFailed, id, err)
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *vectorStore) Delete(ctx context.Context, ids ...string) (int, error) {
	return s.backend.deleteDocs(s.collection, ids)
}

// DeleteEntity removes the record stored under the entity's content-hash id.
func (s *vectorStore) DeleteEntity(ctx context.Context, name string) error {
	_, err := s.backend.deleteDocs(s.collection, []string{core.EntityID(name)})
	return err
}

// DeleteEntityRelation removes every relation record that references name as
// either endpoint.
func (s *vectorStore) DeleteEntityRelation(ctx context.Context, name string) error {
	var ids []string
	err := s.backend.scanCollection(s.collection, func(id string, val []byte) error {
		record, err := storage.UnmarshalVectorRecord(val)
		if err != nil {
			return fmt.Errorf("%w: vector record %s: %w", storage.ErrSerializationFailed, id, err)
		}
		if record.Metadata[MetaSourceID] == name || record.Metadata[MetaTargetID] == name {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	removed, err := s.backend.deleteDocs(s.collection, ids)
	if err == nil && removed > 0 {
		s.logger.Debug("deleted relation records", "entity", name, "removed", removed)
	}
	return err
}

// Drop removes every record and re-provisions the index descriptor.
func (s *vectorStore) Drop(ctx context.Context) (int, error) {
	removed, err := s.backend.dropCollection(s.collection)
	if err != nil {
		return removed, err
	}
	err = s.backend.Update(func(tx *badger.Txn) error {
		return tx.Delete(makeVectorIndexKey(s.collection))
	})
	if err != nil {
		return removed, err
	}
	if err := s.ensureVectorIndex(); err != nil {
		return removed, err
	}
	s.logger.Info("dropped collection", "removed", removed)
	return removed, nil
}

func (s *vectorStore) Close() error {
	return s.manager.Release(s.backend)
}

// normalizeVector scales v to unit length. Zero vectors pass through
// unchanged.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func dotProduct(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
