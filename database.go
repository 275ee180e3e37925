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

package ragstore

import (
	"log/slog"

	"github.com/poiesic/ragstore/ai"
	"github.com/poiesic/ragstore/ai/openai"
	"github.com/poiesic/ragstore/storage"
	"github.com/poiesic/ragstore/storage/badger"
)

// Collection names of the standard retrieval-augmented workspace.
const (
	NamespaceFullDocs      = "full_docs"
	NamespaceTextChunks    = "text_chunks"
	NamespaceLLMCache      = "llm_response_cache"
	NamespaceDocStatus     = "doc_status"
	NamespaceGraph         = "chunk_entity_relation"
	NamespaceEntities      = "entities"
	NamespaceRelationships = "relationships"
	NamespaceChunks        = "chunks"
)

// Database is the assembled workspace: the standard collections of a
// retrieval-augmented pipeline wired over one shared connection manager.
type Database struct {
	manager       *badger.Manager
	fullDocs      storage.KVStore
	textChunks    storage.KVStore
	llmCache      storage.KVStore
	docStatus     storage.DocStatusStore
	graph         storage.GraphStore
	entities      storage.VectorStore
	relationships storage.VectorStore
	chunks        storage.VectorStore
	logger        *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	embedder ai.Embedder
	inMemory bool
}

// WithEmbedder supplies an embedder instead of constructing one from the
// config. Used by tests to avoid the external embedding service.
func WithEmbedder(embedder ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = embedder
	}
}

// WithInMemory backs the database with an in-memory store, ignoring the
// configured path.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens the workspace described by cfg. Every store shares one
// reference-counted backend; a failure partway through tears down what was
// already built.
func NewDatabase(cfg *Config, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.inMemory && cfg.Path == "" {
		cfg.Path = ":memory:"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	embedder := options.embedder
	if embedder == nil {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(cfg.Embedding.Host),
			ai.WithEmbeddingModel(cfg.Embedding.Model),
			ai.WithDimensions(cfg.Embedding.Dimensions),
		)
		var err error
		embedder, err = openai.NewEmbedder(aiConfig)
		if err != nil {
			return nil, err
		}
	}

	manager := badger.NewManager(cfg.Path, options.inMemory)

	db := &Database{
		manager: manager,
		logger:  slog.Default().With("database", cfg.Database),
	}

	var err error
	var opened []interface{ Close() error }
	cleanup := func() {
		for i := len(opened) - 1; i >= 0; i-- {
			opened[i].Close()
		}
	}

	db.fullDocs, err = badger.NewKVStore(manager, NamespaceFullDocs)
	if err != nil {
		return nil, err
	}
	opened = append(opened, db.fullDocs)

	db.textChunks, err = badger.NewKVStore(manager, NamespaceTextChunks)
	if err != nil {
		cleanup()
		return nil, err
	}
	opened = append(opened, db.textChunks)

	db.llmCache, err = badger.NewKVStore(manager, NamespaceLLMCache)
	if err != nil {
		cleanup()
		return nil, err
	}
	opened = append(opened, db.llmCache)

	db.docStatus, err = badger.NewDocStatusStore(manager, NamespaceDocStatus)
	if err != nil {
		cleanup()
		return nil, err
	}
	opened = append(opened, db.docStatus)

	db.graph, err = badger.NewGraphStore(manager, NamespaceGraph)
	if err != nil {
		cleanup()
		return nil, err
	}
	opened = append(opened, db.graph)

	vectorOpts := []badger.VectorStoreOption{badger.WithMaxBatchSize(cfg.MaxBatchSize)}

	db.entities, err = badger.NewVectorStore(manager, NamespaceEntities, embedder, cfg.VectorThreshold,
		append(vectorOpts, badger.WithMetaFields("entity_name", "source_id", "file_path"))...)
	if err != nil {
		cleanup()
		return nil, err
	}
	opened = append(opened, db.entities)

	db.relationships, err = badger.NewVectorStore(manager, NamespaceRelationships, embedder, cfg.VectorThreshold,
		append(vectorOpts, badger.WithMetaFields("src_id", "tgt_id", "source_id", "file_path"))...)
	if err != nil {
		cleanup()
		return nil, err
	}
	opened = append(opened, db.relationships)

	db.chunks, err = badger.NewVectorStore(manager, NamespaceChunks, embedder, cfg.VectorThreshold,
		append(vectorOpts, badger.WithMetaFields("full_doc_id", "source_id", "file_path"))...)
	if err != nil {
		cleanup()
		return nil, err
	}
	opened = append(opened, db.chunks)

	return db, nil
}

// Close releases every store. The shared backend tears down with the last
// release.
func (db *Database) Close() error {
	stores := []struct {
		name  string
		store interface{ Close() error }
	}{
		{"chunks", db.chunks},
		{"relationships", db.relationships},
		{"entities", db.entities},
		{"graph", db.graph},
		{"doc_status", db.docStatus},
		{"llm_cache", db.llmCache},
		{"text_chunks", db.textChunks},
		{"full_docs", db.fullDocs},
	}
	var firstErr error
	for _, s := range stores {
		if err := s.store.Close(); err != nil {
			db.logger.Error("error closing store", "store", s.name, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (db *Database) FullDocs() storage.KVStore {
	return db.fullDocs
}

func (db *Database) TextChunks() storage.KVStore {
	return db.textChunks
}

func (db *Database) LLMCache() storage.KVStore {
	return db.llmCache
}

func (db *Database) DocStatus() storage.DocStatusStore {
	return db.docStatus
}

func (db *Database) Graph() storage.GraphStore {
	return db.graph
}

func (db *Database) Entities() storage.VectorStore {
	return db.entities
}

func (db *Database) Relationships() storage.VectorStore {
	return db.relationships
}

func (db *Database) Chunks() storage.VectorStore {
	return db.chunks
}
