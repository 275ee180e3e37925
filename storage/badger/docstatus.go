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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragstore/core"
	"github.com/poiesic/ragstore/storage"
)

// defaultFilePath marks status records ingested from sources that have no
// file of origin.
const defaultFilePath = "no-file-path"

type docStatusStore struct {
	manager    *Manager
	backend    *Backend
	collection string
	logger     *slog.Logger
}

// NewDocStatusStore creates a document-status store over the named
// collection, acquiring a reference on the shared backend.
func NewDocStatusStore(manager *Manager, collection string) (storage.DocStatusStore, error) {
	backend, err := manager.Acquire()
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureCollection(collection); err != nil {
		manager.Release(backend)
		return nil, err
	}
	return &docStatusStore{
		manager:    manager,
		backend:    backend,
		collection: collection,
		logger:     slog.Default().With("store", "docstatus", "collection", collection),
	}, nil
}

func (s *docStatusStore) GetByID(ctx context.Context, id string) (*core.DocStatusRecord, error) {
	var record *core.DocStatusRecord
	err := s.backend.View(func(tx *badger.Txn) error {
		val, err := getRaw(tx, makeDocKey(s.collection, id))
		if err != nil || val == nil {
			return err
		}
		record, err = storage.UnmarshalDocStatusRecord(val)
		if err != nil {
			return fmt.Errorf("%w: status record %s: %w", storage.ErrSerializationFailed, id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *docStatusStore) GetByIDs(ctx context.Context, ids ...string) ([]*core.DocStatusRecord, error) {
	records := make([]*core.DocStatusRecord, 0, len(ids))
	err := s.backend.View(func(tx *badger.Txn) error {
		for _, id := range ids {
			val, err := getRaw(tx, makeDocKey(s.collection, id))
			if err != nil {
				return err
			}
			if val == nil {
				continue
			}
			record, err := storage.UnmarshalDocStatusRecord(val)
			if err != nil {
				return fmt.Errorf("%w: status record %s: %w", storage.ErrSerializationFailed, id, err)
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

func (s *docStatusStore) FilterMissing(ctx context.Context, ids ...string) (map[string]struct{}, error) {
	missing := make(map[string]struct{})
	err := s.backend.View(func(tx *badger.Txn) error {
		for _, id := range ids {
			_, err := tx.Get(makeDocKey(s.collection, id))
			if err == nil {
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			missing[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return missing, nil
}

func (s *docStatusStore) Upsert(ctx context.Context, records ...*core.DocStatusRecord) error {
	now := time.Now().UTC()
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}
	tasks := make([]func() error, len(records))
	for i, record := range records {
		tasks[i] = func() error {
			stored := *record
			if stored.CreatedAt.IsZero() {
				stored.CreatedAt = now
			}
			stored.UpdatedAt = now
			if stored.FilePath == "" {
				stored.FilePath = defaultFilePath
			}
			return s.backend.Update(func(tx *badger.Txn) error {
				return tx.Set(makeDocKey(s.collection, stored.ID), storage.MarshalDocStatusRecord(&stored))
			})
		}
	}
	return s.backend.runBatch(tasks...)
}

func (s *docStatusStore) Delete(ctx context.Context, ids ...string) (int, error) {
	return s.backend.deleteDocs(s.collection, ids)
}

// StatusCounts scans the collection and groups documents by lifecycle state.
func (s *docStatusStore) StatusCounts(ctx context.Context) (map[core.DocStatus]int, error) {
	counts := make(map[core.DocStatus]int)
	err := s.backend.scanCollection(s.collection, func(id string, val []byte) error {
		record, err := storage.UnmarshalDocStatusRecord(val)
		if err != nil {
			return fmt.Errorf("%w: status record %s: %w", storage.ErrSerializationFailed, id, err)
		}
		counts[record.Status]++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (s *docStatusStore) ByStatus(ctx context.Context, status core.DocStatus) (map[string]*core.DocStatusRecord, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidStatus, status)
	}
	records := make(map[string]*core.DocStatusRecord)
	err := s.backend.scanCollection(s.collection, func(id string, val []byte) error {
		record, err := storage.UnmarshalDocStatusRecord(val)
		if err != nil {
			return fmt.Errorf("%w: status record %s: %w", storage.ErrSerializationFailed, id, err)
		}
		if record.Status == status {
			records[record.ID] = record
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *docStatusStore) Drop(ctx context.Context) (int, error) {
	removed, err := s.backend.dropCollection(s.collection)
	if err == nil {
		s.logger.Info("dropped collection", "removed", removed)
	}
	return removed, err
}

func (s *docStatusStore) Close() error {
	return s.manager.Release(s.backend)
}
