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
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragstore/core"
	"github.com/poiesic/ragstore/storage"
)

// CacheKey builds the composite id for a cache entry: mode + "_" + key.
// Cache cohorts share a mode prefix so they can be invalidated together.
func CacheKey(mode, key string) string {
	return mode + "_" + key
}

type kvStore struct {
	manager    *Manager
	backend    *Backend
	collection string
	logger     *slog.Logger
}

// NewKVStore creates a key-value store over the named collection, acquiring
// a reference on the shared backend.
func NewKVStore(manager *Manager, collection string) (storage.KVStore, error) {
	backend, err := manager.Acquire()
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureCollection(collection); err != nil {
		manager.Release(backend)
		return nil, err
	}
	return &kvStore{
		manager:    manager,
		backend:    backend,
		collection: collection,
		logger:     slog.Default().With("store", "kv", "collection", collection),
	}, nil
}

func (s *kvStore) GetByID(ctx context.Context, id string) (*core.Record, error) {
	var record *core.Record
	err := s.backend.View(func(tx *badger.Txn) error {
		val, err := getRaw(tx, makeDocKey(s.collection, id))
		if err != nil || val == nil {
			return err
		}
		record, err = storage.UnmarshalRecord(val)
		if err != nil {
			return fmt.Errorf("%w: record %s: %w", storage.ErrSerializationFailed, id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *kvStore) GetByIDs(ctx context.Context, ids ...string) ([]*core.Record, error) {
	records := make([]*core.Record, 0, len(ids))
	err := s.backend.View(func(tx *badger.Txn) error {
		for _, id := range ids {
			val, err := getRaw(tx, makeDocKey(s.collection, id))
			if err != nil {
				return err
			}
			if val == nil {
				continue
			}
			record, err := storage.UnmarshalRecord(val)
			if err != nil {
				return fmt.Errorf("%w: record %s: %w", storage.ErrSerializationFailed, id, err)
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

func (s *kvStore) FilterMissing(ctx context.Context, ids ...string) (map[string]struct{}, error) {
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

func (s *kvStore) Upsert(ctx context.Context, records ...*core.Record) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}
	tasks := make([]func() error, len(records))
	for i, record := range records {
		tasks[i] = func() error {
			return s.backend.Update(func(tx *badger.Txn) error {
				return tx.Set(makeDocKey(s.collection, record.ID), storage.MarshalRecord(record))
			})
		}
	}
	return s.backend.runBatch(tasks...)
}

func (s *kvStore) UpsertCache(ctx context.Context, mode string, records ...*core.Record) error {
	for _, record := range records {
		if err := record.Validate(); err != nil {
			return err
		}
	}
	tasks := make([]func() error, len(records))
	for i, record := range records {
		tasks[i] = func() error {
			cached := &core.Record{ID: CacheKey(mode, record.ID), Fields: record.Fields}
			key := makeDocKey(s.collection, cached.ID)
			// Insert-only: a concurrent writer of the same entry wins the
			// race and this write becomes a no-op.
			return s.backend.Update(func(tx *badger.Txn) error {
				_, err := tx.Get(key)
				if err == nil {
					return nil
				}
				if !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
				return tx.Set(key, storage.MarshalRecord(cached))
			})
		}
	}
	return s.backend.runBatch(tasks...)
}

func (s *kvStore) GetByModeAndID(ctx context.Context, mode, id string) (*core.Record, error) {
	return s.GetByID(ctx, CacheKey(mode, id))
}

func (s *kvStore) Delete(ctx context.Context, ids ...string) (int, error) {
	return s.backend.deleteDocs(s.collection, ids)
}

func (s *kvStore) DropCacheModes(ctx context.Context, modes ...string) (int, error) {
	var ids []string
	err := s.backend.scanCollectionKeys(s.collection, func(id string) error {
		for _, mode := range modes {
			if strings.HasPrefix(id, mode+"_") {
				ids = append(ids, id)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	removed, err := s.backend.deleteDocs(s.collection, ids)
	if err == nil && removed > 0 {
		s.logger.Debug("dropped cache modes", "modes", modes, "removed", removed)
	}
	return removed, err
}

func (s *kvStore) Drop(ctx context.Context) (int, error) {
	removed, err := s.backend.dropCollection(s.collection)
	if err == nil {
		s.logger.Info("dropped collection", "removed", removed)
	}
	return removed, err
}

func (s *kvStore) Close() error {
	return s.manager.Release(s.backend)
}
