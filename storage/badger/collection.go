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
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// dropChunkSize caps how many deletes go into one transaction so a Drop over
// a large collection never hits badger.ErrTxnTooBig.
const dropChunkSize = 1000

// EnsureCollection registers a named collection, creating its registry entry
// if absent. Registration is idempotent and safe under concurrent callers.
func (b *Backend) EnsureCollection(name string) error {
	key := makeCollectionKey(name)
	return b.Update(func(tx *badger.Txn) error {
		_, err := tx.Get(key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return tx.Set(key, []byte{})
	})
}

// getRaw reads the value at key, returning nil with no error when the key
// does not exist.
func getRaw(tx *badger.Txn, key []byte) ([]byte, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

// scanCollection iterates every document in a collection, invoking fn with
// the document id and serialized value. Iteration stops on the first error.
func (b *Backend) scanCollection(collection string, fn func(id string, val []byte) error) error {
	prefix := makeDocPrefix(collection)
	return b.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(docID(item.Key(), prefix), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// scanCollectionKeys iterates document ids only, skipping value reads.
func (b *Backend) scanCollectionKeys(collection string, fn func(id string) error) error {
	prefix := makeDocPrefix(collection)
	return b.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			if err := fn(docID(it.Item().Key(), prefix)); err != nil {
				return err
			}
		}
		return nil
	})
}

// deleteDocs removes the documents with the given ids, in chunks, and
// returns how many existed. Missing ids are skipped.
func (b *Backend) deleteDocs(collection string, ids []string) (int, error) {
	removed := 0
	for start := 0; start < len(ids); start += dropChunkSize {
		end := start + dropChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]
		// Counted inside the transaction and applied only after commit, so a
		// conflict retry cannot double-count.
		var chunkRemoved int
		err := b.Update(func(tx *badger.Txn) error {
			chunkRemoved = 0
			for _, id := range chunk {
				key := makeDocKey(collection, id)
				if _, err := tx.Get(key); err != nil {
					if errors.Is(err, badger.ErrKeyNotFound) {
						continue
					}
					return err
				}
				if err := tx.Delete(key); err != nil {
					return err
				}
				chunkRemoved++
			}
			return nil
		})
		if err != nil {
			return removed, err
		}
		removed += chunkRemoved
	}
	return removed, nil
}

// dropCollection removes every document in a collection and returns the
// removed count.
func (b *Backend) dropCollection(collection string) (int, error) {
	var ids []string
	if err := b.scanCollectionKeys(collection, func(id string) error {
		ids = append(ids, id)
		return nil
	}); err != nil {
		return 0, err
	}
	return b.deleteDocs(collection, ids)
}
