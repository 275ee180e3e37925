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


// Package storage defines the four storage contracts of ragstore and their
// shared serialization layer.
//
// The contracts — KVStore, DocStatusStore, GraphStore, and VectorStore — are
// the pluggable backend interface consumed by a retrieval-augmented
// pipeline. All four are independent and share no state except the
// underlying database connection, which is owned by a reference-counted
// manager in the backend package.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces rather
// than concrete types:
//
//	kv, err := badger.NewKVStore(manager, "full_docs")  // returns storage.KVStore
//
// This keeps consumers decoupled from BadgerDB specifics and lets tests
// substitute alternative implementations.
//
// # Error policy
//
// One policy applies uniformly: operations return explicit errors; reads of
// nonexistent ids return nil/empty results with a nil error; deletions are
// idempotent; Drop returns the removed count. No store swallows failures.
package storage
