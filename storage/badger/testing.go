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

import "github.com/poiesic/ragstore/storage"

// NewMemoryStores creates in-memory kv, doc-status, and graph stores over
// one shared manager for testing. Returns kv, docStatus, graph, manager, and
// error. Caller must close all three stores when done; the backend tears
// down with the last Close.
func NewMemoryStores() (storage.KVStore, storage.DocStatusStore, storage.GraphStore, *Manager, error) {
	manager := NewMemoryManager()

	kv, err := NewKVStore(manager, "kv_test")
	if err != nil {
		return nil, nil, nil, nil, err
	}

	docStatus, err := NewDocStatusStore(manager, "doc_status_test")
	if err != nil {
		kv.Close()
		return nil, nil, nil, nil, err
	}

	graph, err := NewGraphStore(manager, "graph_test")
	if err != nil {
		docStatus.Close()
		kv.Close()
		return nil, nil, nil, nil, err
	}

	return kv, docStatus, graph, manager, nil
}
