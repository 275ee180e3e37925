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
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragstore/core"
	"github.com/poiesic/ragstore/storage"
)

// WildcardLabel selects the whole graph in Subgraph.
const WildcardLabel = "*"

// attrKeyRelation is lifted out of edge attributes into Edge.Relation;
// attrKeyTarget is reserved because the target is an explicit argument.
const (
	attrKeyRelation = "relation"
	attrKeyTarget   = "target"
)

type graphStore struct {
	manager    *Manager
	backend    *Backend
	collection string
	logger     *slog.Logger
}

// NewGraphStore creates a property-graph store over the named collection,
// acquiring a reference on the shared backend.
func NewGraphStore(manager *Manager, collection string) (storage.GraphStore, error) {
	backend, err := manager.Acquire()
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureCollection(collection); err != nil {
		manager.Release(backend)
		return nil, err
	}
	return &graphStore{
		manager:    manager,
		backend:    backend,
		collection: collection,
		logger:     slog.Default().With("store", "graph", "collection", collection),
	}, nil
}

// readNode reads and deserializes a node within tx, returning nil if absent.
func (s *graphStore) readNode(tx *badger.Txn, id string) (*core.Node, error) {
	val, err := getRaw(tx, makeDocKey(s.collection, id))
	if err != nil || val == nil {
		return nil, err
	}
	node, err := storage.UnmarshalNode(val)
	if err != nil {
		return nil, fmt.Errorf("%w: node %s: %w", storage.ErrSerializationFailed, id, err)
	}
	return node, nil
}

func (s *graphStore) writeNode(tx *badger.Txn, node *core.Node) error {
	return tx.Set(makeDocKey(s.collection, node.ID), storage.MarshalNode(node))
}

func (s *graphStore) HasNode(ctx context.Context, id string) (bool, error) {
	exists := false
	err := s.backend.View(func(tx *badger.Txn) error {
		val, err := getRaw(tx, makeDocKey(s.collection, id))
		exists = val != nil
		return err
	})
	return exists, err
}

func (s *graphStore) HasEdge(ctx context.Context, src, tgt string) (bool, error) {
	found := false
	err := s.backend.View(func(tx *badger.Txn) error {
		node, err := s.readNode(tx, src)
		if err != nil || node == nil {
			return err
		}
		for _, edge := range node.Edges {
			if edge.Target == tgt {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// NodeDegree sums outbound edges of id with inbound references to id. The
// inbound half has no reverse index and scans the whole collection.
func (s *graphStore) NodeDegree(ctx context.Context, id string) (int, error) {
	degree := 0
	err := s.backend.View(func(tx *badger.Txn) error {
		node, err := s.readNode(tx, id)
		if err != nil {
			return err
		}
		if node != nil {
			degree += len(node.Edges)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	// The scan covers the node's own document too: a self-loop counts once
	// outbound and once inbound.
	err = s.backend.scanCollection(s.collection, func(docID string, val []byte) error {
		node, err := storage.UnmarshalNode(val)
		if err != nil {
			return fmt.Errorf("%w: node %s: %w", storage.ErrSerializationFailed, docID, err)
		}
		for _, edge := range node.Edges {
			if edge.Target == id {
				degree++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return degree, nil
}

func (s *graphStore) EdgeDegree(ctx context.Context, src, tgt string) (int, error) {
	count := 0
	err := s.backend.View(func(tx *badger.Txn) error {
		node, err := s.readNode(tx, src)
		if err != nil || node == nil {
			return err
		}
		for _, edge := range node.Edges {
			if edge.Target == tgt {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (s *graphStore) GetNode(ctx context.Context, id string) (*core.Node, error) {
	var node *core.Node
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		node, err = s.readNode(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (s *graphStore) GetEdge(ctx context.Context, src, tgt string) (*core.Edge, error) {
	var result *core.Edge
	err := s.backend.View(func(tx *badger.Txn) error {
		node, err := s.readNode(tx, src)
		if err != nil || node == nil {
			return err
		}
		for _, edge := range node.Edges {
			if edge.Target == tgt {
				e := edge
				result = &e
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *graphStore) GetOutgoingEdges(ctx context.Context, src string) ([]core.EdgeRef, error) {
	var refs []core.EdgeRef
	err := s.backend.View(func(tx *badger.Txn) error {
		node, err := s.readNode(tx, src)
		if err != nil || node == nil {
			return err
		}
		refs = make([]core.EdgeRef, 0, len(node.Edges))
		for _, edge := range node.Edges {
			refs = append(refs, core.EdgeRef{Source: src, Target: edge.Target})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *graphStore) UpsertNode(ctx context.Context, id string, attrs core.Fields) error {
	if id == "" {
		return core.ErrEmptyID
	}
	if err := core.ValidateAttributes(attrs); err != nil {
		return err
	}
	return s.backend.Update(func(tx *badger.Txn) error {
		node, err := s.readNode(tx, id)
		if err != nil {
			return err
		}
		if node == nil {
			node = &core.Node{ID: id, Attributes: core.Fields{}, Edges: []core.Edge{}}
		}
		for k, v := range attrs {
			node.Attributes[k] = v
		}
		return s.writeNode(tx, node)
	})
}

// UpsertEdge runs ensure-source and replace-or-append in one transaction.
// Conflict retry serializes concurrent upserts of the same pair, so exactly
// one edge to tgt survives.
func (s *graphStore) UpsertEdge(ctx context.Context, src, tgt string, attrs core.Fields) error {
	if src == "" || tgt == "" {
		return core.ErrEmptyID
	}
	if _, ok := attrs[attrKeyTarget]; ok {
		return fmt.Errorf("%w: %q", core.ErrReservedAttribute, attrKeyTarget)
	}
	edge := core.Edge{Target: tgt, Attributes: core.Fields{}}
	for k, v := range attrs {
		if k == attrKeyRelation {
			edge.Relation = v
			continue
		}
		edge.Attributes[k] = v
	}
	return s.backend.Update(func(tx *badger.Txn) error {
		node, err := s.readNode(tx, src)
		if err != nil {
			return err
		}
		if node == nil {
			node = &core.Node{ID: src, Attributes: core.Fields{}, Edges: []core.Edge{}}
		}
		kept := node.Edges[:0]
		for _, e := range node.Edges {
			if e.Target != tgt {
				kept = append(kept, e)
			}
		}
		node.Edges = append(kept, edge)
		return s.writeNode(tx, node)
	})
}

// deleteNodeTx removes id and strips every edge elsewhere that targets it.
// The cascade runs inside the same transaction as the delete.
func (s *graphStore) deleteNodeTx(tx *badger.Txn, id string) error {
	key := makeDocKey(s.collection, id)
	if err := tx.Delete(key); err != nil {
		return err
	}
	prefix := makeDocPrefix(s.collection)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := tx.NewIterator(opts)
	defer it.Close()
	// Rewrites collected after iteration; mutating under a live iterator is
	// not supported.
	var updated []*core.Node
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		if docID(item.Key(), prefix) == id {
			continue
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		node, err := storage.UnmarshalNode(val)
		if err != nil {
			return fmt.Errorf("%w: node %s: %w", storage.ErrSerializationFailed, docID(item.Key(), prefix), err)
		}
		kept := node.Edges[:0]
		for _, e := range node.Edges {
			if e.Target != id {
				kept = append(kept, e)
			}
		}
		if len(kept) != len(node.Edges) {
			node.Edges = kept
			updated = append(updated, node)
		}
	}
	it.Close()
	for _, node := range updated {
		if err := s.writeNode(tx, node); err != nil {
			return err
		}
	}
	return nil
}

func (s *graphStore) DeleteNode(ctx context.Context, id string) error {
	return s.backend.Update(func(tx *badger.Txn) error {
		return s.deleteNodeTx(tx, id)
	})
}

func (s *graphStore) RemoveNodes(ctx context.Context, ids ...string) error {
	tasks := make([]func() error, len(ids))
	for i, id := range ids {
		tasks[i] = func() error {
			return s.DeleteNode(ctx, id)
		}
	}
	return s.backend.runBatch(tasks...)
}

func (s *graphStore) RemoveEdges(ctx context.Context, pairs ...core.EdgeRef) error {
	tasks := make([]func() error, len(pairs))
	for i, pair := range pairs {
		tasks[i] = func() error {
			return s.backend.Update(func(tx *badger.Txn) error {
				node, err := s.readNode(tx, pair.Source)
				if err != nil || node == nil {
					return err
				}
				kept := node.Edges[:0]
				for _, e := range node.Edges {
					if e.Target != pair.Target {
						kept = append(kept, e)
					}
				}
				if len(kept) == len(node.Edges) {
					return nil
				}
				node.Edges = kept
				return s.writeNode(tx, node)
			})
		}
	}
	return s.backend.runBatch(tasks...)
}

func (s *graphStore) AllNodeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.backend.scanCollectionKeys(s.collection, func(id string) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

func subgraphEdgeKey(src, tgt, relation string) string {
	return fmt.Sprintf("%s-%s-%s", src, tgt, relation)
}

// Subgraph materializes the bounded-depth expansion from label. The walk is
// an explicit breadth-first traversal over outbound edges with a visited set
// and a depth counter; depth 0 is the start node alone. An edge is included
// when both endpoints were collected, deduplicated by (source, target,
// relation). The wildcard label includes every edge, dangling targets too.
func (s *graphStore) Subgraph(ctx context.Context, label string, maxDepth int) (*core.Subgraph, error) {
	result := &core.Subgraph{Nodes: []core.SubgraphNode{}, Edges: []core.SubgraphEdge{}}

	if label == WildcardLabel {
		seen := make(map[string]struct{})
		err := s.backend.scanCollection(s.collection, func(id string, val []byte) error {
			node, err := storage.UnmarshalNode(val)
			if err != nil {
				return fmt.Errorf("%w: node %s: %w", storage.ErrSerializationFailed, id, err)
			}
			result.Nodes = append(result.Nodes, core.SubgraphNode{ID: node.ID, Attributes: node.Attributes})
			for _, e := range node.Edges {
				key := subgraphEdgeKey(node.ID, e.Target, e.Relation)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				result.Edges = append(result.Edges, core.SubgraphEdge{
					Key:        key,
					Source:     node.ID,
					Target:     e.Target,
					Relation:   e.Relation,
					Attributes: e.Attributes,
				})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	err := s.backend.View(func(tx *badger.Txn) error {
		start, err := s.readNode(tx, label)
		if err != nil || start == nil {
			return err
		}

		collected := map[string]*core.Node{start.ID: start}
		visited := map[string]struct{}{start.ID: {}}
		frontier := []*core.Node{start}

		for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
			var next []*core.Node
			for _, node := range frontier {
				for _, e := range node.Edges {
					if _, ok := visited[e.Target]; ok {
						continue
					}
					visited[e.Target] = struct{}{}
					neighbor, err := s.readNode(tx, e.Target)
					if err != nil {
						return err
					}
					if neighbor == nil {
						continue
					}
					collected[neighbor.ID] = neighbor
					next = append(next, neighbor)
				}
			}
			frontier = next
		}

		ids := make([]string, 0, len(collected))
		for id := range collected {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		seen := make(map[string]struct{})
		for _, id := range ids {
			node := collected[id]
			result.Nodes = append(result.Nodes, core.SubgraphNode{ID: node.ID, Attributes: node.Attributes})
			for _, e := range node.Edges {
				if _, ok := collected[e.Target]; !ok {
					continue
				}
				key := subgraphEdgeKey(node.ID, e.Target, e.Relation)
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				result.Edges = append(result.Edges, core.SubgraphEdge{
					Key:        key,
					Source:     node.ID,
					Target:     e.Target,
					Relation:   e.Relation,
					Attributes: e.Attributes,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *graphStore) Drop(ctx context.Context) (int, error) {
	removed, err := s.backend.dropCollection(s.collection)
	if err == nil {
		s.logger.Info("dropped collection", "removed", removed)
	}
	return removed, err
}

func (s *graphStore) Close() error {
	return s.manager.Release(s.backend)
}
