// Package memstore is the in-memory graphstore.Store backend, guarded
// by a sync.RWMutex. It is the default backend for encoding and for
// tests; graphstore/boltstore persists the same contract across runs.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore"
	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// Store is a sync.RWMutex-guarded in-memory graph. The zero value is
// not usable; construct with New.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*graphmodel.Node
	edges map[graphmodel.EdgeKey]*graphmodel.Edge
	// outAdj/inAdj index edge keys by endpoint for neighbor/traverse
	// queries without a full scan.
	outAdj map[string][]graphmodel.EdgeKey
	inAdj  map[string][]graphmodel.EdgeKey
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		nodes:  make(map[string]*graphmodel.Node),
		edges:  make(map[graphmodel.EdgeKey]*graphmodel.Edge),
		outAdj: make(map[string][]graphmodel.EdgeKey),
		inAdj:  make(map[string][]graphmodel.EdgeKey),
	}
}

func (s *Store) AddNode(_ context.Context, node *graphmodel.Node) error {
	if node == nil || node.ID == "" {
		return rpgerrors.New(rpgerrors.InvalidInput, "node and node id are required")
	}
	if err := node.Validate(); err != nil {
		return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "invalid node")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[node.ID] = node.Clone()
	return nil
}

func (s *Store) GetNode(_ context.Context, id string) (*graphmodel.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, false, nil
	}
	return n.Clone(), true, nil
}

func (s *Store) HasNode(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok, nil
}

func (s *Store) UpdateNode(_ context.Context, id string, patch func(*graphmodel.Node)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return rpgerrors.Newf(rpgerrors.NotFound, "node %q not found", id)
	}
	patch(n)
	if err := n.Validate(); err != nil {
		return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "patch produced an invalid node")
	}
	return nil
}

// RemoveNode deletes the node and cascades every edge incident on it,
// satisfying invariant 4 (cascade on node removal).
func (s *Store) RemoveNode(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		return nil // idempotent per §4.9 step 1
	}
	delete(s.nodes, id)

	for _, key := range append([]graphmodel.EdgeKey(nil), s.outAdj[id]...) {
		s.removeEdgeLocked(key)
	}
	for _, key := range append([]graphmodel.EdgeKey(nil), s.inAdj[id]...) {
		s.removeEdgeLocked(key)
	}
	delete(s.outAdj, id)
	delete(s.inAdj, id)
	return nil
}

func (s *Store) AddEdge(_ context.Context, edge *graphmodel.Edge) error {
	if edge == nil {
		return rpgerrors.New(rpgerrors.InvalidInput, "edge is required")
	}
	if err := edge.Validate(); err != nil {
		return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "invalid edge")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[edge.Source]; !ok {
		return rpgerrors.Newf(rpgerrors.NotFound, "edge source %q does not exist", edge.Source)
	}
	if _, ok := s.nodes[edge.Target]; !ok {
		return rpgerrors.Newf(rpgerrors.NotFound, "edge target %q does not exist", edge.Target)
	}

	key := edge.Key()
	if _, exists := s.edges[key]; !exists {
		s.outAdj[edge.Source] = append(s.outAdj[edge.Source], key)
		s.inAdj[edge.Target] = append(s.inAdj[edge.Target], key)
	}
	s.edges[key] = edge.Clone()
	return nil
}

func (s *Store) RemoveEdge(_ context.Context, key graphmodel.EdgeKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeEdgeLocked(key)
	return nil
}

// removeEdgeLocked assumes s.mu is already held for writing.
func (s *Store) removeEdgeLocked(key graphmodel.EdgeKey) {
	if _, ok := s.edges[key]; !ok {
		return
	}
	delete(s.edges, key)
	s.outAdj[key.Source] = removeKey(s.outAdj[key.Source], key)
	s.inAdj[key.Target] = removeKey(s.inAdj[key.Target], key)
}

func removeKey(keys []graphmodel.EdgeKey, target graphmodel.EdgeKey) []graphmodel.EdgeKey {
	out := keys[:0]
	for _, k := range keys {
		if k != target {
			out = append(out, k)
		}
	}
	return out
}

func (s *Store) GetEdges(_ context.Context, filter graphstore.EdgeFilter) ([]*graphmodel.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*graphmodel.Edge
	for _, e := range s.edges {
		if filter.Source != "" && e.Source != filter.Source {
			continue
		}
		if filter.Target != "" && e.Target != filter.Target {
			continue
		}
		if filter.Kind != nil && e.Kind != *filter.Kind {
			continue
		}
		out = append(out, e.Clone())
	}
	sortEdges(out)
	return out, nil
}

func (s *Store) GetNeighbors(_ context.Context, id string, dir graphstore.Direction, edgeKind *graphmodel.EdgeKind) ([]*graphmodel.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []*graphmodel.Node
	consider := func(keys []graphmodel.EdgeKey, neighborOf func(graphmodel.EdgeKey) string) {
		for _, k := range keys {
			if edgeKind != nil && k.Kind != *edgeKind {
				continue
			}
			nid := neighborOf(k)
			if seen[nid] {
				continue
			}
			if n, ok := s.nodes[nid]; ok {
				seen[nid] = true
				out = append(out, n.Clone())
			}
		}
	}

	if dir == graphstore.DirOut || dir == graphstore.DirBoth {
		consider(s.outAdj[id], func(k graphmodel.EdgeKey) string { return k.Target })
	}
	if dir == graphstore.DirIn || dir == graphstore.DirBoth {
		consider(s.inAdj[id], func(k graphmodel.EdgeKey) string { return k.Source })
	}
	return out, nil
}

// Traverse performs a breadth-first walk from startID, terminating even
// on cyclic dependency subgraphs via a visited set.
func (s *Store) Traverse(_ context.Context, startID string, opts graphstore.TraverseOptions) (*graphstore.TraverseResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.nodes[startID]; !ok {
		return &graphstore.TraverseResult{}, nil
	}

	type queued struct {
		id    string
		depth int
	}
	visited := map[string]bool{startID: true}
	visitedEdges := map[graphmodel.EdgeKey]bool{}
	queue := []queued{{startID, 0}}
	result := &graphstore.TraverseResult{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if opts.MaxDepth > 0 && cur.depth >= opts.MaxDepth {
			continue
		}

		neighborKeys := func(keys []graphmodel.EdgeKey, neighborOf func(graphmodel.EdgeKey) string) {
			for _, k := range keys {
				if opts.EdgeKind != nil && k.Kind != *opts.EdgeKind {
					continue
				}
				nid := neighborOf(k)
				node, ok := s.nodes[nid]
				if !ok {
					continue
				}
				if opts.Filter != nil && !opts.Filter(node) {
					continue
				}
				if !visitedEdges[k] {
					visitedEdges[k] = true
					result.Edges = append(result.Edges, s.edges[k].Clone())
				}
				if visited[nid] {
					continue
				}
				visited[nid] = true
				result.Nodes = append(result.Nodes, node.Clone())
				nextDepth := cur.depth + 1
				if nextDepth > result.MaxDepth {
					result.MaxDepth = nextDepth
				}
				queue = append(queue, queued{nid, nextDepth})
			}
		}

		if opts.Direction == graphstore.DirOut || opts.Direction == graphstore.DirBoth {
			neighborKeys(s.outAdj[cur.id], func(k graphmodel.EdgeKey) string { return k.Target })
		}
		if opts.Direction == graphstore.DirIn || opts.Direction == graphstore.DirBoth {
			neighborKeys(s.inAdj[cur.id], func(k graphmodel.EdgeKey) string { return k.Source })
		}
	}

	sortNodes(result.Nodes)
	sortEdges(result.Edges)
	return result, nil
}

// Subgraph returns the induced subgraph over ids: the given nodes plus
// every edge with both endpoints in the set.
func (s *Store) Subgraph(_ context.Context, ids []string) (*graphstore.ExportedGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[string]bool, len(ids))
	var nodes []*graphmodel.Node
	for _, id := range ids {
		if n, ok := s.nodes[id]; ok {
			set[id] = true
			nodes = append(nodes, n.Clone())
		}
	}
	var edges []*graphmodel.Edge
	for _, e := range s.edges {
		if set[e.Source] && set[e.Target] {
			edges = append(edges, e.Clone())
		}
	}
	sortNodes(nodes)
	sortEdges(edges)
	return &graphstore.ExportedGraph{Nodes: nodes, Edges: edges}, nil
}

func (s *Store) Export(_ context.Context) (*graphstore.ExportedGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*graphmodel.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n.Clone())
	}
	edges := make([]*graphmodel.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, e.Clone())
	}
	sortNodes(nodes)
	sortEdges(edges)
	return &graphstore.ExportedGraph{Nodes: nodes, Edges: edges}, nil
}

// Import replaces the store's contents wholesale with data, re-indexing
// adjacency lists.
func (s *Store) Import(_ context.Context, data *graphstore.ExportedGraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]*graphmodel.Node, len(data.Nodes))
	s.edges = make(map[graphmodel.EdgeKey]*graphmodel.Edge, len(data.Edges))
	s.outAdj = make(map[string][]graphmodel.EdgeKey)
	s.inAdj = make(map[string][]graphmodel.EdgeKey)

	for _, n := range data.Nodes {
		if err := n.Validate(); err != nil {
			return rpgerrors.Wrap(err, rpgerrors.SchemaMismatch, "invalid node on import")
		}
		s.nodes[n.ID] = n.Clone()
	}
	for _, e := range data.Edges {
		if err := e.Validate(); err != nil {
			return rpgerrors.Wrap(err, rpgerrors.SchemaMismatch, "invalid edge on import")
		}
		key := e.Key()
		s.edges[key] = e.Clone()
		s.outAdj[e.Source] = append(s.outAdj[e.Source], key)
		s.inAdj[e.Target] = append(s.inAdj[e.Target], key)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func sortNodes(nodes []*graphmodel.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}

func sortEdges(edges []*graphmodel.Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })
}

var _ graphstore.Store = (*Store)(nil)
