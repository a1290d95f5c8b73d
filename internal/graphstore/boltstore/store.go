// Package boltstore persists the graphstore.Store contract on top of
// go.etcd.io/bbolt, so a graph can be reopened across encoder runs
// without re-parsing untouched files. It buckets nodes and edges
// separately and JSON-encodes each value, mirroring the teacher's
// cache-bucket pattern (a single bucket keyed by a stable string with
// JSON-marshaled values).
package boltstore

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore"
	"github.com/rpgraph/rpg/internal/rpgerrors"
)

var (
	nodesBucket = []byte("nodes")
	edgesBucket = []byte("edges")
)

// Store is a bbolt-backed graphstore.Store. bbolt itself serializes
// writers (single writer, many readers) so no additional locking is
// needed around transactions.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bolt database at path and ensures
// the node/edge buckets exist.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, rpgerrors.Wrapf(err, rpgerrors.StoreFailure, "open bolt db %q", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(nodesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(edgesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, rpgerrors.Wrap(err, rpgerrors.StoreFailure, "initialize bolt buckets")
	}
	return &Store{db: db}, nil
}

func edgeKeyBytes(k graphmodel.EdgeKey) []byte {
	b, _ := json.Marshal(k)
	return b
}

func (s *Store) AddNode(_ context.Context, node *graphmodel.Node) error {
	if node == nil || node.ID == "" {
		return rpgerrors.New(rpgerrors.InvalidInput, "node and node id are required")
	}
	if err := node.Validate(); err != nil {
		return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "invalid node")
	}
	data, err := json.Marshal(node)
	if err != nil {
		return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "marshal node")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(nodesBucket).Put([]byte(node.ID), data)
	})
}

func (s *Store) GetNode(_ context.Context, id string) (*graphmodel.Node, bool, error) {
	var node *graphmodel.Node
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(nodesBucket).Get([]byte(id))
		if data == nil {
			return nil
		}
		node = &graphmodel.Node{}
		return json.Unmarshal(data, node)
	})
	if err != nil {
		return nil, false, rpgerrors.Wrap(err, rpgerrors.StoreFailure, "get node")
	}
	return node, node != nil, nil
}

func (s *Store) HasNode(ctx context.Context, id string) (bool, error) {
	_, ok, err := s.GetNode(ctx, id)
	return ok, err
}

func (s *Store) UpdateNode(ctx context.Context, id string, patch func(*graphmodel.Node)) error {
	node, ok, err := s.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return rpgerrors.Newf(rpgerrors.NotFound, "node %q not found", id)
	}
	patch(node)
	if err := node.Validate(); err != nil {
		return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "patch produced an invalid node")
	}
	return s.AddNode(ctx, node)
}

func (s *Store) RemoveNode(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		nb := tx.Bucket(nodesBucket)
		if nb.Get([]byte(id)) == nil {
			return nil // idempotent
		}
		if err := nb.Delete([]byte(id)); err != nil {
			return err
		}
		eb := tx.Bucket(edgesBucket)
		return eb.ForEach(func(k, v []byte) error {
			var e graphmodel.Edge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.Source == id || e.Target == id {
				return eb.Delete(k)
			}
			return nil
		})
	})
}

func (s *Store) AddEdge(ctx context.Context, edge *graphmodel.Edge) error {
	if edge == nil {
		return rpgerrors.New(rpgerrors.InvalidInput, "edge is required")
	}
	if err := edge.Validate(); err != nil {
		return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "invalid edge")
	}
	if ok, err := s.HasNode(ctx, edge.Source); err != nil {
		return err
	} else if !ok {
		return rpgerrors.Newf(rpgerrors.NotFound, "edge source %q does not exist", edge.Source)
	}
	if ok, err := s.HasNode(ctx, edge.Target); err != nil {
		return err
	} else if !ok {
		return rpgerrors.Newf(rpgerrors.NotFound, "edge target %q does not exist", edge.Target)
	}
	data, err := json.Marshal(edge)
	if err != nil {
		return rpgerrors.Wrap(err, rpgerrors.InvalidInput, "marshal edge")
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(edgesBucket).Put(edgeKeyBytes(edge.Key()), data)
	})
}

func (s *Store) RemoveEdge(_ context.Context, key graphmodel.EdgeKey) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(edgesBucket).Delete(edgeKeyBytes(key))
	})
}

func (s *Store) GetEdges(_ context.Context, filter graphstore.EdgeFilter) ([]*graphmodel.Edge, error) {
	var out []*graphmodel.Edge
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(edgesBucket).ForEach(func(_, v []byte) error {
			var e graphmodel.Edge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if filter.Source != "" && e.Source != filter.Source {
				return nil
			}
			if filter.Target != "" && e.Target != filter.Target {
				return nil
			}
			if filter.Kind != nil && e.Kind != *filter.Kind {
				return nil
			}
			out = append(out, &e)
			return nil
		})
	})
	if err != nil {
		return nil, rpgerrors.Wrap(err, rpgerrors.StoreFailure, "get edges")
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

func (s *Store) GetNeighbors(ctx context.Context, id string, dir graphstore.Direction, edgeKind *graphmodel.EdgeKind) ([]*graphmodel.Node, error) {
	seen := map[string]bool{}
	var out []*graphmodel.Node
	add := func(nid string) error {
		if seen[nid] {
			return nil
		}
		n, ok, err := s.GetNode(ctx, nid)
		if err != nil {
			return err
		}
		if ok {
			seen[nid] = true
			out = append(out, n)
		}
		return nil
	}

	if dir == graphstore.DirOut || dir == graphstore.DirBoth {
		edges, err := s.GetEdges(ctx, graphstore.EdgeFilter{Source: id})
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if edgeKind != nil && e.Kind != *edgeKind {
				continue
			}
			if err := add(e.Target); err != nil {
				return nil, err
			}
		}
	}
	if dir == graphstore.DirIn || dir == graphstore.DirBoth {
		edges, err := s.GetEdges(ctx, graphstore.EdgeFilter{Target: id})
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if edgeKind != nil && e.Kind != *edgeKind {
				continue
			}
			if err := add(e.Source); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (s *Store) Traverse(ctx context.Context, startID string, opts graphstore.TraverseOptions) (*graphstore.TraverseResult, error) {
	if ok, err := s.HasNode(ctx, startID); err != nil {
		return nil, err
	} else if !ok {
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

		var edges []*graphmodel.Edge
		if opts.Direction == graphstore.DirOut || opts.Direction == graphstore.DirBoth {
			e, err := s.GetEdges(ctx, graphstore.EdgeFilter{Source: cur.id})
			if err != nil {
				return nil, err
			}
			edges = append(edges, e...)
		}
		if opts.Direction == graphstore.DirIn || opts.Direction == graphstore.DirBoth {
			e, err := s.GetEdges(ctx, graphstore.EdgeFilter{Target: cur.id})
			if err != nil {
				return nil, err
			}
			edges = append(edges, e...)
		}

		for _, e := range edges {
			if opts.EdgeKind != nil && e.Kind != *opts.EdgeKind {
				continue
			}
			nid := e.Target
			if e.Target == cur.id {
				nid = e.Source
			}
			node, ok, err := s.GetNode(ctx, nid)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if opts.Filter != nil && !opts.Filter(node) {
				continue
			}
			key := e.Key()
			if !visitedEdges[key] {
				visitedEdges[key] = true
				result.Edges = append(result.Edges, e)
			}
			if visited[nid] {
				continue
			}
			visited[nid] = true
			result.Nodes = append(result.Nodes, node)
			nextDepth := cur.depth + 1
			if nextDepth > result.MaxDepth {
				result.MaxDepth = nextDepth
			}
			queue = append(queue, queued{nid, nextDepth})
		}
	}

	sort.Slice(result.Nodes, func(i, j int) bool { return result.Nodes[i].ID < result.Nodes[j].ID })
	sort.Slice(result.Edges, func(i, j int) bool { return result.Edges[i].Less(result.Edges[j]) })
	return result, nil
}

func (s *Store) Subgraph(ctx context.Context, ids []string) (*graphstore.ExportedGraph, error) {
	set := make(map[string]bool, len(ids))
	var nodes []*graphmodel.Node
	for _, id := range ids {
		n, ok, err := s.GetNode(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			set[id] = true
			nodes = append(nodes, n)
		}
	}
	all, err := s.GetEdges(ctx, graphstore.EdgeFilter{})
	if err != nil {
		return nil, err
	}
	var edges []*graphmodel.Edge
	for _, e := range all {
		if set[e.Source] && set[e.Target] {
			edges = append(edges, e)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return &graphstore.ExportedGraph{Nodes: nodes, Edges: edges}, nil
}

func (s *Store) Export(_ context.Context) (*graphstore.ExportedGraph, error) {
	var nodes []*graphmodel.Node
	var edges []*graphmodel.Edge
	err := s.db.View(func(tx *bolt.Tx) error {
		if err := tx.Bucket(nodesBucket).ForEach(func(_, v []byte) error {
			var n graphmodel.Node
			if err := json.Unmarshal(v, &n); err != nil {
				return err
			}
			nodes = append(nodes, &n)
			return nil
		}); err != nil {
			return err
		}
		return tx.Bucket(edgesBucket).ForEach(func(_, v []byte) error {
			var e graphmodel.Edge
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			edges = append(edges, &e)
			return nil
		})
	})
	if err != nil {
		return nil, rpgerrors.Wrap(err, rpgerrors.StoreFailure, "export")
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	sort.Slice(edges, func(i, j int) bool { return edges[i].Less(edges[j]) })
	return &graphstore.ExportedGraph{Nodes: nodes, Edges: edges}, nil
}

func (s *Store) Import(_ context.Context, data *graphstore.ExportedGraph) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		nb := tx.Bucket(nodesBucket)
		eb := tx.Bucket(edgesBucket)
		if err := nb.ForEach(func(k, _ []byte) error { return nb.Delete(k) }); err != nil {
			return err
		}
		if err := eb.ForEach(func(k, _ []byte) error { return eb.Delete(k) }); err != nil {
			return err
		}
		for _, n := range data.Nodes {
			if err := n.Validate(); err != nil {
				return rpgerrors.Wrap(err, rpgerrors.SchemaMismatch, "invalid node on import")
			}
			b, err := json.Marshal(n)
			if err != nil {
				return err
			}
			if err := nb.Put([]byte(n.ID), b); err != nil {
				return err
			}
		}
		for _, e := range data.Edges {
			if err := e.Validate(); err != nil {
				return rpgerrors.Wrap(err, rpgerrors.SchemaMismatch, "invalid edge on import")
			}
			b, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := eb.Put(edgeKeyBytes(e.Key()), b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ graphstore.Store = (*Store)(nil)
