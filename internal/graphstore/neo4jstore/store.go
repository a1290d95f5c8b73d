// Package neo4jstore persists the graphstore.Store contract against a
// real Neo4j cluster, for deployments where the graph should outlive a
// single machine and be queryable outside the rpg binary. Nodes carry
// a single :RPGNode label and a unique "id" property; edges carry a
// single :RPG_EDGE relationship type and a "kind" property, so both
// directions of spec.md's tagged-union model share one label/type
// rather than one per NodeKind/EdgeKind. Each node/edge's full typed
// payload is JSON-marshaled into a "data" property, mirroring
// graphstore/boltstore's JSON-blob-per-bucket-entry approach but
// addressed through parameterized Cypher instead of a bbolt bucket.
//
// Grounded on the teacher's internal/graph/neo4j_client.go (driver
// construction, connection-pool tuning, ExecuteQuery helper pattern)
// and cypher_builder.go (every value flows through a named parameter,
// never string-interpolated into the query text).
package neo4jstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore"
	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// Store is a Neo4j-backed graphstore.Store.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

// Open connects to a Neo4j instance at uri with basic auth and verifies
// connectivity before returning, the same fail-fast-on-startup contract
// as the teacher's NewClientWithDatabase. database defaults to "neo4j"
// when empty.
func Open(ctx context.Context, uri, username, password, database string) (*Store, error) {
	if uri == "" {
		return nil, rpgerrors.New(rpgerrors.InvalidInput, "neo4j uri is required")
	}
	if database == "" {
		database = "neo4j"
	}

	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(username, password, ""),
		func(cfg *neo4j.Config) {
			cfg.MaxConnectionPoolSize = 50
			cfg.ConnectionAcquisitionTimeout = 60 * time.Second
			cfg.MaxConnectionLifetime = time.Hour
			cfg.SocketConnectTimeout = 5 * time.Second
		})
	if err != nil {
		return nil, rpgerrors.Wrapf(err, rpgerrors.StoreFailure, "create neo4j driver for %q", uri)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, rpgerrors.Wrapf(err, rpgerrors.StoreFailure, "connect to neo4j at %q", uri)
	}

	s := &Store{driver: driver, database: database}
	if err := s.ensureConstraint(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureConstraint(ctx context.Context) error {
	_, err := neo4j.ExecuteQuery(ctx, s.driver,
		"CREATE CONSTRAINT rpg_node_id IF NOT EXISTS FOR (n:RPGNode) REQUIRE n.id IS UNIQUE",
		nil, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.database))
	if err != nil {
		return rpgerrors.Wrap(err, rpgerrors.StoreFailure, "ensure rpg_node_id constraint")
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.driver.Close(context.Background()); err != nil {
		return rpgerrors.Wrap(err, rpgerrors.StoreFailure, "close neo4j driver")
	}
	return nil
}

func (s *Store) run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, s.driver, query, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.database))
	if err != nil {
		return nil, rpgerrors.Wrapf(err, rpgerrors.StoreFailure, "cypher query failed: %s", query)
	}
	return result, nil
}

func (s *Store) AddNode(ctx context.Context, node *graphmodel.Node) error {
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
	_, err = s.run(ctx, "MERGE (n:RPGNode {id: $id}) SET n.data = $data",
		map[string]any{"id": node.ID, "data": string(data)})
	return err
}

func (s *Store) GetNode(ctx context.Context, id string) (*graphmodel.Node, bool, error) {
	result, err := s.run(ctx, "MATCH (n:RPGNode {id: $id}) RETURN n.data AS data",
		map[string]any{"id": id})
	if err != nil {
		return nil, false, err
	}
	if len(result.Records) == 0 {
		return nil, false, nil
	}
	node, err := decodeNode(result.Records[0])
	if err != nil {
		return nil, false, err
	}
	return node, true, nil
}

func decodeNode(record *neo4j.Record) (*graphmodel.Node, error) {
	raw, ok := record.Get("data")
	if !ok {
		return nil, rpgerrors.New(rpgerrors.SchemaMismatch, "node record missing data property")
	}
	str, ok := raw.(string)
	if !ok {
		return nil, rpgerrors.Newf(rpgerrors.SchemaMismatch, "node data property has unexpected type %T", raw)
	}
	var node graphmodel.Node
	if err := json.Unmarshal([]byte(str), &node); err != nil {
		return nil, rpgerrors.Wrap(err, rpgerrors.SchemaMismatch, "unmarshal node data")
	}
	return &node, nil
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

func (s *Store) RemoveNode(ctx context.Context, id string) error {
	_, err := s.run(ctx, "MATCH (n:RPGNode {id: $id}) DETACH DELETE n",
		map[string]any{"id": id})
	return err
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
	_, err = s.run(ctx, `
		MATCH (a:RPGNode {id: $source}), (b:RPGNode {id: $target})
		MERGE (a)-[r:RPG_EDGE {kind: $kind}]->(b)
		SET r.data = $data
	`, map[string]any{
		"source": edge.Source,
		"target": edge.Target,
		"kind":   int64(edge.Kind),
		"data":   string(data),
	})
	return err
}

func (s *Store) RemoveEdge(ctx context.Context, key graphmodel.EdgeKey) error {
	_, err := s.run(ctx, `
		MATCH (:RPGNode {id: $source})-[r:RPG_EDGE {kind: $kind}]->(:RPGNode {id: $target})
		DELETE r
	`, map[string]any{"source": key.Source, "target": key.Target, "kind": int64(key.Kind)})
	return err
}

func (s *Store) GetEdges(ctx context.Context, filter graphstore.EdgeFilter) ([]*graphmodel.Edge, error) {
	query := "MATCH (a:RPGNode)-[r:RPG_EDGE]->(b:RPGNode) WHERE 1 = 1"
	params := map[string]any{}
	if filter.Source != "" {
		query += " AND a.id = $source"
		params["source"] = filter.Source
	}
	if filter.Target != "" {
		query += " AND b.id = $target"
		params["target"] = filter.Target
	}
	if filter.Kind != nil {
		query += " AND r.kind = $kind"
		params["kind"] = int64(*filter.Kind)
	}
	query += " RETURN r.data AS data"

	result, err := s.run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	out := make([]*graphmodel.Edge, 0, len(result.Records))
	for _, rec := range result.Records {
		e, err := decodeEdge(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

func decodeEdge(record *neo4j.Record) (*graphmodel.Edge, error) {
	raw, ok := record.Get("data")
	if !ok {
		return nil, rpgerrors.New(rpgerrors.SchemaMismatch, "edge record missing data property")
	}
	str, ok := raw.(string)
	if !ok {
		return nil, rpgerrors.Newf(rpgerrors.SchemaMismatch, "edge data property has unexpected type %T", raw)
	}
	var edge graphmodel.Edge
	if err := json.Unmarshal([]byte(str), &edge); err != nil {
		return nil, rpgerrors.Wrap(err, rpgerrors.SchemaMismatch, "unmarshal edge data")
	}
	return &edge, nil
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

// Traverse performs the same bounded BFS as graphstore/boltstore, built
// from GetEdges/GetNode rather than a single recursive Cypher query, so
// TraverseOptions.Filter (an arbitrary Go predicate) can still reject
// nodes mid-walk the way a server-side Cypher WHERE clause cannot.
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

func (s *Store) Export(ctx context.Context) (*graphstore.ExportedGraph, error) {
	nodeResult, err := s.run(ctx, "MATCH (n:RPGNode) RETURN n.data AS data", nil)
	if err != nil {
		return nil, err
	}
	nodes := make([]*graphmodel.Node, 0, len(nodeResult.Records))
	for _, rec := range nodeResult.Records {
		n, err := decodeNode(rec)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	edges, err := s.GetEdges(ctx, graphstore.EdgeFilter{})
	if err != nil {
		return nil, err
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return &graphstore.ExportedGraph{Nodes: nodes, Edges: edges}, nil
}

// Import replaces the entire graph in one write transaction: every
// :RPGNode (and its incident :RPG_EDGE relationships) is detached and
// deleted before data is re-inserted, matching graphstore/boltstore's
// Import semantics (full replace, not merge).
func (s *Store) Import(ctx context.Context, data *graphstore.ExportedGraph) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, "MATCH (n:RPGNode) DETACH DELETE n", nil); err != nil {
			return nil, err
		}
		for _, n := range data.Nodes {
			if err := n.Validate(); err != nil {
				return nil, rpgerrors.Wrap(err, rpgerrors.SchemaMismatch, "invalid node on import")
			}
			b, err := json.Marshal(n)
			if err != nil {
				return nil, err
			}
			if _, err := tx.Run(ctx, "MERGE (n:RPGNode {id: $id}) SET n.data = $data",
				map[string]any{"id": n.ID, "data": string(b)}); err != nil {
				return nil, err
			}
		}
		for _, e := range data.Edges {
			if err := e.Validate(); err != nil {
				return nil, rpgerrors.Wrap(err, rpgerrors.SchemaMismatch, "invalid edge on import")
			}
			b, err := json.Marshal(e)
			if err != nil {
				return nil, err
			}
			_, err = tx.Run(ctx, `
				MATCH (a:RPGNode {id: $source}), (b:RPGNode {id: $target})
				MERGE (a)-[r:RPG_EDGE {kind: $kind}]->(b)
				SET r.data = $data
			`, map[string]any{
				"source": e.Source,
				"target": e.Target,
				"kind":   int64(e.Kind),
				"data":   string(b),
			})
			if err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return rpgerrors.Wrap(err, rpgerrors.StoreFailure, fmt.Sprintf("import %d nodes, %d edges", len(data.Nodes), len(data.Edges)))
	}
	return nil
}
