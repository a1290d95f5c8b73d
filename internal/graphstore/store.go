// Package graphstore defines the abstract node/edge CRUD, traversal,
// and serialization contract the encoder and evolution engine depend
// on. Concrete backends live in graphstore/memstore (in-memory, the
// default) and graphstore/boltstore (persisted, go.etcd.io/bbolt).
package graphstore

import (
	"context"

	"github.com/rpgraph/rpg/internal/graphmodel"
)

// Direction constrains a neighbor/traverse query.
type Direction int

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

// EdgeFilter selects edges by any subset of source, target, and kind.
// A nil field (empty string / nil pointer) means "don't filter on this".
type EdgeFilter struct {
	Source string
	Target string
	Kind   *graphmodel.EdgeKind
}

// TraverseOptions configures a breadth-first traversal.
type TraverseOptions struct {
	Direction Direction
	EdgeKind  *graphmodel.EdgeKind
	MaxDepth  int // 0 means unbounded
	Filter    func(*graphmodel.Node) bool
}

// TraverseResult reports everything discovered from a traversal, not
// including the start node itself.
type TraverseResult struct {
	Nodes    []*graphmodel.Node
	Edges    []*graphmodel.Edge
	MaxDepth int
}

// ExportedGraph is the stable-order full serialization of a graph:
// nodes by id ascending, edges by (source, target, kind) ascending.
type ExportedGraph struct {
	Nodes []*graphmodel.Node
	Edges []*graphmodel.Edge
}

// Store is the abstract capability set every backend implements. The
// core (encoder, router, evolution) depends only on this interface.
//
// AddNode/AddEdge use insert-or-update (replace) semantics: adding an
// existing id/triple replaces its attrs rather than failing. Filters on
// unknown ids return empty results, never errors.
type Store interface {
	AddNode(ctx context.Context, node *graphmodel.Node) error
	GetNode(ctx context.Context, id string) (*graphmodel.Node, bool, error)
	HasNode(ctx context.Context, id string) (bool, error)
	UpdateNode(ctx context.Context, id string, patch func(*graphmodel.Node)) error
	RemoveNode(ctx context.Context, id string) error // cascades incident edges

	AddEdge(ctx context.Context, edge *graphmodel.Edge) error
	RemoveEdge(ctx context.Context, key graphmodel.EdgeKey) error
	GetEdges(ctx context.Context, filter EdgeFilter) ([]*graphmodel.Edge, error)
	GetNeighbors(ctx context.Context, id string, dir Direction, edgeKind *graphmodel.EdgeKind) ([]*graphmodel.Node, error)

	Traverse(ctx context.Context, startID string, opts TraverseOptions) (*TraverseResult, error)
	Subgraph(ctx context.Context, ids []string) (*ExportedGraph, error)

	Export(ctx context.Context) (*ExportedGraph, error)
	Import(ctx context.Context, data *ExportedGraph) error

	Close() error
}
