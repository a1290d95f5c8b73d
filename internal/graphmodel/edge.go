package graphmodel

import "fmt"

// EdgeKind tags which variant an Edge carries.
type EdgeKind int

const (
	EdgeFunctional EdgeKind = iota
	EdgeDependency
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeFunctional:
		return "Functional"
	case EdgeDependency:
		return "Dependency"
	default:
		return "Unknown"
	}
}

// DependencyType classifies a Dependency edge's source.
type DependencyType string

const (
	DepImport  DependencyType = "import"
	DepCall    DependencyType = "call"
	DepInherit DependencyType = "inherit"
)

// FunctionalAttrs carries parent->child containment metadata.
type FunctionalAttrs struct {
	SiblingOrder int // source order among siblings; 0 if not meaningful
}

// DependencyAttrs carries code-level relation metadata.
type DependencyAttrs struct {
	DepType      DependencyType
	Symbol       string
	TargetSymbol string
	Line         int
}

// Edge is a tagged union over Functional/Dependency. Identity is the
// triple (Source, Target, Kind); a second Add with the same triple
// upserts the attrs.
type Edge struct {
	Source, Target string
	Kind           EdgeKind
	Functional     *FunctionalAttrs
	Dependency     *DependencyAttrs
}

// Key returns the edge's identity triple as a comparable value, for use
// as a map key in store backends.
func (e *Edge) Key() EdgeKey {
	return EdgeKey{Source: e.Source, Target: e.Target, Kind: e.Kind}
}

// EdgeKey is the comparable identity of an edge.
type EdgeKey struct {
	Source, Target string
	Kind           EdgeKind
}

// Validate checks the typed-duality invariant for this edge.
func (e *Edge) Validate() error {
	switch e.Kind {
	case EdgeFunctional:
		if e.Functional == nil || e.Dependency != nil {
			return fmt.Errorf("edge %s->%s: Functional kind requires Functional attrs and no Dependency attrs", e.Source, e.Target)
		}
	case EdgeDependency:
		if e.Dependency == nil || e.Functional != nil {
			return fmt.Errorf("edge %s->%s: Dependency kind requires Dependency attrs and no Functional attrs", e.Source, e.Target)
		}
	default:
		return fmt.Errorf("edge %s->%s: unknown kind %v", e.Source, e.Target, e.Kind)
	}
	return nil
}

// Clone returns a deep-enough copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	cp := *e
	if e.Functional != nil {
		f := *e.Functional
		cp.Functional = &f
	}
	if e.Dependency != nil {
		d := *e.Dependency
		cp.Dependency = &d
	}
	return &cp
}

// NewFunctional builds a Functional (containment) edge.
func NewFunctional(source, target string, siblingOrder int) *Edge {
	return &Edge{
		Source:     source,
		Target:     target,
		Kind:       EdgeFunctional,
		Functional: &FunctionalAttrs{SiblingOrder: siblingOrder},
	}
}

// NewDependency builds a Dependency edge.
func NewDependency(source, target string, depType DependencyType, symbol string) *Edge {
	return &Edge{
		Source:     source,
		Target:     target,
		Kind:       EdgeDependency,
		Dependency: &DependencyAttrs{DepType: depType, Symbol: symbol},
	}
}

// Less orders edges by (source, target, kind) ascending, matching the
// graph's stable-serialization invariant.
func (e *Edge) Less(other *Edge) bool {
	if e.Source != other.Source {
		return e.Source < other.Source
	}
	if e.Target != other.Target {
		return e.Target < other.Target
	}
	return e.Kind < other.Kind
}
