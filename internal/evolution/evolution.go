// Package evolution implements the evolution operations (spec.md
// §4.9-4.11): insert, delete with ancestor pruning, and modify with
// drift-based re-routing, plus the id-resolution rule in §4.12 and the
// Apply ordering guarantee from §5 (deletions and modifications before
// insertions within one commit-range application). Grounded on the
// teacher's overall mutate-then-persist pattern (no direct teacher
// analogue exists for graph evolution specifically; this package's
// shape follows internal/router's constructor/interface style). Store
// calls are not transactional: a sub-operation that fails partway is
// not rolled back and leaves the mutations it already made.
package evolution

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
	"time"

	"github.com/rpgraph/rpg/internal/config"
	"github.com/rpgraph/rpg/internal/diffparser"
	"github.com/rpgraph/rpg/internal/embed"
	"github.com/rpgraph/rpg/internal/embedsvc"
	"github.com/rpgraph/rpg/internal/feature"
	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore"
	"github.com/rpgraph/rpg/internal/router"
)

// Report summarizes one Apply call.
type Report struct {
	Inserted        []string
	Deleted         []string
	Modified        []string
	Rerouted        []string
	PrunedAncestors int
	Errors          []error
}

// Engine applies insert/delete/modify operations against a graphstore.
type Engine struct {
	store     graphstore.Store
	router    *router.Router
	features  *feature.Extractor
	embedSvc  embedsvc.Service
	cfg       config.RouterConfig
	rootID    string // HighLevel node id exempt from ancestor pruning, e.g. "dir:"
	commitSHA string
}

// New constructs an Engine. rootID, if non-empty, names the HighLevel
// node that invariant 5 treats as "the configured root" and that
// pruneOrphans must never remove even when it has no children.
func New(store graphstore.Store, r *router.Router, features *feature.Extractor, embedSvc embedsvc.Service, cfg config.RouterConfig, rootID string) *Engine {
	return &Engine{store: store, router: r, features: features, embedSvc: embedSvc, cfg: cfg, rootID: rootID}
}

func edgeKindPtr(k graphmodel.EdgeKind) *graphmodel.EdgeKind { return &k }

// Delete implements §4.9: bottom-up prune. Returns the number of
// Functional ancestors pruned (not counting the deleted node itself).
// Deleting a non-existent id is idempotent and returns 0.
func (e *Engine) Delete(ctx context.Context, id string) (int, error) {
	exists, err := e.store.HasNode(ctx, id)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, nil
	}
	parentID, err := e.functionalParent(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := e.store.RemoveNode(ctx, id); err != nil {
		return 0, err
	}
	if parentID == "" {
		return 0, nil
	}
	return e.pruneOrphans(ctx, parentID)
}

// pruneOrphans removes id and recurses to its own parent iff id has no
// remaining Functional children, stopping at the configured root or at
// the first ancestor that still has >=1 child.
func (e *Engine) pruneOrphans(ctx context.Context, id string) (int, error) {
	if id == e.rootID {
		return 0, nil
	}
	children, err := e.store.GetNeighbors(ctx, id, graphstore.DirOut, edgeKindPtr(graphmodel.EdgeFunctional))
	if err != nil {
		return 0, err
	}
	if len(children) > 0 {
		return 0, nil
	}
	parentID, err := e.functionalParent(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := e.store.RemoveNode(ctx, id); err != nil {
		return 0, err
	}
	count := 1
	if parentID != "" {
		more, pruneErr := e.pruneOrphans(ctx, parentID)
		if pruneErr != nil {
			return count, pruneErr
		}
		count += more
	}
	return count, nil
}

func (e *Engine) functionalParent(ctx context.Context, id string) (string, error) {
	parents, err := e.store.GetNeighbors(ctx, id, graphstore.DirIn, edgeKindPtr(graphmodel.EdgeFunctional))
	if err != nil {
		return "", err
	}
	if len(parents) == 0 {
		return "", nil
	}
	return parents[0].ID, nil
}

// Insert implements §4.10: compute feature, route to a parent (or
// create a directory-named HighLevel chain when none is acceptable),
// add the node, and attach exactly one Functional edge to its parent.
func (e *Engine) Insert(ctx context.Context, ce diffparser.ChangedEntity) error {
	feat := e.features.Extract(ctx, feature.Entity{
		EntityType: ce.EntityType,
		Name:       ce.EntityName,
		Path:       ce.FilePath,
	})

	decision, err := e.router.Route(ctx, feat, "")
	if err != nil {
		return err
	}
	parentID := decision.ParentID
	if parentID == "" {
		parentID, err = e.ensureDirectoryChain(ctx, ce.FilePath)
		if err != nil {
			return err
		}
	}

	node := buildLowLevelNode(ce, feat)
	if e.commitSHA != "" {
		node.Provenance = &graphmodel.Provenance{CommitSHA: e.commitSHA, UpdatedAt: time.Now().Unix()}
	}
	if err := e.store.AddNode(ctx, node); err != nil {
		return err
	}
	return e.store.AddEdge(ctx, graphmodel.NewFunctional(parentID, node.ID, 0))
}

func buildLowLevelNode(ce diffparser.ChangedEntity, feat graphmodel.Feature) *graphmodel.Node {
	node := graphmodel.NewLowLevel(ce.ID, ce.EntityType, ce.FilePath, ce.StartLine, ce.EndLine, feat)
	node.LowLevel.SourceHash = hashSource(ce.SourceCode)
	return node
}

// ensureDirectoryChain creates any missing HighLevel directory nodes
// along filePath's directory segments (§4.8 step 4's fallback and
// §4.10 step 2's "create intermediate HighLevel nodes to mirror the
// file's path segments if they do not yet exist"), returning the
// deepest one to use as the new entity's parent.
func (e *Engine) ensureDirectoryChain(ctx context.Context, filePath string) (string, error) {
	dir := path.Dir(filePath)
	if dir == "." {
		dir = ""
	}

	var segments []string
	if dir != "" {
		segments = strings.Split(dir, "/")
	}

	parentID := ""
	cumulative := ""
	for i, seg := range segments {
		if cumulative == "" {
			cumulative = seg
		} else {
			cumulative = cumulative + "/" + seg
		}
		id := graphmodel.DirNodeID(cumulative)
		exists, err := e.store.HasNode(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			if err := e.store.AddNode(ctx, graphmodel.NewHighLevel(id, cumulative, seg, dirFeature(cumulative))); err != nil {
				return "", err
			}
			if parentID != "" {
				if err := e.store.AddEdge(ctx, graphmodel.NewFunctional(parentID, id, i)); err != nil {
					return "", err
				}
			}
		}
		parentID = id
	}

	if parentID == "" {
		// The file lives at the repository root; fall back to a single
		// root-level HighLevel node rather than leaving it parentless.
		id := graphmodel.DirNodeID("")
		exists, err := e.store.HasNode(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			if err := e.store.AddNode(ctx, graphmodel.NewHighLevel(id, "", "root", dirFeature(""))); err != nil {
				return "", err
			}
		}
		parentID = id
	}
	return parentID, nil
}

func dirFeature(dirPath string) graphmodel.Feature {
	name := dirPath
	if idx := strings.LastIndex(dirPath, "/"); idx >= 0 {
		name = dirPath[idx+1:]
	}
	keywords := []string{"directory"}
	if name != "" {
		keywords = append(keywords, name)
	}
	desc := "directory " + dirPath
	if dirPath == "" {
		desc = "repository root"
	}
	return graphmodel.Feature{Description: desc, Keywords: keywords}
}

// Modify implements §4.11. If old did not previously exist, it is
// treated as an insertion (rerouted=false). Otherwise drift decides
// between an in-place update and a delete+insert re-route.
func (e *Engine) Modify(ctx context.Context, old, new diffparser.ChangedEntity) (rerouted bool, err error) {
	existing, exists, err := e.store.GetNode(ctx, old.ID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, e.Insert(ctx, new)
	}

	newFeat := e.features.Extract(ctx, feature.Entity{
		EntityType: new.EntityType,
		Name:       new.EntityName,
		Path:       new.FilePath,
	})

	drift, err := e.drift(ctx, existing.Feature, newFeat)
	if err != nil {
		return false, err
	}

	threshold := e.cfg.DriftThreshold
	if threshold <= 0 {
		threshold = 0.35
	}

	if drift <= threshold {
		sourceHash := hashSource(new.SourceCode)
		patchErr := e.store.UpdateNode(ctx, old.ID, func(n *graphmodel.Node) {
			n.Feature = newFeat
			if n.LowLevel != nil {
				n.LowLevel.SourceHash = sourceHash
			}
			n.Provenance = &graphmodel.Provenance{CommitSHA: e.commitSHA, UpdatedAt: time.Now().Unix()}
		})
		return false, patchErr
	}

	if _, delErr := e.Delete(ctx, old.ID); delErr != nil {
		return false, delErr
	}
	if insErr := e.Insert(ctx, new); insErr != nil {
		return false, insErr
	}
	return true, nil
}

// drift computes 1 - cos(embed(new.feature), embed(old.feature)).
func (e *Engine) drift(ctx context.Context, old, new graphmodel.Feature) (float64, error) {
	oldVec, err := e.embedSvc.Embed(ctx, featureText(old))
	if err != nil {
		return 0, err
	}
	newVec, err := e.embedSvc.Embed(ctx, featureText(new))
	if err != nil {
		return 0, err
	}
	return 1 - embed.CosineSimilarity(oldVec, newVec), nil
}

func featureText(f graphmodel.Feature) string {
	return f.Description + " " + strings.Join(f.Keywords, " ")
}

func hashSource(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Apply sequences a diff's deletions and modifications before its
// insertions (§5's ordering guarantee, so ancestor pruning from a
// deletion never undoes a freshly inserted node), then returns a
// Report. Each entity's operation is independent: a failure is
// recorded in Report.Errors and does not abort the remaining ones.
func (e *Engine) Apply(ctx context.Context, diff *diffparser.Diff, commitSHA string) (*Report, error) {
	e.commitSHA = commitSHA
	report := &Report{}

	for _, d := range diff.Deletions {
		id := e.resolveID(ctx, d)
		if id == "" {
			continue
		}
		pruned, err := e.Delete(ctx, id)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Deleted = append(report.Deleted, id)
		report.PrunedAncestors += pruned
	}

	for _, m := range diff.Modifications {
		old := m.Old
		if resolved := e.resolveID(ctx, m.Old); resolved != "" {
			old.ID = resolved
		}
		rerouted, err := e.Modify(ctx, old, m.New)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Modified = append(report.Modified, m.New.ID)
		if rerouted {
			report.Rerouted = append(report.Rerouted, m.New.ID)
		}
	}

	for _, ins := range diff.Insertions {
		if err := e.Insert(ctx, ins); err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		report.Inserted = append(report.Inserted, ins.ID)
	}

	return report, nil
}

// resolveID implements §4.12's legacy-id matching: exact match first,
// then a prefix match among nodes sharing (file_path, entity_type), and
// "" when neither resolves.
func (e *Engine) resolveID(ctx context.Context, ce diffparser.ChangedEntity) string {
	exists, err := e.store.HasNode(ctx, ce.ID)
	if err == nil && exists {
		return ce.ID
	}

	exported, err := e.store.Export(ctx)
	if err != nil {
		return ""
	}
	prefix := ce.FilePath + ":" + string(ce.EntityType) + ":" + ce.EntityName
	for _, n := range exported.Nodes {
		if n.Kind != graphmodel.NodeLowLevel || n.LowLevel == nil {
			continue
		}
		if n.LowLevel.Path != ce.FilePath || n.LowLevel.EntityType != ce.EntityType {
			continue
		}
		if strings.HasPrefix(n.ID, prefix) {
			return n.ID
		}
	}
	return ""
}
