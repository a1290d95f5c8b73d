// Package encoder implements the end-to-end encoder pipeline (spec.md
// §4.6): walk a repository, parse every supported file, extract
// semantic features, assemble the two-tier graph, and run the
// data-flow pass. Concurrency follows the teacher's
// internal/ingestion/orchestrator.go shape (an errgroup.Group fanning
// out independent work under a bounded pool), generalized from storing
// GitHub extraction results to parsing and feature-extracting source
// files, with a semaphore.Weighted added to bound parse concurrency
// the way the teacher bounds its own github API fan-out.
package encoder

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rpgraph/rpg/internal/ast"
	"github.com/rpgraph/rpg/internal/config"
	"github.com/rpgraph/rpg/internal/dataflow"
	"github.com/rpgraph/rpg/internal/feature"
	"github.com/rpgraph/rpg/internal/gitutil"
	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore"
	"github.com/rpgraph/rpg/internal/logging"
	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// Result reports the outcome of one Encode call.
type Result struct {
	FilesProcessed    int
	EntitiesExtracted int
	DurationMs        int64
	Warnings          []string
}

// Pipeline assembles a Repository Planning Graph from a repository
// working tree.
type Pipeline struct {
	provider  ast.Provider
	extractor *feature.Extractor
	store     graphstore.Store
	cfg       config.EncoderConfig
	repo      *gitutil.Repo // nil when root is not a git workspace
}

// New constructs a Pipeline. repo may be nil; Encode then skips the
// commit-provenance stamping step.
func New(provider ast.Provider, extractor *feature.Extractor, store graphstore.Store, cfg config.EncoderConfig, repo *gitutil.Repo) *Pipeline {
	return &Pipeline{provider: provider, extractor: extractor, store: store, cfg: cfg, repo: repo}
}

type parsedFile struct {
	Path     string
	Lang     ast.Language
	Source   []byte
	Entities []ast.CodeEntity
	Imports  []ast.ImportSpec
}

// Encode walks root, parses every supported file, extracts features,
// assembles the graph, and runs the data-flow pass. Cancellation mid-
// file discards that file's partial parse (parseAll returns early
// without touching the store); every graph mutation happens afterward
// in assembleGraph, the single-writer stage, so the store is never
// left partially updated by a cancelled encode.
func (p *Pipeline) Encode(ctx context.Context, root string) (*Result, error) {
	start := time.Now()

	paths, err := walk(root, p.cfg.Include, p.cfg.Exclude, p.cfg.MaxDepth)
	if err != nil {
		return nil, err
	}

	files, warnings, err := p.parseAll(ctx, root, paths)
	if err != nil {
		return nil, err
	}

	entitiesExtracted, err := p.assembleGraph(ctx, files)
	if err != nil {
		return nil, err
	}

	if err := p.stampProvenance(ctx, root); err != nil {
		warnings = append(warnings, "provenance: "+err.Error())
	}

	logging.Info("encode complete", "files", len(files), "entities", entitiesExtracted)
	return &Result{
		FilesProcessed:    len(files),
		EntitiesExtracted: entitiesExtracted,
		DurationMs:        time.Since(start).Milliseconds(),
		Warnings:          warnings,
	}, nil
}

// parseAll parses every candidate file concurrently, bounded by
// cfg.Workers. Per-file read/parse failures are isolated: they append
// a warning and the file is skipped, per §7's "one bad file cannot
// fail the whole encode" recovery policy.
func (p *Pipeline) parseAll(ctx context.Context, root string, paths []string) ([]parsedFile, []string, error) {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var files []parsedFile
	var warnings []string

	for _, rel := range paths {
		rel := rel
		lang := p.provider.DetectLanguage(rel)
		if lang == ast.LangUnknown || !p.provider.IsSupported(lang) {
			continue
		}
		if err := sem.Acquire(gctx, 1); err != nil {
			break // context cancelled; stop scheduling new work
		}
		g.Go(func() error {
			defer sem.Release(1)
			return p.parseOne(gctx, root, rel, lang, &mu, &files, &warnings)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, rpgerrors.Wrap(err, rpgerrors.ExternalFailure, "parse fan-out")
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, warnings, nil
}

func (p *Pipeline) parseOne(ctx context.Context, root, rel string, lang ast.Language, mu *sync.Mutex, files *[]parsedFile, warnings *[]string) error {
	if err := ctx.Err(); err != nil {
		return nil // cancelled: discard this file's work, never partial
	}

	source, readErr := os.ReadFile(filepath.Join(root, rel))
	if readErr != nil {
		mu.Lock()
		*warnings = append(*warnings, "read "+rel+": "+readErr.Error())
		mu.Unlock()
		return nil
	}

	result, parseErr := p.provider.Parse(source, lang)
	if parseErr != nil {
		mu.Lock()
		*warnings = append(*warnings, "parse "+rel+": "+parseErr.Error())
		mu.Unlock()
		return nil
	}
	for _, e := range result.Errors {
		mu.Lock()
		*warnings = append(*warnings, rel+": "+e)
		mu.Unlock()
	}

	mu.Lock()
	*files = append(*files, parsedFile{Path: rel, Lang: lang, Source: source, Entities: result.Entities, Imports: result.Imports})
	mu.Unlock()
	return nil
}

// entityKindMap maps ast.EntityType to graphmodel.EntityType; "module"
// has no LowLevel counterpart (spec.md §3 restricts EntityType to
// file/class/function/method/variable) so it's dropped at this layer.
var entityKindMap = map[ast.EntityType]graphmodel.EntityType{
	ast.EntFunction: graphmodel.EntityFunction,
	ast.EntMethod:   graphmodel.EntityMethod,
	ast.EntClass:    graphmodel.EntityClass,
	ast.EntVariable: graphmodel.EntityVariable,
}

// assembleGraph is the single-writer coordinator: it extracts features
// and then issues every node/edge mutation, matching §5's single-
// writer pattern (extraction fans out, results fan in, one coordinator
// applies mutations).
func (p *Pipeline) assembleGraph(ctx context.Context, files []parsedFile) (int, error) {
	entityFeatures, fileFeatures := p.extractEntityAndFileFeatures(ctx, files)

	dirPaths := collectDirectories(files)
	dirFeatures := p.extractDirectoryFeatures(ctx, dirPaths, files, fileFeatures)

	if err := p.writeDirectoryNodes(ctx, dirPaths, dirFeatures); err != nil {
		return 0, err
	}

	entitiesExtracted := 0
	var dataflowFiles []dataflow.File
	for _, f := range files {
		if err := p.writeFileSubtree(ctx, f, fileFeatures[f.Path], entityFeatures[f.Path]); err != nil {
			return entitiesExtracted, err
		}
		entitiesExtracted += len(f.Entities)
		dataflowFiles = append(dataflowFiles, dataflow.File{
			Path: f.Path, Lang: f.Lang, Source: f.Source, Entities: f.Entities, Imports: f.Imports,
		})
	}

	edges := dataflow.DetectAll(dataflowFiles)
	for i := range edges {
		if err := p.store.AddEdge(ctx, &edges[i]); err != nil {
			return entitiesExtracted, err
		}
	}

	return entitiesExtracted, nil
}

func (p *Pipeline) extractEntityAndFileFeatures(ctx context.Context, files []parsedFile) (map[string][]graphmodel.Feature, map[string]graphmodel.Feature) {
	entityFeatures := make(map[string][]graphmodel.Feature, len(files))
	fileEntities := make([]feature.Entity, 0, len(files))

	for _, f := range files {
		entities := make([]feature.Entity, 0, len(f.Entities))
		for _, e := range f.Entities {
			entType, ok := entityKindMap[e.Type]
			if !ok {
				continue
			}
			entities = append(entities, feature.Entity{EntityType: entType, Name: e.Name, Path: f.Path})
		}
		entityFeatures[f.Path] = p.extractor.ExtractBatch(ctx, entities)
		fileEntities = append(fileEntities, feature.Entity{EntityType: graphmodel.EntityFile, Name: path.Base(f.Path), Path: f.Path})
	}

	fileFeatureList := p.extractor.ExtractBatch(ctx, fileEntities)
	fileFeatures := make(map[string]graphmodel.Feature, len(files))
	for i, f := range files {
		fileFeatures[f.Path] = fileFeatureList[i]
	}
	return entityFeatures, fileFeatures
}

// collectDirectories returns every directory path implied by files'
// paths (including intermediate ancestors and the repository root ""),
// in no particular order; callers sort as needed.
func collectDirectories(files []parsedFile) []string {
	set := map[string]bool{"": true}
	for _, f := range files {
		dir := path.Dir(f.Path)
		if dir == "." {
			dir = ""
		}
		for {
			set[dir] = true
			if dir == "" {
				break
			}
			parent := path.Dir(dir)
			if parent == "." {
				parent = ""
			}
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return strings.Count(out[i], "/") > strings.Count(out[j], "/") })
	return out
}

// extractDirectoryFeatures computes each directory's feature bottom-up
// (deepest first) so a parent directory's Children always contains
// already-computed subdirectory and file features, per spec.md §4.6
// step 3.
func (p *Pipeline) extractDirectoryFeatures(ctx context.Context, dirsDeepestFirst []string, files []parsedFile, fileFeatures map[string]graphmodel.Feature) map[string]graphmodel.Feature {
	filesByDir := make(map[string][]string)
	for _, f := range files {
		dir := path.Dir(f.Path)
		if dir == "." {
			dir = ""
		}
		filesByDir[dir] = append(filesByDir[dir], f.Path)
	}
	subdirsByParent := make(map[string][]string)
	for _, d := range dirsDeepestFirst {
		if d == "" {
			continue
		}
		parent := path.Dir(d)
		if parent == "." {
			parent = ""
		}
		subdirsByParent[parent] = append(subdirsByParent[parent], d)
	}

	dirFeatures := make(map[string]graphmodel.Feature, len(dirsDeepestFirst))
	for _, d := range dirsDeepestFirst {
		var children []graphmodel.Feature
		for _, fp := range filesByDir[d] {
			children = append(children, fileFeatures[fp])
		}
		for _, sub := range subdirsByParent[d] {
			children = append(children, dirFeatures[sub])
		}
		dirFeatures[d] = p.extractor.Extract(ctx, feature.Entity{Path: d, Children: children})
	}
	return dirFeatures
}

func (p *Pipeline) writeDirectoryNodes(ctx context.Context, dirsDeepestFirst []string, dirFeatures map[string]graphmodel.Feature) error {
	// Write parents before children so AddEdge's endpoint-existence
	// check never fires; iterate shallowest first.
	ordered := append([]string(nil), dirsDeepestFirst...)
	sort.Slice(ordered, func(i, j int) bool { return strings.Count(ordered[i], "/") < strings.Count(ordered[j], "/") })

	for _, d := range ordered {
		id := graphmodel.DirNodeID(d)
		name := d
		if idx := strings.LastIndex(d, "/"); idx >= 0 {
			name = d[idx+1:]
		}
		node := graphmodel.NewHighLevel(id, d, name, dirFeatures[d])
		if err := p.store.AddNode(ctx, node); err != nil {
			return err
		}
		if d == "" {
			continue
		}
		parent := path.Dir(d)
		if parent == "." {
			parent = ""
		}
		if err := p.store.AddEdge(ctx, graphmodel.NewFunctional(graphmodel.DirNodeID(parent), id, 0)); err != nil {
			return err
		}
	}
	return nil
}

// writeFileSubtree writes the file's LowLevel node, the dir->file
// Functional edge, and every entity node with its containment edge
// (file->top-level entity, or class->method for nested entities, with
// a sibling_order following source order).
func (p *Pipeline) writeFileSubtree(ctx context.Context, f parsedFile, fileFeat graphmodel.Feature, entityFeats []graphmodel.Feature) error {
	fileID := graphmodel.FileNodeID(f.Path)
	fileNode := graphmodel.NewLowLevel(fileID, graphmodel.EntityFile, f.Path, 0, 0, fileFeat)
	if err := p.store.AddNode(ctx, fileNode); err != nil {
		return err
	}
	dir := path.Dir(f.Path)
	if dir == "." {
		dir = ""
	}
	if err := p.store.AddEdge(ctx, graphmodel.NewFunctional(graphmodel.DirNodeID(dir), fileID, 0)); err != nil {
		return err
	}

	// byName maps a top-level entity's own name to its node id, so
	// nested entities (methods) can find their enclosing class.
	byName := make(map[string]string, len(f.Entities))
	ids := make([]string, len(f.Entities))
	for i, e := range f.Entities {
		entType, ok := entityKindMap[e.Type]
		if !ok {
			continue
		}
		qualified := e.Name
		if e.Parent != "" {
			qualified = graphmodel.QualifiedName(e.Parent, e.Name)
		}
		ids[i] = graphmodel.EntityNodeIDWithLine(f.Path, entType, qualified, e.StartLine)
		if e.Parent == "" {
			byName[e.Name] = ids[i]
		}
	}

	siblingOrder := make(map[string]int)
	for i, e := range f.Entities {
		entType, ok := entityKindMap[e.Type]
		if !ok {
			continue
		}
		node := graphmodel.NewLowLevel(ids[i], entType, f.Path, e.StartLine, e.EndLine, entityFeats[i])
		if err := p.store.AddNode(ctx, node); err != nil {
			return err
		}

		parentID := fileID
		if e.Parent != "" {
			if classID, ok := byName[e.Parent]; ok {
				parentID = classID
			}
		}
		order := siblingOrder[parentID]
		siblingOrder[parentID] = order + 1
		if err := p.store.AddEdge(ctx, graphmodel.NewFunctional(parentID, ids[i], order)); err != nil {
			return err
		}
	}
	return nil
}

// stampProvenance sets {commit_sha, updated_at} on every node when
// root is a git workspace, per spec.md §4.6 step 6.
func (p *Pipeline) stampProvenance(ctx context.Context, root string) error {
	if p.repo == nil {
		return nil
	}
	if !p.repo.IsRepo(ctx) {
		return nil
	}
	sha, err := p.repo.RevParse(ctx, "HEAD")
	if err != nil {
		return err
	}
	ts, err := p.repo.CommitTimestamp(ctx, "HEAD")
	if err != nil {
		return err
	}

	exported, err := p.store.Export(ctx)
	if err != nil {
		return err
	}
	for _, n := range exported.Nodes {
		id := n.ID
		if err := p.store.UpdateNode(ctx, id, func(node *graphmodel.Node) {
			node.Provenance = &graphmodel.Provenance{CommitSHA: sha, UpdatedAt: ts}
		}); err != nil {
			return err
		}
	}
	return nil
}
