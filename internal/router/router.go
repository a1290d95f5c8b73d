// Package router implements the semantic router (spec.md §4.8): given
// a new entity's feature, it chooses which HighLevel node should be
// its Functional parent. Grounded on the teacher's
// internal/graph/semantic_matcher.go (top-K scoring, a high-threshold/
// margin tie-break), generalized from Jaccard keyword overlap between
// issues and PRs to cosine similarity over feature embeddings between
// an entity and every candidate HighLevel node, with an optional LLM
// tie-break wired to internal/llmclient.Service.CompleteJSON.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rpgraph/rpg/internal/config"
	"github.com/rpgraph/rpg/internal/embed"
	"github.com/rpgraph/rpg/internal/embedsvc"
	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/graphstore"
	"github.com/rpgraph/rpg/internal/llmclient"
)

// Candidate is one HighLevel node scored against a query feature.
type Candidate struct {
	NodeID string
	Score  float64
}

// Decision is the router's output: a chosen parent id (or "" if no
// HighLevel node exists at all) and a confidence in [0, 1].
type Decision struct {
	ParentID   string
	Confidence float64
	// ViaLLM records whether the LLM tie-break produced the decision,
	// for logging/debugging; it never changes routing semantics.
	ViaLLM bool
}

// Router never mutates the graph; it only reads candidate nodes and
// scores them.
type Router struct {
	store graphstore.Store
	embed embedsvc.Service
	llm   llmclient.Service
	cfg   config.RouterConfig
}

// New constructs a Router. llm may be nil or disabled, in which case
// the LLM tie-break step is skipped unconditionally.
func New(store graphstore.Store, embedSvc embedsvc.Service, llm llmclient.Service, cfg config.RouterConfig) *Router {
	return &Router{store: store, embed: embedSvc, llm: llm, cfg: cfg}
}

// Route chooses a parent HighLevel node for an entity's feature. scope,
// if non-empty, constrains candidates to the subtree rooted at that
// HighLevel node id (per spec.md §4.8 step 1's "optionally constrained
// to a subtree when a scope is given").
func (r *Router) Route(ctx context.Context, feature graphmodel.Feature, scope string) (Decision, error) {
	candidates, err := r.candidateHighLevelNodes(ctx, scope)
	if err != nil {
		return Decision{}, err
	}
	if len(candidates) == 0 {
		return Decision{}, nil // fallback is the caller's job (§4.8 step 4)
	}

	queryVec, err := r.embed.Embed(ctx, featureText(feature))
	if err != nil {
		return Decision{}, err
	}

	scored := make([]Candidate, 0, len(candidates))
	for _, node := range candidates {
		vec, embErr := r.embed.Embed(ctx, featureText(node.Feature))
		if embErr != nil {
			continue
		}
		scored = append(scored, Candidate{
			NodeID: node.ID,
			Score:  embed.CosineSimilarity(queryVec, vec),
		})
	}
	if len(scored) == 0 {
		return Decision{}, nil
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	topK := r.cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}

	top := scored[0]
	if top.Score >= highThreshold(r.cfg) {
		if len(scored) == 1 || top.Score-scored[1].Score >= margin(r.cfg) {
			return Decision{ParentID: top.NodeID, Confidence: top.Score}, nil
		}
	}

	if r.cfg.UseLLMTieBreak && r.llm != nil && r.llm.Enabled() {
		if decision, ok := r.llmTieBreak(ctx, feature, scored); ok {
			return decision, nil
		}
	}

	return Decision{ParentID: top.NodeID, Confidence: top.Score}, nil
}

func highThreshold(cfg config.RouterConfig) float64 {
	// 0.75 default per spec.md §4.8 step 3; RouterConfig only carries
	// DriftThreshold/SimilarityMargin/TopK/UseLLMTieBreak, so the high
	// threshold itself stays a package constant unless a future config
	// field is added for it.
	return 0.75
}

func margin(cfg config.RouterConfig) float64 {
	if cfg.SimilarityMargin > 0 {
		return cfg.SimilarityMargin
	}
	return 0.05
}

func (r *Router) candidateHighLevelNodes(ctx context.Context, scope string) ([]*graphmodel.Node, error) {
	if scope == "" {
		all, err := r.store.Export(ctx)
		if err != nil {
			return nil, err
		}
		var out []*graphmodel.Node
		for _, n := range all.Nodes {
			if n.Kind == graphmodel.NodeHighLevel {
				out = append(out, n)
			}
		}
		return out, nil
	}

	result, err := r.store.Traverse(ctx, scope, graphstore.TraverseOptions{
		Direction: graphstore.DirOut,
		EdgeKind:  kindPtr(graphmodel.EdgeFunctional),
		MaxDepth:  0,
	})
	if err != nil {
		return nil, err
	}
	root, ok, err := r.store.GetNode(ctx, scope)
	if err != nil {
		return nil, err
	}
	var out []*graphmodel.Node
	if ok && root.Kind == graphmodel.NodeHighLevel {
		out = append(out, root)
	}
	for _, n := range result.Nodes {
		if n.Kind == graphmodel.NodeHighLevel {
			out = append(out, n)
		}
	}
	return out, nil
}

func kindPtr(k graphmodel.EdgeKind) *graphmodel.EdgeKind { return &k }

func featureText(f graphmodel.Feature) string {
	return f.Description + " " + strings.Join(f.Keywords, " ")
}

type llmTieBreakResponse struct {
	SelectedID *string `json:"selected_id"`
	Confidence float64 `json:"confidence"`
}

const tieBreakSystemPrompt = `You choose which functional area a new code entity belongs to. ` +
	`Given the entity's description/keywords and a list of candidate areas (id and description), ` +
	`respond with JSON {"selected_id": "<id>"|null, "confidence": <0..1>}. ` +
	`Use null if none of the candidates is a good fit.`

func (r *Router) llmTieBreak(ctx context.Context, feature graphmodel.Feature, candidates []Candidate) (Decision, bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "entity: %s\nkeywords: %s\ncandidates:\n", feature.Description, strings.Join(feature.Keywords, ", "))
	descByID := make(map[string]string, len(candidates))
	for _, c := range candidates {
		node, ok, err := r.store.GetNode(ctx, c.NodeID)
		if err != nil || !ok {
			continue
		}
		descByID[c.NodeID] = node.Feature.Description
		fmt.Fprintf(&sb, "- %s: %s (score %.3f)\n", c.NodeID, node.Feature.Description, c.Score)
	}

	raw, err := r.llm.CompleteJSON(ctx, tieBreakSystemPrompt, sb.String())
	if err != nil {
		return Decision{}, false
	}
	var resp llmTieBreakResponse
	if jsonErr := json.Unmarshal([]byte(raw), &resp); jsonErr != nil {
		return Decision{}, false
	}
	if resp.SelectedID == nil || *resp.SelectedID == "" {
		return Decision{}, false
	}
	if _, known := descByID[*resp.SelectedID]; !known {
		return Decision{}, false
	}
	return Decision{ParentID: *resp.SelectedID, Confidence: resp.Confidence, ViaLLM: true}, true
}
