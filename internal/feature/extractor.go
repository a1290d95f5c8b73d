// Package feature produces the {description, keywords} summary
// attached to every graph node (spec.md §4.4). Heuristic mode is
// grounded on the teacher's atomizer/signature_normalizer.go regex-
// driven identifier normalization, generalized from type-name
// canonicalization into camelCase/snake_case tokenization plus a
// verb-prefix table. LLM mode calls internal/llmclient.Service,
// following the same provider/fallback shape the teacher's
// internal/llm/client.go uses for comment analysis.
package feature

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rpgraph/rpg/internal/graphmodel"
	"github.com/rpgraph/rpg/internal/llmclient"
)

// Mode selects how Extract derives a node's feature.
type Mode int

const (
	ModeHeuristic Mode = iota
	ModeLLM
)

// Entity is the minimal shape feature extraction needs from a parsed
// code entity or directory; internal/encoder builds these from
// ast.CodeEntity and directory listings.
type Entity struct {
	EntityType graphmodel.EntityType
	Name       string
	Path       string
	Children   []graphmodel.Feature // for directories: children's already-extracted features
}

// Extractor derives {description, keywords} for entities and
// directories, with an optional LLM collaborator.
type Extractor struct {
	mode Mode
	llm  llmclient.Service
}

// New constructs an Extractor. When mode is ModeLLM, llm must be
// non-nil and enabled; a disabled or nil llm silently downgrades to
// heuristic mode so callers don't have to special-case configuration.
func New(mode Mode, llm llmclient.Service) *Extractor {
	if mode == ModeLLM && (llm == nil || !llm.Enabled()) {
		mode = ModeHeuristic
	}
	return &Extractor{mode: mode, llm: llm}
}

// Extract derives a Feature for a single entity, using the LLM when
// configured and falling back to the heuristic on any failure
// (including a malformed JSON response).
func (x *Extractor) Extract(ctx context.Context, e Entity) graphmodel.Feature {
	if x.mode == ModeLLM {
		if f, ok := x.extractLLM(ctx, e); ok {
			return f
		}
	}
	return extractHeuristic(e)
}

// ExtractBatch extracts features for a sequence of entities,
// preserving input order in the returned slice (spec.md §4.4).
func (x *Extractor) ExtractBatch(ctx context.Context, entities []Entity) []graphmodel.Feature {
	out := make([]graphmodel.Feature, len(entities))
	for i, e := range entities {
		out[i] = x.Extract(ctx, e)
	}
	return out
}

// extractHeuristic is deterministic and makes no external calls.
func extractHeuristic(e Entity) graphmodel.Feature {
	if e.EntityType == "" && len(e.Children) > 0 {
		return directoryFeature(e)
	}

	identTokens := tokenizeIdentifier(e.Name)
	pathTokens := tokenizePath(e.Path)
	entityWord := string(e.EntityType)

	keywords := dedupeKeywords([]string{entityWord}, identTokens, pathTokens)
	description := describe(entityWord, identTokens)

	return graphmodel.Feature{Description: description, Keywords: keywords}
}

// directoryFeature derives a directory's feature from the union of
// its children's keywords, per spec.md §4.6 step 3 ("directory
// features derive from their children's features").
func directoryFeature(e Entity) graphmodel.Feature {
	var sets [][]string
	var descriptions []string
	for _, child := range e.Children {
		sets = append(sets, child.Keywords)
		if child.Description != "" {
			descriptions = append(descriptions, child.Description)
		}
	}
	keywords := dedupeKeywords(append([][]string{tokenizePath(e.Path)}, sets...)...)

	description := strings.Join(uniquePrefix(descriptions, 3), ", ")
	if description == "" {
		description = "directory " + e.Path
	}
	return graphmodel.Feature{Description: description, Keywords: keywords}
}

func uniquePrefix(values []string, n int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

type llmFeatureResponse struct {
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

const featureSystemPrompt = `You summarize a single source code entity for a code-search index. ` +
	`Given an entity's type, name, and file path, respond with a JSON object ` +
	`{"description": "<short phrase describing its purpose>", "keywords": ["..."]} ` +
	`using concrete, searchable terms.`

func (x *Extractor) extractLLM(ctx context.Context, e Entity) (graphmodel.Feature, bool) {
	userPrompt := "type: " + string(e.EntityType) + "\nname: " + e.Name + "\npath: " + e.Path
	raw, err := x.llm.CompleteJSON(ctx, featureSystemPrompt, userPrompt)
	if err != nil {
		return graphmodel.Feature{}, false
	}
	var resp llmFeatureResponse
	if jsonErr := json.Unmarshal([]byte(raw), &resp); jsonErr != nil {
		return graphmodel.Feature{}, false
	}
	if resp.Description == "" || len(resp.Keywords) == 0 {
		return graphmodel.Feature{}, false
	}
	return graphmodel.Feature{Description: resp.Description, Keywords: resp.Keywords}, true
}
