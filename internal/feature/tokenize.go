package feature

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymRun    = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
)

// tokenizeIdentifier splits a camelCase or snake_case identifier into
// lowercased word tokens of at least 2 characters. Generalized from
// the teacher's regex-driven NormalizeSignature style (whitespace and
// case normalization via regexp.MustCompile) applied here to word
// segmentation instead of type-name canonicalization.
func tokenizeIdentifier(identifier string) []string {
	spaced := acronymRun.ReplaceAllString(identifier, "$1 $2")
	spaced = camelBoundary.ReplaceAllString(spaced, "$1 $2")
	spaced = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(spaced)

	var tokens []string
	for _, word := range strings.Fields(spaced) {
		word = strings.ToLower(word)
		if len(word) >= 2 {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// tokenizePath splits a file path into word tokens, dropping the
// extension and treating path separators like identifier boundaries.
func tokenizePath(path string) []string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	base = strings.NewReplacer("/", " ", string(filepath.Separator), " ").Replace(base)

	var tokens []string
	for _, part := range strings.Fields(base) {
		tokens = append(tokens, tokenizeIdentifier(part)...)
	}
	return tokens
}

// dedupeKeywords returns tokens in first-seen order with duplicates
// removed, matching the spec's "union of" phrasing for keyword sets.
func dedupeKeywords(sets ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, set := range sets {
		for _, tok := range set {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	return out
}
