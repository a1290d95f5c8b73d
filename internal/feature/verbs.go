package feature

import "strings"

// verbPrefixes maps recognized identifier verb prefixes to the verb
// used when composing a heuristic description, per the table named in
// spec.md §4.4. Entries are checked in order and the first match wins;
// no prefix in the table is itself a prefix of another entry.
var verbPrefixes = []struct {
	prefix string
	verb   string
}{
	{"create", "create"},
	{"build", "create"},
	{"make", "create"},
	{"handle", "handle"},
	{"format", "format"},
	{"parse", "parse"},
	{"validate", "validate"},
	{"delete", "delete"},
	{"remove", "delete"},
	{"update", "update"},
	{"set", "set"},
	{"get", "retrieve"},
	{"fetch", "retrieve"},
	{"is", "check"},
	{"has", "check"},
}

// splitVerbPrefix returns the recognized verb and the remaining words
// of tokens, or ("", tokens) if no prefix is recognized.
func splitVerbPrefix(tokens []string) (verb string, rest []string) {
	if len(tokens) == 0 {
		return "", tokens
	}
	first := tokens[0]
	for _, vp := range verbPrefixes {
		if first == vp.prefix {
			return vp.verb, tokens[1:]
		}
		if strings.HasPrefix(first, vp.prefix) && len(first) > len(vp.prefix) {
			return vp.verb, append([]string{strings.TrimPrefix(first, vp.prefix)}, tokens[1:]...)
		}
	}
	return "", tokens
}

// describe composes a heuristic description from an identifier's
// tokens: "<verb> <remaining words>" when a verb prefix is recognized,
// otherwise just the joined words.
func describe(entityTypeWord string, tokens []string) string {
	verb, rest := splitVerbPrefix(tokens)
	words := strings.Join(rest, " ")
	switch {
	case verb != "" && words != "":
		return verb + " " + words
	case verb != "":
		return verb + " " + entityTypeWord
	case words != "":
		return words
	default:
		return entityTypeWord
	}
}
