package encoder

import "strings"

// matchGlob reports whether path matches pattern, where pattern may use
// "*" (any run of non-separator characters) and "**" (any run of path
// segments, including none). Patterns and paths are both slash-
// separated. Generalizes the teacher's flat extension/prefix checks in
// ingestion/walker.go (shouldSkipDir, isSupportedFile) into real glob
// matching over the include/exclude patterns from config, since no
// glob library appears anywhere in the example pack.
func matchGlob(pattern, path string) bool {
	return matchSegments(splitPattern(pattern), strings.Split(path, "/"))
}

func splitPattern(pattern string) []string {
	return strings.Split(pattern, "/")
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	head := pattern[0]
	if head == "**" {
		if matchSegments(pattern[1:], path) {
			return true
		}
		if len(path) == 0 {
			return false
		}
		return matchSegments(pattern, path[1:])
	}
	if len(path) == 0 {
		return false
	}
	if !matchSegment(head, path[0]) {
		return false
	}
	return matchSegments(pattern[1:], path[1:])
}

// matchSegment matches one path component against one pattern component
// containing at most "*" wildcards (no "**" inside a single segment).
func matchSegment(pattern, segment string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == segment
	}

	if !strings.HasPrefix(segment, parts[0]) {
		return false
	}
	segment = segment[len(parts[0]):]

	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(segment, part)
		if idx < 0 {
			return false
		}
		segment = segment[idx+len(part):]
	}

	last := parts[len(parts)-1]
	return strings.HasSuffix(segment, last)
}

// matchAny reports whether path matches any of the given patterns.
func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if matchGlob(p, path) {
			return true
		}
	}
	return false
}
