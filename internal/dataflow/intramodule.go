package dataflow

import (
	"regexp"
	"strings"

	"github.com/rpgraph/rpg/internal/ast"
	"github.com/rpgraph/rpg/internal/graphmodel"
)

// wordBoundaryRegex wraps a literal identifier in word-boundary anchors so
// it matches only whole identifiers, not substrings of longer names.
// Mirrors the teacher's diff_parser.go style of building small,
// purpose-built regexes rather than a general expression parser.
func wordBoundaryRegex(identifier string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(identifier) + `\b`)
}

// IntraModule detects variable-forwarding call chains within a single
// file: a call expression whose callee is another local function/method
// and whose argument text contains one of the enclosing function's
// parameters, per spec.md §4.5.
func IntraModule(files []File) []graphmodel.Edge {
	var edges []graphmodel.Edge
	for _, f := range files {
		edges = append(edges, intraModuleFile(f)...)
	}
	return edges
}

func intraModuleFile(f File) []graphmodel.Edge {
	if len(f.Source) == 0 {
		return nil
	}
	lines := strings.Split(string(f.Source), "\n")

	callable := make(map[string]ast.CodeEntity)
	callRegexes := make(map[string]*regexp.Regexp)
	for _, e := range f.Entities {
		if e.Type == ast.EntFunction || e.Type == ast.EntMethod {
			callable[e.Name] = e
			if _, exists := callRegexes[e.Name]; !exists {
				callRegexes[e.Name] = regexp.MustCompile(`\b` + regexp.QuoteMeta(e.Name) + `\s*\(([^()]*)\)`)
			}
		}
	}

	var edges []graphmodel.Edge
	for _, caller := range f.Entities {
		if caller.Type != ast.EntFunction && caller.Type != ast.EntMethod {
			continue
		}
		if len(caller.Parameters) == 0 {
			continue
		}
		body := sliceLines(lines, caller.StartLine, caller.EndLine)
		for name, callee := range callable {
			if name == caller.Name {
				continue
			}
			matches := callRegexes[name].FindAllStringSubmatch(body, -1)
			for _, m := range matches {
				args := m[1]
				for _, param := range caller.Parameters {
					if param == "" {
						continue
					}
					if wordBoundaryRegex(param).MatchString(args) {
						callerID, ok1 := entityID(f.Path, caller)
						calleeID, ok2 := entityID(f.Path, callee)
						if ok1 && ok2 {
							edges = append(edges, *graphmodel.NewDependency(callerID, calleeID, graphmodel.DepCall, param))
						}
						break
					}
				}
			}
		}
	}
	return edges
}

// sliceLines returns the 1-indexed, inclusive line range [start, end]
// joined back into a single string for regex scanning.
func sliceLines(lines []string, start, end int) string {
	if start <= 0 {
		start = 1
	}
	if end <= 0 || end > len(lines) {
		end = len(lines)
	}
	if start > end || start > len(lines) {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
