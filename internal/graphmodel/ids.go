package graphmodel

import (
	"strconv"
	"strings"
)

// FileNodeID returns the node id for a whole-file LowLevel entity.
func FileNodeID(relPath string) string {
	return relPath + ":file:" + relPath
}

// EntityNodeID returns the node id for a named entity, omitting the
// trailing start-line suffix (the evolution path's form).
func EntityNodeID(relPath string, entityType EntityType, qualifiedName string) string {
	return relPath + ":" + string(entityType) + ":" + qualifiedName
}

// EntityNodeIDWithLine returns the node id form the initial encoder
// emits, with a trailing ":{start_line}".
func EntityNodeIDWithLine(relPath string, entityType EntityType, qualifiedName string, startLine int) string {
	return EntityNodeID(relPath, entityType, qualifiedName) + ":" + strconv.Itoa(startLine)
}

// DirNodeID returns the node id for a HighLevel directory node.
func DirNodeID(directoryPath string) string {
	return "dir:" + directoryPath
}

// QualifiedName joins a parent qualified name and a child name with the
// "." separator, used for all languages per the id-compatibility design
// note even where it reads unnaturally for a given language.
func QualifiedName(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// StripLineSuffix removes a trailing ":<digits>" suffix from a node id,
// if present, returning the evolution-path (line-free) form.
func StripLineSuffix(id string) string {
	idx := strings.LastIndex(id, ":")
	if idx < 0 {
		return id
	}
	suffix := id[idx+1:]
	if suffix == "" {
		return id
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return id
		}
	}
	return id[:idx]
}

// ParseEntityID splits a named-entity id into its (path, entityType)
// prefix components, used by the legacy-id matching rule in §4.12. It
// does not validate that entityType is a known EntityType.
func ParseEntityID(id string) (path string, entityType string, ok bool) {
	parts := strings.SplitN(id, ":", 3)
	if len(parts) < 3 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
