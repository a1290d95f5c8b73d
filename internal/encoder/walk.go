package encoder

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rpgraph/rpg/internal/rpgerrors"
)

// walk discovers candidate source files under root, applying the
// configured include/exclude glob patterns and max traversal depth.
// Grounded on the teacher's ingestion/walker.go WalkSourceFiles, whose
// fixed extension list and shouldSkipDir/isGeneratedFile checks are
// generalized here into the config-driven glob patterns in
// config.EncoderConfig. A path that resolves outside root is rejected
// with an InvalidInput error.
func walk(root string, include, exclude []string, maxDepth int) ([]string, error) {
	root = filepath.Clean(root)
	var files []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return rpgerrors.Newf(rpgerrors.InvalidInput, "%s is outside root %s", path, root)
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if depth := strings.Count(rel, "/") + 1; maxDepth > 0 && depth > maxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if matchAny(exclude, rel) || matchAny(exclude, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if matchAny(exclude, rel) {
			return nil
		}
		if len(include) > 0 && !matchAny(include, rel) {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, rpgerrors.Wrapf(err, rpgerrors.InvalidInput, "walk %s", root)
	}

	sort.Strings(files)
	return files, nil
}
