package gitutil

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner dispatches canned output by matching the joined args
// against a prefix, so tests don't invoke the real git binary.
type fakeRunner struct {
	responses map[string]string
	errs      map[string]error
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	for prefix, err := range f.errs {
		if strings.HasPrefix(key, prefix) {
			return "", err
		}
	}
	for prefix, out := range f.responses {
		if strings.HasPrefix(key, prefix) {
			return out, nil
		}
	}
	return "", nil
}

func TestRevParseTrimsOutput(t *testing.T) {
	r := OpenWithRunner("/repo", &fakeRunner{responses: map[string]string{
		"rev-parse HEAD": "abc123\n",
	}})
	sha, err := r.RevParse(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)
}

func TestCurrentBranchFallsBackToSHAWhenDetached(t *testing.T) {
	r := OpenWithRunner("/repo", &fakeRunner{
		errs:      map[string]error{"symbolic-ref": assertError{}},
		responses: map[string]string{"rev-parse HEAD": "deadbeef\n"},
	})
	branch, err := r.CurrentBranch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", branch)
}

func TestDiffNameStatusParsesAddModifyDeleteRename(t *testing.T) {
	out := "A\tnew.go\nM\tmain.go\nD\told.go\nR100\tfoo.go\tbar.go\n"
	r := OpenWithRunner("/repo", &fakeRunner{responses: map[string]string{
		"diff --name-status": out,
	}})
	files, err := r.DiffNameStatus(context.Background(), "HEAD~1", "HEAD")
	require.NoError(t, err)
	require.Len(t, files, 4)
	assert.Equal(t, ChangedFile{Status: "A", Path: "new.go"}, files[0])
	assert.Equal(t, ChangedFile{Status: "M", Path: "main.go"}, files[1])
	assert.Equal(t, ChangedFile{Status: "D", Path: "old.go"}, files[2])
	assert.Equal(t, ChangedFile{Status: "R", Path: "foo.go", RenamedTo: "bar.go"}, files[3])
}

func TestShowReturnsNotFoundForMissingPath(t *testing.T) {
	r := OpenWithRunner("/repo", &fakeRunner{errs: map[string]error{
		"show HEAD:missing.go": assertErrorMsg{msg: "fatal: path 'missing.go' does not exist in 'HEAD'"},
	}})
	_, err := r.Show(context.Background(), "HEAD", "missing.go")
	require.Error(t, err)
}

func TestCountDiffLinesIgnoresHeaders(t *testing.T) {
	diff := "--- a/x.go\n+++ b/x.go\n@@ -1,2 +1,3 @@\n+added line\n-removed line\n context line\n"
	added, deleted := CountDiffLines(diff)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, deleted)
}

func TestCommitTimestampParsesUnixSeconds(t *testing.T) {
	r := OpenWithRunner("/repo", &fakeRunner{responses: map[string]string{
		"show -s --format=%at HEAD": "1700000000\n",
	}})
	ts, err := r.CommitTimestamp(context.Background(), "HEAD")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts)
}

type assertError struct{}

func (assertError) Error() string { return "symbolic-ref failed" }

type assertErrorMsg struct{ msg string }

func (e assertErrorMsg) Error() string { return e.msg }
