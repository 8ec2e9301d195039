package vcs

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShowRef(t *testing.T) {
	out := "aaa111 refs/heads/master\n" +
		"bbb222 refs/remotes/origin/HEAD\n" +
		"malformed-line\n" +
		"ccc333 refs/remotes/origin/feature/login\n"

	refs := ParseShowRef(out)

	require.Len(t, refs, 3)
	assert.Equal(t, Ref{Name: "refs/heads/master", Revision: "aaa111"}, refs[0])
	assert.Equal(t, Ref{Name: "refs/remotes/origin/feature/login", Revision: "ccc333"}, refs[2])
}

func TestRefsMatching(t *testing.T) {
	refs := []Ref{
		{Name: "refs/heads/master", Revision: "a"},
		{Name: "refs/remotes/origin/HEAD", Revision: "b"},
		{Name: "refs/remotes/origin/master", Revision: "b"},
		{Name: "refs/remotes/origin/pull-request/7", Revision: "c"},
		{Name: "refs/remotes/origin/feature/x", Revision: "d"},
	}

	t.Run("branches keep order and nested names", func(t *testing.T) {
		got := RefsMatching(refs, RemoteRefPrefix)
		assert.Equal(t, []Ref{
			{Name: "master", Revision: "b"},
			{Name: "pull-request/7", Revision: "c"},
			{Name: "feature/x", Revision: "d"},
		}, got)
	})

	t.Run("pull request namespace", func(t *testing.T) {
		got := RefsMatching(refs, "refs/remotes/origin/pull-request/")
		assert.Equal(t, []Ref{{Name: "7", Revision: "c"}}, got)
	})

	t.Run("no matches", func(t *testing.T) {
		assert.Empty(t, RefsMatching(refs, "refs/changes/"))
	})
}

func TestFileAction(t *testing.T) {
	tests := map[string]string{
		"A":    ActionAdded,
		"M":    ActionModified,
		"R100": ActionModified,
		"C75":  ActionModified,
		"T":    ActionModified,
		"D":    ActionDeleted,
		"X":    ActionUnknown,
		"":     ActionUnknown,
	}
	for status, want := range tests {
		assert.Equal(t, want, FileAction(status), "status %q", status)
	}
}

func TestRevision_IsMergeCommit(t *testing.T) {
	assert.False(t, (&Revision{Parents: []string{"a"}}).IsMergeCommit())
	assert.False(t, (&Revision{}).IsMergeCommit())
	assert.True(t, (&Revision{Parents: []string{"a", "b"}}).IsMergeCommit())
}

func TestCommandError(t *testing.T) {
	inner := &exec.ExitError{}
	err := &CommandError{
		Args:   []string{"fetch", "origin"},
		Dir:    "/work",
		Output: "fatal: could not read from remote\n",
		Err:    inner,
	}

	assert.Contains(t, err.Error(), "git fetch origin (in /work)")
	assert.Contains(t, err.Error(), "fatal: could not read from remote")

	var exitErr *exec.ExitError
	assert.True(t, errors.As(err, &exitErr))
}
