// Package vcs defines the version control worker used to fetch refs, inspect
// commits and prepare working copies.
package vcs

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/drewdunne/scmpoll/internal/config"
)

// Worker runs version control operations against one working directory.
// Implementations assume exclusive access to that directory for the duration
// of a call.
type Worker interface {
	// CloneOrFetch clones the repository if the working directory is missing
	// or points at a different remote, then fetches refSpec and resets to the
	// default branch head.
	CloneOrFetch(ctx context.Context, refSpec string) error

	// Fetch fetches refSpec from origin.
	Fetch(ctx context.Context, refSpec string) error

	// ResetHard resets the working tree to revision.
	ResetHard(ctx context.Context, revision string) error

	// CheckoutNewBranch creates or resets the local branch name at HEAD.
	CheckoutNewBranch(ctx context.Context, name string) error

	// BranchToRevisionMap returns the local refs under pattern with the
	// pattern prefix stripped. HEAD is excluded.
	BranchToRevisionMap(ctx context.Context, pattern string) ([]Ref, error)

	// BranchLatestRevisions returns the heads of all remote-tracking
	// branches of origin, named without the refs/remotes/origin/ prefix.
	BranchLatestRevisions(ctx context.Context) ([]Ref, error)

	// LatestRevision returns the commit at HEAD.
	LatestRevision(ctx context.Context) (*Revision, error)

	// RevisionDetails returns the commit identified by revision.
	RevisionDetails(ctx context.Context, revision string) (*Revision, error)

	// RevisionsSince returns the commits reachable from HEAD but not from
	// revision, newest first.
	RevisionsSince(ctx context.Context, revision string) ([]Revision, error)

	// SubmoduleUpdate initializes and updates submodules when enabled.
	SubmoduleUpdate(ctx context.Context) error

	// CheckConnection verifies the remote is reachable with the configured
	// credentials.
	CheckConnection(ctx context.Context) error
}

// Factory creates workers bound to a material and a working directory.
type Factory interface {
	New(scm *config.SCM, dir string) Worker
}

// RemoteRefPrefix is the namespace of origin's remote-tracking branches.
const RemoteRefPrefix = "refs/remotes/origin/"

// Ref is a named ref and the commit it points at.
type Ref struct {
	Name     string
	Revision string
}

// File actions reported for modified files.
const (
	ActionAdded    = "added"
	ActionModified = "modified"
	ActionDeleted  = "deleted"
	ActionUnknown  = "unknown"
)

// ModifiedFile is a path touched by a commit.
type ModifiedFile struct {
	FileName string
	Action   string
}

// Revision describes a single commit.
type Revision struct {
	Revision      string
	User          string
	Email         string
	Timestamp     time.Time
	Comment       string
	Parents       []string
	ModifiedFiles []ModifiedFile
}

// IsMergeCommit reports whether the commit has more than one parent.
func (r *Revision) IsMergeCommit() bool {
	return len(r.Parents) > 1
}

// ParseShowRef parses `git show-ref` style output ("<sha> <refname>" lines).
func ParseShowRef(output string) []Ref {
	var refs []Ref
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		refs = append(refs, Ref{Name: fields[1], Revision: fields[0]})
	}
	return refs
}

// RefsMatching keeps refs under pattern, strips the pattern from their names
// and drops the symbolic HEAD. Order is preserved.
func RefsMatching(refs []Ref, pattern string) []Ref {
	var out []Ref
	for _, r := range refs {
		if !strings.HasPrefix(r.Name, pattern) {
			continue
		}
		name := strings.TrimPrefix(r.Name, pattern)
		if name == "" || name == "HEAD" {
			continue
		}
		out = append(out, Ref{Name: name, Revision: r.Revision})
	}
	return out
}

// FileAction maps a git name-status letter to an action.
func FileAction(status string) string {
	if status == "" {
		return ActionUnknown
	}
	switch status[0] {
	case 'A':
		return ActionAdded
	case 'M', 'R', 'C', 'T':
		return ActionModified
	case 'D':
		return ActionDeleted
	default:
		return ActionUnknown
	}
}

// CommandError is returned when a version control command exits with a
// failure.
type CommandError struct {
	Args   []string
	Dir    string
	Output string
	Err    error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s (in %s): %v", strings.Join(e.Args, " "), e.Dir, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Err
}
