// Package execgit implements vcs.Worker by running the git binary.
package execgit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/drewdunne/scmpoll/internal/config"
	"github.com/drewdunne/scmpoll/internal/logging"
	"github.com/drewdunne/scmpoll/internal/vcs"
)

// DefaultTimeout bounds every git invocation.
const DefaultTimeout = 60 * time.Second

// Client runs git commands for one material in one working directory.
type Client struct {
	scm        *config.SCM
	dir        string
	timeout    time.Duration
	submodules bool
	log        *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSubmodules enables submodule updates.
func WithSubmodules(enabled bool) Option {
	return func(c *Client) {
		c.submodules = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Client working in dir.
func New(scm *config.SCM, dir string, opts ...Option) *Client {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	c := &Client{
		scm:     scm,
		dir:     dir,
		timeout: DefaultTimeout,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Factory creates Clients with shared options.
type Factory struct {
	Options []Option
}

// NewFactory creates a Factory applying opts to every Client.
func NewFactory(opts ...Option) *Factory {
	return &Factory{Options: opts}
}

// New implements vcs.Factory.
func (f *Factory) New(scm *config.SCM, dir string) vcs.Worker {
	return New(scm, dir, f.Options...)
}

// Dir returns the working directory.
func (c *Client) Dir() string {
	return c.dir
}

// CloneOrFetch implements vcs.Worker.
func (c *Client) CloneOrFetch(ctx context.Context, refSpec string) error {
	if !c.isRepo() || !c.isSameRepository(ctx) {
		if err := c.setupWorkingDir(); err != nil {
			return err
		}
		if err := c.clone(ctx); err != nil {
			return err
		}
	}
	return c.fetchAndResetToHead(ctx, refSpec)
}

func (c *Client) fetchAndResetToHead(ctx context.Context, refSpec string) error {
	c.log.Debugf("fetch and reset in working directory %s", c.dir)
	if _, err := c.run(ctx, "clean", "-dffx"); err != nil {
		return err
	}
	if err := c.Fetch(ctx, refSpec); err != nil {
		return err
	}
	return c.ResetHard(ctx, "origin/"+c.scm.Branch())
}

// Fetch implements vcs.Worker. Branches are always refreshed so revision
// equivalence between pull requests and branches can be established.
func (c *Client) Fetch(ctx context.Context, refSpec string) error {
	if _, err := c.run(ctx, "fetch", "origin", "--prune", "--recurse-submodules=no"); err != nil {
		return err
	}
	if refSpec == "" {
		return nil
	}
	_, err := c.run(ctx, "fetch", "origin", "--prune", "--recurse-submodules=no", refSpec)
	return err
}

// ResetHard implements vcs.Worker.
func (c *Client) ResetHard(ctx context.Context, revision string) error {
	_, err := c.run(ctx, "reset", "--hard", revision)
	return err
}

// CheckoutNewBranch implements vcs.Worker.
func (c *Client) CheckoutNewBranch(ctx context.Context, name string) error {
	_, err := c.run(ctx, "checkout", "-B", name)
	return err
}

// BranchToRevisionMap implements vcs.Worker.
func (c *Client) BranchToRevisionMap(ctx context.Context, pattern string) ([]vcs.Ref, error) {
	refs, err := c.showRef(ctx)
	if err != nil {
		return nil, err
	}
	return vcs.RefsMatching(refs, pattern), nil
}

// BranchLatestRevisions implements vcs.Worker.
func (c *Client) BranchLatestRevisions(ctx context.Context) ([]vcs.Ref, error) {
	out, err := c.run(ctx, "for-each-ref", "--format=%(objectname) %(refname)", strings.TrimSuffix(vcs.RemoteRefPrefix, "/"))
	if err != nil {
		return nil, err
	}
	return vcs.RefsMatching(vcs.ParseShowRef(out), vcs.RemoteRefPrefix), nil
}

// showRef lists all local refs. show-ref exits 1 when there are none.
func (c *Client) showRef(ctx context.Context) ([]vcs.Ref, error) {
	out, err := c.run(ctx, "show-ref")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && strings.TrimSpace(out) == "" {
			return nil, nil
		}
		return nil, err
	}
	return vcs.ParseShowRef(out), nil
}

// LatestRevision implements vcs.Worker.
func (c *Client) LatestRevision(ctx context.Context) (*vcs.Revision, error) {
	return c.RevisionDetails(ctx, "HEAD")
}

// RevisionDetails implements vcs.Worker.
func (c *Client) RevisionDetails(ctx context.Context, revision string) (*vcs.Revision, error) {
	out, err := c.run(ctx, "show", "-s", "--format="+commitFormat, revision)
	if err != nil {
		return nil, err
	}
	rev, err := parseCommit(out)
	if err != nil {
		return nil, fmt.Errorf("parsing commit %s: %w", revision, err)
	}

	files, err := c.run(ctx, "diff-tree", "--root", "--no-commit-id", "--name-status", "-r", rev.Revision)
	if err != nil {
		return nil, err
	}
	rev.ModifiedFiles = parseNameStatus(files)
	return rev, nil
}

// RevisionsSince implements vcs.Worker.
func (c *Client) RevisionsSince(ctx context.Context, revision string) ([]vcs.Revision, error) {
	out, err := c.run(ctx, "rev-list", revision+"..HEAD")
	if err != nil {
		return nil, err
	}

	var revisions []vcs.Revision
	for _, sha := range strings.Fields(out) {
		rev, err := c.RevisionDetails(ctx, sha)
		if err != nil {
			return nil, err
		}
		revisions = append(revisions, *rev)
	}
	return revisions, nil
}

// SubmoduleUpdate implements vcs.Worker. It is a no-op unless submodules are
// enabled and the repository declares any.
func (c *Client) SubmoduleUpdate(ctx context.Context) error {
	if !c.submodules {
		return nil
	}
	if _, err := os.Stat(filepath.Join(c.dir, ".gitmodules")); err != nil {
		return nil
	}
	if _, err := c.run(ctx, "submodule", "sync", "--recursive"); err != nil {
		return err
	}
	_, err := c.run(ctx, "submodule", "update", "--init", "--recursive")
	return err
}

// CheckConnection implements vcs.Worker.
func (c *Client) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if _, err := vcs.ListRemote(ctx, c.scm); err != nil {
		return err
	}
	return nil
}

func (c *Client) isRepo() bool {
	info, err := os.Stat(filepath.Join(c.dir, ".git"))
	if err != nil {
		return false
	}
	return info.IsDir()
}

func (c *Client) isSameRepository(ctx context.Context) bool {
	out, err := c.run(ctx, "config", "--get", "remote.origin.url")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == c.scm.EffectiveURL()
}

func (c *Client) setupWorkingDir() error {
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("removing working directory: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating working directory: %w", err)
	}
	return nil
}

func (c *Client) clone(ctx context.Context) error {
	args := []string{"clone", "--branch=" + c.scm.Branch()}
	if c.scm.ShallowClone {
		args = append(args, "--depth=1", "--no-single-branch")
	}
	args = append(args, c.scm.EffectiveURL(), c.dir)

	c.log.Infof("cloning %s into %s", c.scm.URL, c.dir)
	_, err := c.runIn(ctx, filepath.Dir(c.dir), args...)
	return err
}

// run executes git in the working directory and returns stdout.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	return c.runIn(ctx, c.dir, args...)
}

func (c *Client) runIn(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s: %w", c.timeout, err)
		}
		return stdout.String(), &vcs.CommandError{
			Args:   c.redact(args),
			Dir:    dir,
			Output: c.scm.Sanitize(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// redact scrubs credentials from command arguments before they are reported.
func (c *Client) redact(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = c.scm.Sanitize(a)
	}
	return out
}

// Compile-time checks.
var (
	_ vcs.Worker  = (*Client)(nil)
	_ vcs.Factory = (*Factory)(nil)
)
