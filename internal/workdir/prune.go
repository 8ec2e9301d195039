// Package workdir prunes working folders that have not been polled for a
// while.
package workdir

import (
	"os"
	"path/filepath"
	"time"

	"github.com/drewdunne/scmpoll/internal/logging"
)

// Locker acquires exclusive use of a folder and returns its release function.
type Locker func(dir string) func()

// Pruner removes material folders under a base directory whose last use is
// older than the retention period. Each direct child of the base directory
// is one material's working copy.
type Pruner struct {
	baseDir   string
	retention time.Duration
	lock      Locker
	log       *logging.Logger
	now       func() time.Time
}

// Option configures a Pruner.
type Option func(*Pruner)

// WithLocker makes the pruner hold the folder lock while removing a folder,
// so it never deletes a copy that is being polled.
func WithLocker(l Locker) Option {
	return func(p *Pruner) { p.lock = l }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pruner) { p.log = l }
}

// NewPruner creates a Pruner keeping folders used within retentionDays.
func NewPruner(baseDir string, retentionDays int, opts ...Option) *Pruner {
	p := &Pruner{
		baseDir:   baseDir,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		lock:      func(string) func() { return func() {} },
		log:       logging.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prune removes stale folders and returns how many were removed. A missing
// base directory is not an error.
func (p *Pruner) Prune() (int, error) {
	entries, err := os.ReadDir(p.baseDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	threshold := p.now().Add(-p.retention)
	var removed int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(p.baseDir, e.Name())
		if p.pruneFolder(dir, threshold) {
			removed++
		}
	}
	return removed, nil
}

func (p *Pruner) pruneFolder(dir string, threshold time.Time) bool {
	unlock := p.lock(dir)
	defer unlock()

	// Checked under the lock; a poll may have just finished.
	if !LastUsed(dir).Before(threshold) {
		return false
	}
	if err := os.RemoveAll(dir); err != nil {
		p.log.Warn("removing stale working folder "+dir, err)
		return false
	}
	p.log.Infof("removed working folder %s", dir)
	return true
}

// LastUsed returns when dir was last fetched into or reset, from the
// modification times of the folder and its git metadata.
func LastUsed(dir string) time.Time {
	var latest time.Time
	for _, path := range []string{
		dir,
		filepath.Join(dir, ".git"),
		filepath.Join(dir, ".git", "HEAD"),
		filepath.Join(dir, ".git", "FETCH_HEAD"),
		filepath.Join(dir, ".git", "index"),
	} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}
	return latest
}
