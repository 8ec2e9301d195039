package scm

import (
	"path/filepath"
	"sync"
)

// folderLocks serializes work on the same working directory. Polls and
// checkouts for different folders run concurrently.
type folderLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFolderLocks() *folderLocks {
	return &folderLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the lock for dir and returns its release function.
func (f *folderLocks) lock(dir string) func() {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	f.mu.Lock()
	l, ok := f.locks[dir]
	if !ok {
		l = &sync.Mutex{}
		f.locks[dir] = l
	}
	f.mu.Unlock()

	l.Lock()
	return l.Unlock
}
