package gitrepo

import (
	"path/filepath"
	"sync"
)

// repoLock is the write lock for one repository root.
type repoLock struct {
	sync.Mutex
}

// lockRegistry maps repository roots to their write locks. Roots are
// cleaned with filepath.Clean so differently spelled paths to the same
// directory share one lock.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*repoLock
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*repoLock)}
}

func (r *lockRegistry) get(root string) *repoLock {
	key := filepath.Clean(root)
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[key]; ok {
		return l
	}
	l := &repoLock{}
	r.locks[key] = l
	return l
}
