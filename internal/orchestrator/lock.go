package orchestrator

import "sync"

// branchLocks is the advisory in-memory (repo_id, branch) lock (spec.md
// §5). It also guards attach against racing an in-flight creation for the
// same pair. A second concurrent holder is rejected outright, never
// queued: creation and attach are both interactive, human-paced
// operations, so making the caller retry is preferable to a wait queue.
type branchLocks struct {
	mu  sync.Mutex
	set map[string]struct{}
}

func newBranchLocks() *branchLocks {
	return &branchLocks{set: make(map[string]struct{})}
}

func lockKey(repoID, branch string) string { return repoID + "\x00" + branch }

// tryAcquire returns a release func and true on success, or nil and
// false if the pair is already locked.
func (b *branchLocks) tryAcquire(repoID, branch string) (release func(), ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := lockKey(repoID, branch)
	if _, held := b.set[key]; held {
		return nil, false
	}
	b.set[key] = struct{}{}
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.set, key)
	}, true
}
