package organizer

import "sync"

// rootLocks hands out one mutex per root directory so organize and undo runs
// against the same root never interleave. Locks are never released from the
// map; the set of roots a process touches is small.
type rootLocks struct {
	mu    sync.Mutex
	roots map[string]*sync.Mutex
}

func (r *rootLocks) lock(root string) (unlock func()) {
	r.mu.Lock()
	if r.roots == nil {
		r.roots = make(map[string]*sync.Mutex)
	}
	m, ok := r.roots[root]
	if !ok {
		m = &sync.Mutex{}
		r.roots[root] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
