package power

import (
	"sort"
	"sync"
)

// TransitionLocks provides per-xname mutual exclusion for power transitions.
// Uses a keyed mutex pattern: each xname gets its own mutex, so transitions
// over disjoint component sets run concurrently while transitions touching
// the same component serialize.
type TransitionLocks struct {
	mu    sync.Mutex             // Guards the locks map itself
	locks map[string]*sync.Mutex // Per-xname mutexes
}

// NewTransitionLocks creates an empty lock set.
func NewTransitionLocks() *TransitionLocks {
	return &TransitionLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-xname mutex, creating it on first access.
func (t *TransitionLocks) Lock(xname string) {
	t.mu.Lock()
	lock, exists := t.locks[xname]
	if !exists {
		lock = &sync.Mutex{}
		t.locks[xname] = lock
	}
	t.mu.Unlock()

	// Acquire the per-xname lock (outside the map lock to avoid contention)
	lock.Lock()
}

// Unlock releases the per-xname mutex.
func (t *TransitionLocks) Unlock(xname string) {
	t.mu.Lock()
	lock, exists := t.locks[xname]
	t.mu.Unlock()

	if exists {
		lock.Unlock()
	}
}

// LockAll acquires locks for ALL given xnames.
// Sorts xnames lexicographically BEFORE acquiring to prevent deadlocks
// between transitions locking overlapping sets.
func (t *TransitionLocks) LockAll(xnames []string) {
	if len(xnames) == 0 {
		return
	}

	sorted := make([]string, len(xnames))
	copy(sorted, xnames)
	sort.Strings(sorted)

	for _, xname := range sorted {
		t.Lock(xname)
	}
}

// UnlockAll releases locks for all given xnames.
// Releases in reverse sorted order for symmetry with LockAll.
func (t *TransitionLocks) UnlockAll(xnames []string) {
	if len(xnames) == 0 {
		return
	}

	sorted := make([]string, len(xnames))
	copy(sorted, xnames)
	sort.Strings(sorted)

	for i := len(sorted) - 1; i >= 0; i-- {
		t.Unlock(sorted[i])
	}
}
