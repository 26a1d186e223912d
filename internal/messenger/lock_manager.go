package messenger

import "sync"

// LockManager tracks per-resource ownership among colonies and detects
// deadlocks in the resulting wait-for graph.
type LockManager struct {
	mu      sync.Mutex
	holders map[string]string   // resource_id -> colony_id
	waiting map[string][]string // resource_id -> [colony_id, ...] FIFO
}

// NewLockManager constructs an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{
		holders: map[string]string{},
		waiting: map[string][]string{},
	}
}

// TryAcquire grants resourceID to colonyID if it is free or already held by
// colonyID, and reports whether the caller now holds it.
func (lm *LockManager) TryAcquire(resourceID, colonyID string) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	holder, held := lm.holders[resourceID]
	if !held {
		lm.holders[resourceID] = colonyID
		return true
	}
	return holder == colonyID
}

// Release frees resourceID if colonyID holds it, handing it to the next
// waiter (FIFO) if any are queued, and returning that waiter's id.
func (lm *LockManager) Release(resourceID, colonyID string) (string, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if holder, ok := lm.holders[resourceID]; !ok || holder != colonyID {
		return "", false
	}
	delete(lm.holders, resourceID)

	waiters := lm.waiting[resourceID]
	if len(waiters) == 0 {
		return "", false
	}
	next := waiters[0]
	lm.waiting[resourceID] = waiters[1:]
	if len(lm.waiting[resourceID]) == 0 {
		delete(lm.waiting, resourceID)
	}
	lm.holders[resourceID] = next
	return next, true
}

// WaitFor enqueues colonyID on resourceID's wait list if it isn't already
// queued.
func (lm *LockManager) WaitFor(resourceID, colonyID string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	for _, c := range lm.waiting[resourceID] {
		if c == colonyID {
			return
		}
	}
	lm.waiting[resourceID] = append(lm.waiting[resourceID], colonyID)
}

// Holder returns the colony currently holding resourceID, if any.
func (lm *LockManager) Holder(resourceID string) (string, bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	holder, ok := lm.holders[resourceID]
	return holder, ok
}

// Waiting returns a copy of resourceID's current wait list.
func (lm *LockManager) Waiting(resourceID string) []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return append([]string(nil), lm.waiting[resourceID]...)
}

// IsDeadlocked builds the wait-for graph restricted to colonyIDs (edge
// A->B when A waits on a resource B holds) and reports whether it contains
// a cycle, via DFS with a recursion-stack back-edge check from every node.
func (lm *LockManager) IsDeadlocked(colonyIDs []string) bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	target := make(map[string]bool, len(colonyIDs))
	for _, c := range colonyIDs {
		target[c] = true
	}

	waitsFor := map[string]map[string]bool{}
	for resourceID, waiters := range lm.waiting {
		holder, ok := lm.holders[resourceID]
		if !ok || !target[holder] {
			continue
		}
		for _, waiter := range waiters {
			if !target[waiter] || waiter == holder {
				continue
			}
			if waitsFor[waiter] == nil {
				waitsFor[waiter] = map[string]bool{}
			}
			waitsFor[waiter][holder] = true
		}
	}

	visited := map[string]bool{}
	recStack := map[string]bool{}

	var hasCycle func(node string) bool
	hasCycle = func(node string) bool {
		visited[node] = true
		recStack[node] = true
		for neighbor := range waitsFor[node] {
			if !visited[neighbor] {
				if hasCycle(neighbor) {
					return true
				}
			} else if recStack[neighbor] {
				return true
			}
		}
		recStack[node] = false
		return false
	}

	for _, c := range colonyIDs {
		if !visited[c] && hasCycle(c) {
			return true
		}
	}
	return false
}
