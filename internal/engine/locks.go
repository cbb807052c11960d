package engine

import "sync"

// npcLocks hands out one mutex per NPC so unrelated NPCs are never
// serialized against each other. Locks are created lazily and never
// removed; the NPC population is small and stable.
type npcLocks struct {
	mu    sync.RWMutex
	locks map[string]*sync.Mutex
}

func newNPCLocks() *npcLocks {
	return &npcLocks{locks: make(map[string]*sync.Mutex)}
}

func (n *npcLocks) get(npcID string) *sync.Mutex {
	n.mu.RLock()
	lock, ok := n.locks[npcID]
	n.mu.RUnlock()
	if ok {
		return lock
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if lock, ok := n.locks[npcID]; ok {
		return lock
	}
	lock = &sync.Mutex{}
	n.locks[npcID] = lock
	return lock
}

// acquire blocks until the NPC's lock is held.
func (n *npcLocks) acquire(npcID string) func() {
	lock := n.get(npcID)
	lock.Lock()
	return lock.Unlock
}

// tryAcquire returns a release func, or false when the NPC is already
// being processed.
func (n *npcLocks) tryAcquire(npcID string) (func(), bool) {
	lock := n.get(npcID)
	if !lock.TryLock() {
		return nil, false
	}
	return lock.Unlock, true
}
