// Package quota tracks daily call allowances for the generative backend.
// The ledger is the one piece of state shared across all NPCs and turn
// kinds; its check-and-increment is atomic under concurrent access.
package quota

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/storage"
)

// Ledger enforces daily global and per-user ceilings on generative calls.
// Counters reset implicitly when the day key changes; stale day rows are
// simply never consulted again.
type Ledger struct {
	store        storage.QuotaStore
	globalDaily  int
	perUserDaily int
}

// NewLedger builds a ledger over a counter store with the given daily
// ceilings.
func NewLedger(store storage.QuotaStore, globalDaily, perUserDaily int) *Ledger {
	return &Ledger{
		store:        store,
		globalDaily:  globalDaily,
		perUserDaily: perUserDaily,
	}
}

// Consume reports whether one generative call is allowed for the user on
// the given day, incrementing both counters when it is. A rejected call
// mutates nothing.
func (l *Ledger) Consume(ctx context.Context, userID, dayKey string) (bool, error) {
	if l == nil || l.store == nil {
		return false, fmt.Errorf("quota store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = "system"
	}
	return l.store.TryConsume(ctx, dayKey, userID, l.globalDaily, l.perUserDaily)
}

// DayKey formats a timestamp as the ledger's UTC day key.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MemoryStore is a mutex-guarded in-memory counter store. It backs tests
// and stub-only deployments that never persist quota state.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

// NewMemoryStore returns an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]map[string]int)}
}

// TryConsume implements storage.QuotaStore with a single critical section
// covering both the ceiling checks and the increments.
func (m *MemoryStore) TryConsume(_ context.Context, dayKey, userID string, globalCeiling, userCeiling int) (bool, error) {
	if dayKey == "" || userID == "" {
		return false, fmt.Errorf("day key and user id are required")
	}
	if globalCeiling <= 0 || userCeiling <= 0 {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	day := m.counts[dayKey]
	if day == nil {
		day = make(map[string]int)
		m.counts[dayKey] = day
	}
	globalCalls := 0
	for _, calls := range day {
		globalCalls += calls
	}
	if globalCalls >= globalCeiling {
		return false, nil
	}
	if day[userID] >= userCeiling {
		return false, nil
	}
	day[userID]++
	return true, nil
}
