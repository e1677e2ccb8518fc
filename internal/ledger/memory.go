package ledger

import (
	"context"
	"sync"
)

// Memory is an in-process ledger used by the in-memory escrow store and by
// tests. Safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	balances map[string]int64
	entries  []Entry
}

func NewMemory() *Memory {
	return &Memory{balances: make(map[string]int64)}
}

// Apply credits the entries' accounts. Called by the in-memory escrow store
// under its per-transaction lock.
func (m *Memory) Apply(entries []Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.balances[e.AccountID] += e.Amount
		m.entries = append(m.entries, e)
	}
}

func (m *Memory) Balance(_ context.Context, accountID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[accountID], nil
}

func (m *Memory) Entries(_ context.Context, accountID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) AllEntries(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out, nil
}
