package escrow

import (
	"context"
	"sort"
	"sync"

	"github.com/kasuwahq/kasuwa/internal/ledger"
)

// MemoryStore is an in-process Store with a per-transaction lock, so
// concurrent mutations on the same id serialize while different ids proceed
// in parallel. Backed by a ledger.Memory for the money side effects.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*Transaction
	byRef map[string]string
	locks map[string]*sync.Mutex

	ledger *ledger.Memory
}

func NewMemoryStore(led *ledger.Memory) *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Transaction),
		byRef:  make(map[string]string),
		locks:  make(map[string]*sync.Mutex),
		ledger: led,
	}
}

func (m *MemoryStore) Create(_ context.Context, tx *Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byRef[tx.PaymentRef]; exists {
		return ErrDuplicatePaymentRef
	}
	m.byID[tx.ID] = tx.Clone()
	m.byRef[tx.PaymentRef] = tx.ID
	m.locks[tx.ID] = &sync.Mutex{}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return tx.Clone(), nil
}

func (m *MemoryStore) GetByPaymentRef(ctx context.Context, ref string) (*Transaction, error) {
	m.mu.RLock()
	id, ok := m.byRef[ref]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *MemoryStore) FindByBuyer(_ context.Context, buyerID string) ([]*Transaction, error) {
	return m.filter(func(tx *Transaction) bool { return tx.BuyerID == buyerID }), nil
}

func (m *MemoryStore) FindBySeller(_ context.Context, sellerID string) ([]*Transaction, error) {
	return m.filter(func(tx *Transaction) bool { return tx.SellerID == sellerID }), nil
}

func (m *MemoryStore) FindPending(_ context.Context) ([]*Transaction, error) {
	return m.filter(func(tx *Transaction) bool { return !tx.Terminal() }), nil
}

func (m *MemoryStore) FindAll(_ context.Context) ([]*Transaction, error) {
	return m.filter(func(*Transaction) bool { return true }), nil
}

// Update serializes on the per-id lock, runs fn against a copy, and commits
// the copy plus any ledger entries only when fn succeeds.
func (m *MemoryStore) Update(_ context.Context, id string, fn Mutation) (*Transaction, error) {
	m.mu.RLock()
	lock, ok := m.locks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	cur := m.byID[id]
	m.mu.RUnlock()

	next := cur.Clone()
	entries, err := fn(next)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.byID[id] = next
	m.mu.Unlock()
	if len(entries) > 0 {
		m.ledger.Apply(entries)
	}
	return next.Clone(), nil
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) filter(keep func(*Transaction) bool) []*Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Transaction
	for _, tx := range m.byID {
		if keep(tx) {
			out = append(out, tx.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
