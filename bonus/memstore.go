package bonus

import (
	"context"
	"sort"
	"sync"

	"github.com/cppla/creditbonus/models"
)

// MemoryStore is an in-process TxStore for local development and tests.
// Transactions are serialized with each other and roll back by restoring a
// snapshot.
type MemoryStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	claims   map[string]map[string]models.LoginClaim
	balances map[string]int
	nextID   uint
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:   map[string]map[string]models.LoginClaim{},
		balances: map[string]int{},
	}
}

var _ TxStore = (*MemoryStore)(nil)

func (m *MemoryStore) FindClaim(_ context.Context, userID, date string) (*models.LoginClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[userID][date]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryStore) InsertClaim(_ context.Context, claim *models.LoginClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	days, ok := m.claims[claim.UserID]
	if !ok {
		days = map[string]models.LoginClaim{}
		m.claims[claim.UserID] = days
	}
	if _, dup := days[claim.LoginDate]; dup {
		return ErrDuplicateClaim
	}
	m.nextID++
	claim.ID = m.nextID
	days[claim.LoginDate] = *claim
	return nil
}

func (m *MemoryStore) FindClaimsInRange(_ context.Context, userID, from, to string, limit int, newestFirst bool) ([]models.LoginClaim, error) {
	m.mu.Lock()
	out := make([]models.LoginClaim, 0)
	for date, c := range m.claims[userID] {
		if from != "" && date < from {
			continue
		}
		if to != "" && date > to {
			continue
		}
		out = append(out, c)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].LoginDate > out[j].LoginDate
		}
		return out[i].LoginDate < out[j].LoginDate
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetBalance(_ context.Context, userID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[userID]
	return b, ok, nil
}

func (m *MemoryStore) AddCredits(_ context.Context, userID string, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] += delta
	return m.balances[userID], nil
}

func (m *MemoryStore) InTx(_ context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snapshot := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memSnapshot struct {
	claims   map[string]map[string]models.LoginClaim
	balances map[string]int
	nextID   uint
}

func (m *MemoryStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memSnapshot{
		claims:   make(map[string]map[string]models.LoginClaim, len(m.claims)),
		balances: make(map[string]int, len(m.balances)),
		nextID:   m.nextID,
	}
	for u, days := range m.claims {
		cp := make(map[string]models.LoginClaim, len(days))
		for d, c := range days {
			cp[d] = c
		}
		s.claims[u] = cp
	}
	for u, b := range m.balances {
		s.balances[u] = b
	}
	return s
}

func (m *MemoryStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = s.claims
	m.balances = s.balances
	m.nextID = s.nextID
}
