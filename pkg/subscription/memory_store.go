package subscription

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with in-process storage. Records are copied
// on the way in and out so callers can never alias internal state. Intended
// for tests and single-node development setups.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]*UserSubscription
}

// NewMemoryStore creates an empty in-memory subscription store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*UserSubscription)}
}

// Get retrieves a copy of the subscription for a user.
func (m *MemoryStore) Get(ctx context.Context, userID string) (*UserSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subs[userID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}

	subCopy := *sub
	return &subCopy, nil
}

// Save stores a copy of the subscription keyed by its UserID.
func (m *MemoryStore) Save(ctx context.Context, sub *UserSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	subCopy := *sub
	m.subs[sub.UserID] = &subCopy
	return nil
}

// ListDue returns copies of all subscriptions needing renewal handling.
func (m *MemoryStore) ListDue(ctx context.Context, before time.Time) ([]*UserSubscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []*UserSubscription
	for _, sub := range m.subs {
		if sub.Status != StatusActive && sub.Status != StatusCancelling {
			continue
		}
		if sub.CurrentPeriodEnd.After(before) {
			continue
		}
		subCopy := *sub
		due = append(due, &subCopy)
	}
	return due, nil
}
