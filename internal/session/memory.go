package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps drafts in process memory. Used for local development and
// tests; it applies the same idle expiry as the DynamoDB store.
type MemoryStore struct {
	mu      sync.Mutex
	drafts  map[string]*ReservationDraft
	idleTTL time.Duration
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds an in-memory draft store.
func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	return &MemoryStore{
		drafts:  make(map[string]*ReservationDraft),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, customerID string) (*ReservationDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft, ok := s.drafts[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	if draft.ExpiresAt > 0 && draft.ExpiresAt <= s.now().Unix() {
		delete(s.drafts, customerID)
		return nil, ErrNotFound
	}
	copied := *draft
	return &copied, nil
}

func (s *MemoryStore) Put(_ context.Context, draft *ReservationDraft) error {
	if draft == nil || draft.CustomerID == "" {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if draft.CreatedAt == "" {
		draft.CreatedAt = now.Format(time.RFC3339Nano)
	}
	draft.UpdatedAt = now.Format(time.RFC3339Nano)
	draft.ExpiresAt = now.Add(s.idleTTL).Unix()

	copied := *draft
	s.drafts[draft.CustomerID] = &copied
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, customerID)
	return nil
}
