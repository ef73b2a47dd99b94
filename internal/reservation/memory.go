package reservation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore keeps reservations in process memory with the same conditional
// semantics as the DynamoDB store. Used for local development and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Reservation
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore builds an empty in-memory reservation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Reservation)}
}

func (s *MemoryStore) Create(_ context.Context, r *Reservation) error {
	if r == nil || r.ReservationID == "" {
		return errors.New("reservation: record with ID required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.ReservationID]; exists {
		return errors.New("reservation: duplicate ID")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	r.CreatedAt = now
	r.UpdatedAt = now
	copied := *r
	s.records[r.ReservationID] = &copied
	return nil
}

func (s *MemoryStore) Get(_ context.Context, reservationID string) (*Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[reservationID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *MemoryStore) MarkDecided(_ context.Context, reservationID string, status Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[reservationID]
	if !ok || r.Status != StatusPending {
		return false, nil
	}
	r.Status = status
	r.Reminded = false
	r.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return true, nil
}

func (s *MemoryStore) MarkReminded(_ context.Context, reservationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[reservationID]
	if !ok || r.Reminded {
		return false, nil
	}
	r.Reminded = true
	r.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	return true, nil
}

func (s *MemoryStore) AttachCalendarEvent(_ context.Context, reservationID, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[reservationID]
	if !ok {
		return ErrNotFound
	}
	r.CalendarEventID = eventID
	return nil
}

func (s *MemoryStore) ListDueReminders(_ context.Context, from, to time.Time) ([]Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Reservation
	for _, r := range s.records {
		if r.Status != StatusConfirmed || r.Reminded {
			continue
		}
		start, err := r.Start()
		if err != nil {
			continue
		}
		if !start.Before(from) && start.Before(to) {
			due = append(due, *r)
		}
	}
	return due, nil
}
