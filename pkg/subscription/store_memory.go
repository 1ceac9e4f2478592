package subscription

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

type inMemStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Record
}

// NewInMemStore returns a mutex-guarded in-memory RecordStore for tests and
// local development. Records are deep-copied on the way in and out so callers
// cannot mutate store-internal state.
func NewInMemStore() RecordStore {
	return &inMemStore{records: make(map[uuid.UUID]*Record)}
}

func (s *inMemStore) Get(ctx context.Context, userID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *inMemStore) Upsert(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := rec.Clone()
	if prev, ok := s.records[rec.UserID]; ok && prev.TrialConsumed {
		// trial_consumed is monotonic
		stored.TrialConsumed = true
	}
	s.records[rec.UserID] = stored
	return nil
}
