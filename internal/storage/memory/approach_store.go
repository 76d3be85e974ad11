package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/storage"
)

// ApproachStore is an in-memory implementation of storage.ApproachStore.
type ApproachStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.CloseApproach // keyed by neo_id
}

// NewApproachStore creates a new in-memory approach store.
func NewApproachStore() *ApproachStore {
	return &ApproachStore{
		data: make(map[string][]*domain.CloseApproach),
	}
}

// Verify interface compliance at compile time.
var _ storage.ApproachStore = (*ApproachStore)(nil)

// ReplaceForNeo swaps the approach set for an asteroid.
func (s *ApproachStore) ReplaceForNeo(_ context.Context, neoID string, approaches []*domain.CloseApproach) error {
	if neoID == "" {
		return storage.ErrInvalidInput
	}

	copies := make([]*domain.CloseApproach, 0, len(approaches))
	for _, ap := range approaches {
		if ap == nil {
			continue
		}
		apCopy := *ap
		apCopy.NeoID = neoID
		copies = append(copies, &apCopy)
	}
	sort.Slice(copies, func(i, j int) bool {
		return copies[i].ApproachAt.Before(copies[j].ApproachAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(copies) == 0 {
		delete(s.data, neoID)
		return nil
	}
	s.data[neoID] = copies
	return nil
}

// ListByNeoID retrieves all approaches for an asteroid, ordered by
// approach time ASC.
func (s *ApproachStore) ListByNeoID(_ context.Context, neoID string) ([]*domain.CloseApproach, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[neoID]
	result := make([]*domain.CloseApproach, 0, len(stored))
	for _, ap := range stored {
		apCopy := *ap
		result = append(result, &apCopy)
	}
	return result, nil
}

// Upcoming retrieves approaches at/after now across all asteroids.
func (s *ApproachStore) Upcoming(_ context.Context, now time.Time, limit int) ([]*domain.CloseApproach, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CloseApproach
	for _, approaches := range s.data {
		for _, ap := range approaches {
			if ap.ApproachAt.Before(now) {
				continue
			}
			apCopy := *ap
			result = append(result, &apCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].ApproachAt.Equal(result[j].ApproachAt) {
			return result[i].ApproachAt.Before(result[j].ApproachAt)
		}
		return result[i].NeoID < result[j].NeoID
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
