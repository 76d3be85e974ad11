package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/storage"
)

// RiskHistoryStore is an in-memory implementation of
// storage.RiskHistoryStore.
type RiskHistoryStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.RiskHistoryPoint // keyed by neo_id
}

// NewRiskHistoryStore creates a new in-memory risk history store.
func NewRiskHistoryStore() *RiskHistoryStore {
	return &RiskHistoryStore{
		data: make(map[string][]*domain.RiskHistoryPoint),
	}
}

// Verify interface compliance at compile time.
var _ storage.RiskHistoryStore = (*RiskHistoryStore)(nil)

// InsertBulk appends assessment points. The batch is validated before
// any point is stored.
func (s *RiskHistoryStore) InsertBulk(_ context.Context, points []*domain.RiskHistoryPoint) error {
	for _, p := range points {
		if p == nil || p.NeoID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		pointCopy := *p
		s.data[p.NeoID] = append(s.data[p.NeoID], &pointCopy)
	}
	return nil
}

// GetByNeoID retrieves all points for an asteroid, ordered by
// assessment time ASC.
func (s *RiskHistoryStore) GetByNeoID(_ context.Context, neoID string) ([]*domain.RiskHistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.data[neoID]
	result := make([]*domain.RiskHistoryPoint, 0, len(stored))
	for _, p := range stored {
		pointCopy := *p
		result = append(result, &pointCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AssessedAt.Before(result[j].AssessedAt)
	})
	return result, nil
}

// GetByTimeRange retrieves points for an asteroid within [start, end].
func (s *RiskHistoryStore) GetByTimeRange(_ context.Context, neoID string, start, end time.Time) ([]*domain.RiskHistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RiskHistoryPoint
	for _, p := range s.data[neoID] {
		if p.AssessedAt.Before(start) || p.AssessedAt.After(end) {
			continue
		}
		pointCopy := *p
		result = append(result, &pointCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].AssessedAt.Before(result[j].AssessedAt)
	})
	return result, nil
}
