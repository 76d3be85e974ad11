package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/storage"
)

// AsteroidStore is an in-memory implementation of storage.AsteroidStore.
// Approach-based search criteria are resolved through the companion
// ApproachStore when one is attached.
type AsteroidStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Asteroid // keyed by neo_id

	approaches *ApproachStore
	now        func() time.Time
}

// NewAsteroidStore creates a new in-memory asteroid store.
func NewAsteroidStore() *AsteroidStore {
	return &AsteroidStore{
		data: make(map[string]*domain.Asteroid),
		now:  time.Now,
	}
}

// AttachApproaches wires the approach store used for approach-based
// filters and next-approach statistics.
func (s *AsteroidStore) AttachApproaches(approaches *ApproachStore) {
	s.approaches = approaches
}

// SetNow overrides the time source for record timestamps and the
// next-approach cutoff. Nil is ignored.
func (s *AsteroidStore) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Verify interface compliance at compile time.
var _ storage.AsteroidStore = (*AsteroidStore)(nil)

// Upsert inserts the asteroid or refreshes its catalog fields, leaving
// risk columns alone on update.
func (s *AsteroidStore) Upsert(_ context.Context, a *domain.Asteroid) error {
	if a == nil || a.NeoID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	existing, exists := s.data[a.NeoID]
	if !exists {
		asteroidCopy := *a
		asteroidCopy.CreatedAt = now
		asteroidCopy.UpdatedAt = now
		s.data[a.NeoID] = &asteroidCopy
		return nil
	}

	existing.Name = a.Name
	existing.NASAJPLURL = a.NASAJPLURL
	existing.AbsoluteMagnitude = copyFloat(a.AbsoluteMagnitude)
	existing.EstimatedDiameterMinKm = copyFloat(a.EstimatedDiameterMinKm)
	existing.EstimatedDiameterMaxKm = copyFloat(a.EstimatedDiameterMaxKm)
	existing.IsPotentiallyHazardous = a.IsPotentiallyHazardous
	existing.IsSentryObject = a.IsSentryObject
	if a.FirstObserved != nil &&
		(existing.FirstObserved == nil || a.FirstObserved.Before(*existing.FirstObserved)) {
		t := *a.FirstObserved
		existing.FirstObserved = &t
	}
	existing.UpdatedAt = now
	return nil
}

// GetByNeoID retrieves an asteroid by its NEO reference id.
func (s *AsteroidStore) GetByNeoID(_ context.Context, neoID string) (*domain.Asteroid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[neoID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	asteroidCopy := *a
	return &asteroidCopy, nil
}

// List retrieves asteroids with sorting and pagination.
func (s *AsteroidStore) List(_ context.Context, sortBy domain.Sort, page domain.Page) ([]*domain.Asteroid, error) {
	s.mu.RLock()
	all := s.snapshot()
	s.mu.RUnlock()

	sortAsteroids(all, sortBy)
	return paginate(all, page), nil
}

// Search retrieves asteroids matching the filter with the total count.
func (s *AsteroidStore) Search(ctx context.Context, filter domain.SearchFilter, sortBy domain.Sort, page domain.Page) (*domain.PagedAsteroids, error) {
	s.mu.RLock()
	all := s.snapshot()
	s.mu.RUnlock()

	var matched []*domain.Asteroid
	for _, a := range all {
		ok, err := s.matches(ctx, a, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, a)
		}
	}

	sortAsteroids(matched, sortBy)
	return &domain.PagedAsteroids{
		Items: paginate(matched, page),
		Total: len(matched),
	}, nil
}

// Count returns the number of stored asteroids.
func (s *AsteroidStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// Statistics summarizes the stored population.
func (s *AsteroidStore) Statistics(ctx context.Context) (*domain.Statistics, error) {
	s.mu.RLock()
	all := s.snapshot()
	s.mu.RUnlock()

	stats := &domain.Statistics{ByRiskLevel: make(map[domain.RiskLevel]int)}
	var scoreSum float64
	var scored int

	for _, a := range all {
		stats.TotalCount++
		if a.IsPotentiallyHazardous {
			stats.HazardousCount++
		}
		if a.IsSentryObject {
			stats.SentryCount++
		}
		if a.RiskLevel != "" {
			stats.ByRiskLevel[domain.RiskLevel(a.RiskLevel)]++
		}
		if a.RiskScore != nil {
			scoreSum += *a.RiskScore
			scored++
			if *a.RiskScore > stats.MaxRiskScore {
				stats.MaxRiskScore = *a.RiskScore
			}
		}
	}
	if scored > 0 {
		stats.MeanRiskScore = scoreSum / float64(scored)
	}

	if s.approaches != nil {
		upcoming, err := s.approaches.Upcoming(ctx, s.now().UTC(), 1)
		if err != nil {
			return nil, err
		}
		if len(upcoming) > 0 {
			stats.NextApproachNeoID = upcoming[0].NeoID
			at := upcoming[0].ApproachAt
			stats.NextApproachAt = &at
		}
	}

	return stats, nil
}

// UpdateRisk sets the risk columns for an asteroid.
func (s *AsteroidStore) UpdateRisk(_ context.Context, neoID string, score float64, level domain.RiskLevel, analysis []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[neoID]
	if !exists {
		return storage.ErrNotFound
	}

	sc := score
	a.RiskScore = &sc
	a.RiskLevel = string(level)
	a.RiskAnalysis = append([]byte(nil), analysis...)
	a.UpdatedAt = s.now().UTC()
	return nil
}

// snapshot copies all records under the caller's read lock.
func (s *AsteroidStore) snapshot() []*domain.Asteroid {
	all := make([]*domain.Asteroid, 0, len(s.data))
	for _, a := range s.data {
		asteroidCopy := *a
		all = append(all, &asteroidCopy)
	}
	return all
}

func (s *AsteroidStore) matches(ctx context.Context, a *domain.Asteroid, filter domain.SearchFilter) (bool, error) {
	if filter.NameContains != "" &&
		!strings.Contains(strings.ToLower(a.Name), strings.ToLower(filter.NameContains)) {
		return false, nil
	}
	if filter.Hazardous != nil && a.IsPotentiallyHazardous != *filter.Hazardous {
		return false, nil
	}
	if filter.Sentry != nil && a.IsSentryObject != *filter.Sentry {
		return false, nil
	}
	if filter.RiskLevel != nil && a.RiskLevel != string(*filter.RiskLevel) {
		return false, nil
	}
	if filter.MinDiameterKm != nil || filter.MaxDiameterKm != nil {
		avg := a.AvgDiameterKm()
		if avg == nil {
			return false, nil
		}
		if filter.MinDiameterKm != nil && *avg < *filter.MinDiameterKm {
			return false, nil
		}
		if filter.MaxDiameterKm != nil && *avg > *filter.MaxDiameterKm {
			return false, nil
		}
	}

	needsApproaches := filter.MaxMissKm != nil ||
		filter.ApproachAfter != nil || filter.ApproachUntil != nil
	if !needsApproaches {
		return true, nil
	}
	if s.approaches == nil {
		return false, nil
	}

	approaches, err := s.approaches.ListByNeoID(ctx, a.NeoID)
	if err != nil {
		return false, err
	}

	if filter.MaxMissKm != nil {
		found := false
		for _, ap := range approaches {
			if ap.MissDistanceKm != nil && *ap.MissDistanceKm <= *filter.MaxMissKm {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	if filter.ApproachAfter != nil || filter.ApproachUntil != nil {
		found := false
		for _, ap := range approaches {
			if filter.ApproachAfter != nil && ap.ApproachAt.Before(*filter.ApproachAfter) {
				continue
			}
			if filter.ApproachUntil != nil && ap.ApproachAt.After(*filter.ApproachUntil) {
				continue
			}
			found = true
			break
		}
		if !found {
			return false, nil
		}
	}

	return true, nil
}

func sortAsteroids(asteroids []*domain.Asteroid, sortBy domain.Sort) {
	// cmp returns <0, 0, >0 before the direction flip. Nullable fields
	// compare nil as "missing" so the flip below keeps them last.
	var cmp func(a, b *domain.Asteroid) int

	switch sortBy.Field {
	case domain.SortByName:
		cmp = func(a, b *domain.Asteroid) int { return strings.Compare(a.Name, b.Name) }
	case domain.SortByRiskScore:
		cmp = func(a, b *domain.Asteroid) int { return compareNullable(a.RiskScore, b.RiskScore, sortBy.Descending) }
	case domain.SortByDiameter:
		cmp = func(a, b *domain.Asteroid) int {
			return compareNullable(a.EstimatedDiameterMaxKm, b.EstimatedDiameterMaxKm, sortBy.Descending)
		}
	case domain.SortByUpdatedAt:
		cmp = func(a, b *domain.Asteroid) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		// Store default: freshest first.
		sort.Slice(asteroids, func(i, j int) bool {
			a, b := asteroids[i], asteroids[j]
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
			return a.NeoID < b.NeoID
		})
		return
	}

	sort.Slice(asteroids, func(i, j int) bool {
		c := cmp(asteroids[i], asteroids[j])
		if sortBy.Descending {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		return asteroids[i].NeoID < asteroids[j].NeoID
	})
}

// compareNullable orders values ascending with nil sorted last even
// after a descending flip.
func compareNullable(a, b *float64, descending bool) int {
	nilRank := 1
	if descending {
		// The caller negates the result, so rank nil low here to keep
		// it at the tail after the flip.
		nilRank = -1
	}
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return nilRank
	case b == nil:
		return -nilRank
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	default:
		return 0
	}
}

func paginate(asteroids []*domain.Asteroid, page domain.Page) []*domain.Asteroid {
	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := page.Offset
	if offset >= len(asteroids) {
		return nil
	}
	end := offset + limit
	if end > len(asteroids) {
		end = len(asteroids)
	}
	return asteroids[offset:end]
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
