package storage

import (
	"context"
	"time"

	"neo-tracker/internal/domain"
)

// AsteroidStore provides access to asteroids storage.
type AsteroidStore interface {
	// Upsert inserts the asteroid or, if neo_id exists, refreshes its
	// catalog fields. Risk columns are left alone; UpdateRisk owns them.
	Upsert(ctx context.Context, a *domain.Asteroid) error

	// GetByNeoID retrieves an asteroid by its NEO reference id.
	// Returns ErrNotFound if not exists.
	GetByNeoID(ctx context.Context, neoID string) (*domain.Asteroid, error)

	// List retrieves asteroids with sorting and pagination.
	List(ctx context.Context, sort domain.Sort, page domain.Page) ([]*domain.Asteroid, error)

	// Search retrieves asteroids matching the filter, with the total
	// match count for pagination.
	Search(ctx context.Context, filter domain.SearchFilter, sort domain.Sort, page domain.Page) (*domain.PagedAsteroids, error)

	// Count returns the number of stored asteroids.
	Count(ctx context.Context) (int, error)

	// Statistics summarizes the stored population.
	Statistics(ctx context.Context) (*domain.Statistics, error)

	// UpdateRisk sets the risk columns for an asteroid. Returns
	// ErrNotFound if neo_id does not exist.
	UpdateRisk(ctx context.Context, neoID string, score float64, level domain.RiskLevel, analysis []byte) error
}

// ApproachStore provides access to close_approaches storage.
type ApproachStore interface {
	// ReplaceForNeo atomically replaces all approaches for an asteroid
	// with the given set. The feed is the source of truth per sync.
	ReplaceForNeo(ctx context.Context, neoID string, approaches []*domain.CloseApproach) error

	// ListByNeoID retrieves all approaches for an asteroid, ordered by
	// approach time ASC.
	ListByNeoID(ctx context.Context, neoID string) ([]*domain.CloseApproach, error)

	// Upcoming retrieves approaches at/after now across all asteroids,
	// ordered by approach time ASC, capped at limit (0 means default).
	Upcoming(ctx context.Context, now time.Time, limit int) ([]*domain.CloseApproach, error)
}

// RiskHistoryStore provides access to the risk_history timeseries.
type RiskHistoryStore interface {
	// InsertBulk appends assessment points. Fails entire batch on error.
	InsertBulk(ctx context.Context, points []*domain.RiskHistoryPoint) error

	// GetByNeoID retrieves all points for an asteroid, ordered by
	// assessment time ASC.
	GetByNeoID(ctx context.Context, neoID string) ([]*domain.RiskHistoryPoint, error)

	// GetByTimeRange retrieves points for an asteroid within
	// [start, end] (inclusive), ordered by assessment time ASC.
	GetByTimeRange(ctx context.Context, neoID string, start, end time.Time) ([]*domain.RiskHistoryPoint, error)
}
