package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/storage"
)

// ApproachStore implements storage.ApproachStore using PostgreSQL.
type ApproachStore struct {
	pool *Pool
}

// NewApproachStore creates a new ApproachStore.
func NewApproachStore(pool *Pool) *ApproachStore {
	return &ApproachStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ApproachStore = (*ApproachStore)(nil)

const approachColumns = `
	neo_id, approach_at, relative_velocity_kmh, relative_velocity_kms,
	miss_distance_km, miss_distance_lunar, orbiting_body
`

// ReplaceForNeo atomically swaps the approach set for an asteroid
// inside a single transaction.
func (s *ApproachStore) ReplaceForNeo(ctx context.Context, neoID string, approaches []*domain.CloseApproach) error {
	if neoID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace approaches: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM close_approaches WHERE neo_id = $1`, neoID); err != nil {
		return fmt.Errorf("delete old approaches: %w", err)
	}

	for _, ap := range approaches {
		if ap == nil {
			continue
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO close_approaches (`+approachColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			neoID,
			ap.ApproachAt,
			ap.RelativeVelocityKmh,
			ap.RelativeVelocityKms,
			ap.MissDistanceKm,
			ap.MissDistanceLunar,
			ap.OrbitingBody,
		)
		if err != nil {
			return fmt.Errorf("insert approach: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace approaches: %w", err)
	}
	return nil
}

// ListByNeoID retrieves all approaches for an asteroid, ordered by
// approach time ASC.
func (s *ApproachStore) ListByNeoID(ctx context.Context, neoID string) ([]*domain.CloseApproach, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+approachColumns+`
		FROM close_approaches
		WHERE neo_id = $1
		ORDER BY approach_at ASC
	`, neoID)
	if err != nil {
		return nil, fmt.Errorf("list approaches: %w", err)
	}
	defer rows.Close()

	return scanApproaches(rows)
}

// Upcoming retrieves approaches at/after now across all asteroids.
func (s *ApproachStore) Upcoming(ctx context.Context, now time.Time, limit int) ([]*domain.CloseApproach, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+approachColumns+`
		FROM close_approaches
		WHERE approach_at >= $1
		ORDER BY approach_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming approaches: %w", err)
	}
	defer rows.Close()

	return scanApproaches(rows)
}

func scanApproaches(rows pgx.Rows) ([]*domain.CloseApproach, error) {
	var approaches []*domain.CloseApproach

	for rows.Next() {
		var ap domain.CloseApproach
		err := rows.Scan(
			&ap.NeoID,
			&ap.ApproachAt,
			&ap.RelativeVelocityKmh,
			&ap.RelativeVelocityKms,
			&ap.MissDistanceKm,
			&ap.MissDistanceLunar,
			&ap.OrbitingBody,
		)
		if err != nil {
			return nil, fmt.Errorf("scan approach row: %w", err)
		}
		approaches = append(approaches, &ap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approach rows: %w", err)
	}

	return approaches, nil
}
