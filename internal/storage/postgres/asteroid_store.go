package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/storage"
)

// AsteroidStore implements storage.AsteroidStore using PostgreSQL.
type AsteroidStore struct {
	pool *Pool
}

// NewAsteroidStore creates a new AsteroidStore.
func NewAsteroidStore(pool *Pool) *AsteroidStore {
	return &AsteroidStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AsteroidStore = (*AsteroidStore)(nil)

const asteroidColumns = `
	neo_id, name, nasa_jpl_url, absolute_magnitude,
	estimated_diameter_min_km, estimated_diameter_max_km,
	is_potentially_hazardous, is_sentry_object,
	risk_score, risk_level, risk_analysis,
	first_observed, created_at, updated_at
`

// Upsert inserts the asteroid or refreshes its catalog fields on
// neo_id conflict. Risk columns are untouched so a sync never clobbers
// a fresher assessment.
func (s *AsteroidStore) Upsert(ctx context.Context, a *domain.Asteroid) error {
	if a == nil || a.NeoID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO asteroids (
			neo_id, name, nasa_jpl_url, absolute_magnitude,
			estimated_diameter_min_km, estimated_diameter_max_km,
			is_potentially_hazardous, is_sentry_object, first_observed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (neo_id) DO UPDATE SET
			name = EXCLUDED.name,
			nasa_jpl_url = EXCLUDED.nasa_jpl_url,
			absolute_magnitude = EXCLUDED.absolute_magnitude,
			estimated_diameter_min_km = EXCLUDED.estimated_diameter_min_km,
			estimated_diameter_max_km = EXCLUDED.estimated_diameter_max_km,
			is_potentially_hazardous = EXCLUDED.is_potentially_hazardous,
			is_sentry_object = EXCLUDED.is_sentry_object,
			first_observed = LEAST(asteroids.first_observed, EXCLUDED.first_observed),
			updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query,
		a.NeoID,
		a.Name,
		a.NASAJPLURL,
		a.AbsoluteMagnitude,
		a.EstimatedDiameterMinKm,
		a.EstimatedDiameterMaxKm,
		a.IsPotentiallyHazardous,
		a.IsSentryObject,
		a.FirstObserved,
	)
	if err != nil {
		return fmt.Errorf("upsert asteroid: %w", err)
	}
	return nil
}

// GetByNeoID retrieves an asteroid by its NEO reference id.
func (s *AsteroidStore) GetByNeoID(ctx context.Context, neoID string) (*domain.Asteroid, error) {
	query := `SELECT ` + asteroidColumns + ` FROM asteroids WHERE neo_id = $1`

	row := s.pool.QueryRow(ctx, query, neoID)
	a, err := scanAsteroid(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get asteroid by neo id: %w", err)
	}
	return a, nil
}

// List retrieves asteroids with sorting and pagination.
func (s *AsteroidStore) List(ctx context.Context, sort domain.Sort, page domain.Page) ([]*domain.Asteroid, error) {
	query := `SELECT ` + asteroidColumns + ` FROM asteroids ` +
		orderClause(sort) + paginationClause(page)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list asteroids: %w", err)
	}
	defer rows.Close()

	return scanAsteroids(rows)
}

// Search retrieves asteroids matching the filter plus the total match
// count. Approach criteria join against close_approaches.
func (s *AsteroidStore) Search(ctx context.Context, filter domain.SearchFilter, sort domain.Sort, page domain.Page) (*domain.PagedAsteroids, error) {
	where, args := searchConditions(filter)

	countQuery := `SELECT COUNT(*) FROM asteroids a` + where
	var total int
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count search results: %w", err)
	}

	query := `SELECT ` + prefixColumns(asteroidColumns, "a.") + ` FROM asteroids a` +
		where + orderClause(sort) + paginationClause(page)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search asteroids: %w", err)
	}
	defer rows.Close()

	items, err := scanAsteroids(rows)
	if err != nil {
		return nil, err
	}
	return &domain.PagedAsteroids{Items: items, Total: total}, nil
}

// Count returns the number of stored asteroids.
func (s *AsteroidStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM asteroids`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count asteroids: %w", err)
	}
	return n, nil
}

// Statistics summarizes the stored population in a handful of queries.
func (s *AsteroidStore) Statistics(ctx context.Context) (*domain.Statistics, error) {
	stats := &domain.Statistics{ByRiskLevel: make(map[domain.RiskLevel]int)}

	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_potentially_hazardous),
		       COUNT(*) FILTER (WHERE is_sentry_object),
		       COALESCE(AVG(risk_score), 0),
		       COALESCE(MAX(risk_score), 0)
		FROM asteroids
	`
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalCount,
		&stats.HazardousCount,
		&stats.SentryCount,
		&stats.MeanRiskScore,
		&stats.MaxRiskScore,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate statistics: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT risk_level, COUNT(*)
		FROM asteroids
		WHERE risk_level <> ''
		GROUP BY risk_level
	`)
	if err != nil {
		return nil, fmt.Errorf("risk level breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("scan risk level row: %w", err)
		}
		stats.ByRiskLevel[domain.RiskLevel(level)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk level rows: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		SELECT neo_id, approach_at
		FROM close_approaches
		WHERE approach_at >= NOW()
		ORDER BY approach_at ASC
		LIMIT 1
	`).Scan(&stats.NextApproachNeoID, &stats.NextApproachAt)
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("next approach: %w", err)
	}

	return stats, nil
}

// UpdateRisk sets the risk columns for an asteroid.
func (s *AsteroidStore) UpdateRisk(ctx context.Context, neoID string, score float64, level domain.RiskLevel, analysis []byte) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE asteroids
		SET risk_score = $2, risk_level = $3, risk_analysis = $4, updated_at = NOW()
		WHERE neo_id = $1
	`, neoID, score, string(level), analysis)
	if err != nil {
		return fmt.Errorf("update risk: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// searchConditions builds the WHERE clause for a filter. Positional
// arguments are numbered as they are appended.
func searchConditions(filter domain.SearchFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.NameContains != "" {
		conds = append(conds, "a.name ILIKE "+arg("%"+filter.NameContains+"%"))
	}
	if filter.Hazardous != nil {
		conds = append(conds, "a.is_potentially_hazardous = "+arg(*filter.Hazardous))
	}
	if filter.Sentry != nil {
		conds = append(conds, "a.is_sentry_object = "+arg(*filter.Sentry))
	}
	if filter.RiskLevel != nil {
		conds = append(conds, "a.risk_level = "+arg(string(*filter.RiskLevel)))
	}
	if filter.MinDiameterKm != nil {
		conds = append(conds, avgDiameterExpr+" >= "+arg(*filter.MinDiameterKm))
	}
	if filter.MaxDiameterKm != nil {
		conds = append(conds, avgDiameterExpr+" <= "+arg(*filter.MaxDiameterKm))
	}
	if filter.MaxMissKm != nil {
		conds = append(conds, `EXISTS (
			SELECT 1 FROM close_approaches ca
			WHERE ca.neo_id = a.neo_id AND ca.miss_distance_km <= `+arg(*filter.MaxMissKm)+`)`)
	}
	if filter.ApproachAfter != nil || filter.ApproachUntil != nil {
		var sub []string
		if filter.ApproachAfter != nil {
			sub = append(sub, "ca.approach_at >= "+arg(*filter.ApproachAfter))
		}
		if filter.ApproachUntil != nil {
			sub = append(sub, "ca.approach_at <= "+arg(*filter.ApproachUntil))
		}
		conds = append(conds, `EXISTS (
			SELECT 1 FROM close_approaches ca
			WHERE ca.neo_id = a.neo_id AND `+strings.Join(sub, " AND ")+`)`)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// avgDiameterExpr mirrors domain.Asteroid.AvgDiameterKm in SQL.
const avgDiameterExpr = `COALESCE(
	(a.estimated_diameter_min_km + a.estimated_diameter_max_km) / 2,
	a.estimated_diameter_max_km,
	a.estimated_diameter_min_km
)`

func orderClause(sort domain.Sort) string {
	col := "updated_at"
	switch sort.Field {
	case domain.SortByName:
		col = "name"
	case domain.SortByRiskScore:
		col = "risk_score"
	case domain.SortByDiameter:
		col = "estimated_diameter_max_km"
	case domain.SortByUpdatedAt:
		col = "updated_at"
	case "":
		// Default: freshest first.
		return " ORDER BY updated_at DESC, neo_id ASC"
	}

	dir := "ASC"
	if sort.Descending {
		dir = "DESC"
	}
	// NULL risk scores and diameters sort last either way.
	return fmt.Sprintf(" ORDER BY %s %s NULLS LAST, neo_id ASC", col, dir)
}

func paginationClause(page domain.Page) string {
	limit := page.Limit
	if limit <= 0 {
		limit = 50
	}
	clause := fmt.Sprintf(" LIMIT %d", limit)
	if page.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", page.Offset)
	}
	return clause
}

// prefixColumns qualifies each column in a comma list with a table alias.
func prefixColumns(columns, prefix string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// scanAsteroid scans a single row into an Asteroid.
func scanAsteroid(row pgx.Row) (*domain.Asteroid, error) {
	var a domain.Asteroid
	var level *string

	err := row.Scan(
		&a.NeoID,
		&a.Name,
		&a.NASAJPLURL,
		&a.AbsoluteMagnitude,
		&a.EstimatedDiameterMinKm,
		&a.EstimatedDiameterMaxKm,
		&a.IsPotentiallyHazardous,
		&a.IsSentryObject,
		&a.RiskScore,
		&level,
		&a.RiskAnalysis,
		&a.FirstObserved,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if level != nil {
		a.RiskLevel = *level
	}
	return &a, nil
}

// scanAsteroids scans multiple rows into a slice of Asteroid.
func scanAsteroids(rows pgx.Rows) ([]*domain.Asteroid, error) {
	var asteroids []*domain.Asteroid

	for rows.Next() {
		a, err := scanAsteroid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asteroid row: %w", err)
		}
		asteroids = append(asteroids, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate asteroid rows: %w", err)
	}

	return asteroids, nil
}
