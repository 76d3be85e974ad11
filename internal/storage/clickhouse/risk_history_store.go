package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/storage"
)

// RiskHistoryStore implements storage.RiskHistoryStore using ClickHouse.
type RiskHistoryStore struct {
	conn *Conn
}

// NewRiskHistoryStore creates a new RiskHistoryStore.
func NewRiskHistoryStore(conn *Conn) *RiskHistoryStore {
	return &RiskHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RiskHistoryStore = (*RiskHistoryStore)(nil)

const riskHistoryColumns = `
	neo_id, assessed_at, risk_score, risk_level, confidence,
	size_score, distance_score, velocity_score, time_score, classification_score
`

// InsertBulk appends assessment points in a single prepared batch.
func (s *RiskHistoryStore) InsertBulk(ctx context.Context, points []*domain.RiskHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO risk_history (`+riskHistoryColumns+`)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if p == nil || p.NeoID == "" {
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			p.NeoID, p.AssessedAt, p.RiskScore, string(p.RiskLevel), p.Confidence,
			p.SizeScore, p.DistanceScore, p.VelocityScore, p.TimeScore, p.ClassificationScore,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByNeoID retrieves all points for an asteroid, ordered by
// assessment time ASC.
func (s *RiskHistoryStore) GetByNeoID(ctx context.Context, neoID string) ([]*domain.RiskHistoryPoint, error) {
	query := `
		SELECT ` + riskHistoryColumns + `
		FROM risk_history
		WHERE neo_id = ?
		ORDER BY assessed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, neoID)
	if err != nil {
		return nil, fmt.Errorf("query by neo id: %w", err)
	}
	defer rows.Close()

	return scanRiskHistory(rows)
}

// GetByTimeRange retrieves points for an asteroid within [start, end].
func (s *RiskHistoryStore) GetByTimeRange(ctx context.Context, neoID string, start, end time.Time) ([]*domain.RiskHistoryPoint, error) {
	query := `
		SELECT ` + riskHistoryColumns + `
		FROM risk_history
		WHERE neo_id = ? AND assessed_at >= ? AND assessed_at <= ?
		ORDER BY assessed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, neoID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanRiskHistory(rows)
}

func scanRiskHistory(rows driver.Rows) ([]*domain.RiskHistoryPoint, error) {
	var points []*domain.RiskHistoryPoint

	for rows.Next() {
		var p domain.RiskHistoryPoint
		var level string

		err := rows.Scan(
			&p.NeoID, &p.AssessedAt, &p.RiskScore, &level, &p.Confidence,
			&p.SizeScore, &p.DistanceScore, &p.VelocityScore, &p.TimeScore, &p.ClassificationScore,
		)
		if err != nil {
			return nil, fmt.Errorf("scan risk history row: %w", err)
		}

		p.RiskLevel = domain.RiskLevel(level)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk history rows: %w", err)
	}

	return points, nil
}
