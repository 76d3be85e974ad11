package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/storage"
)

func seedAsteroid(t *testing.T, store *AsteroidStore, neoID, name string, diameterMax float64, hazardous bool) {
	t.Helper()
	err := store.Upsert(context.Background(), &domain.Asteroid{
		NeoID:                  neoID,
		Name:                   name,
		EstimatedDiameterMinKm: ptr(diameterMax / 2),
		EstimatedDiameterMaxKm: ptr(diameterMax),
		IsPotentiallyHazardous: hazardous,
	})
	require.NoError(t, err)
}

func TestAsteroidStore_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAsteroidStore(pool)
	ctx := context.Background()

	observed := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	a := &domain.Asteroid{
		NeoID:                  "2099942",
		Name:                   "99942 Apophis (2004 MN4)",
		NASAJPLURL:             "https://ssd.jpl.nasa.gov/tools/sbdb_lookup.html#/?sstr=2099942",
		AbsoluteMagnitude:      ptr(19.7),
		EstimatedDiameterMinKm: ptr(0.31),
		EstimatedDiameterMaxKm: ptr(0.68),
		IsPotentiallyHazardous: true,
		FirstObserved:          &observed,
	}
	require.NoError(t, store.Upsert(ctx, a))

	got, err := store.GetByNeoID(ctx, "2099942")
	require.NoError(t, err)
	assert.Equal(t, "99942 Apophis (2004 MN4)", got.Name)
	require.NotNil(t, got.AbsoluteMagnitude)
	assert.Equal(t, 19.7, *got.AbsoluteMagnitude)
	assert.True(t, got.IsPotentiallyHazardous)
	assert.Nil(t, got.RiskScore)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestAsteroidStore_GetNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAsteroidStore(pool)

	_, err := store.GetByNeoID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAsteroidStore_UpsertRefreshKeepsRisk(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAsteroidStore(pool)
	ctx := context.Background()

	seedAsteroid(t, store, "3542519", "2010 PK9", 0.26, true)
	require.NoError(t, store.UpdateRisk(ctx, "3542519", 56.0, domain.RiskHigh, []byte(`{"total_score":56}`)))

	// Re-sync with fresher catalog data.
	seedAsteroid(t, store, "3542519", "2010 PK9 refreshed", 0.3, true)

	got, err := store.GetByNeoID(ctx, "3542519")
	require.NoError(t, err)
	assert.Equal(t, "2010 PK9 refreshed", got.Name)
	require.NotNil(t, got.RiskScore)
	assert.Equal(t, 56.0, *got.RiskScore)
	assert.Equal(t, string(domain.RiskHigh), got.RiskLevel)
	assert.JSONEq(t, `{"total_score":56}`, string(got.RiskAnalysis))
}

func TestAsteroidStore_UpdateRiskNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAsteroidStore(pool)

	err := store.UpdateRisk(context.Background(), "missing", 10, domain.RiskLow, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAsteroidStore_ListAndCount(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAsteroidStore(pool)
	ctx := context.Background()

	seedAsteroid(t, store, "1", "Ceres", 950.0, false)
	seedAsteroid(t, store, "2", "Apophis", 0.68, true)
	seedAsteroid(t, store, "3", "Bennu", 0.56, true)
	require.NoError(t, store.UpdateRisk(ctx, "2", 56, domain.RiskHigh, nil))
	require.NoError(t, store.UpdateRisk(ctx, "3", 40, domain.RiskMedium, nil))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	byName, err := store.List(ctx, domain.Sort{Field: domain.SortByName}, domain.Page{})
	require.NoError(t, err)
	require.Len(t, byName, 3)
	assert.Equal(t, "Apophis", byName[0].Name)
	assert.Equal(t, "Ceres", byName[2].Name)

	// Unscored rows sort last on descending risk score.
	byScore, err := store.List(ctx, domain.Sort{Field: domain.SortByRiskScore, Descending: true}, domain.Page{})
	require.NoError(t, err)
	require.Len(t, byScore, 3)
	assert.Equal(t, "2", byScore[0].NeoID)
	assert.Equal(t, "3", byScore[1].NeoID)
	assert.Equal(t, "1", byScore[2].NeoID)

	page, err := store.List(ctx, domain.Sort{Field: domain.SortByName}, domain.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Ceres", page[0].Name)
}

func TestAsteroidStore_Search(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAsteroidStore(pool)
	approaches := NewApproachStore(pool)
	ctx := context.Background()

	seedAsteroid(t, store, "1", "99942 Apophis", 0.68, true)
	seedAsteroid(t, store, "2", "433 Eros", 34.4, false)
	seedAsteroid(t, store, "3", "2010 PK9", 0.26, true)

	at := time.Date(2029, 4, 13, 21, 46, 0, 0, time.UTC)
	require.NoError(t, approaches.ReplaceForNeo(ctx, "1", []*domain.CloseApproach{
		{NeoID: "1", ApproachAt: at, MissDistanceKm: ptr(31000.0), OrbitingBody: "Earth"},
	}))

	result, err := store.Search(ctx, domain.SearchFilter{Hazardous: ptr(true)}, domain.Sort{Field: domain.SortByName}, domain.Page{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)

	result, err = store.Search(ctx, domain.SearchFilter{NameContains: "apophis"}, domain.Sort{}, domain.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "1", result.Items[0].NeoID)

	result, err = store.Search(ctx, domain.SearchFilter{MaxMissKm: ptr(100000.0)}, domain.Sort{}, domain.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "1", result.Items[0].NeoID)

	result, err = store.Search(ctx, domain.SearchFilter{MinDiameterKm: ptr(10.0)}, domain.Sort{}, domain.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "2", result.Items[0].NeoID)

	// Window filter around the known approach.
	result, err = store.Search(ctx, domain.SearchFilter{
		ApproachAfter: ptr(at.Add(-time.Hour)),
		ApproachUntil: ptr(at.Add(time.Hour)),
	}, domain.Sort{}, domain.Page{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	assert.Equal(t, "1", result.Items[0].NeoID)

	// Search page smaller than the match set still reports the total.
	result, err = store.Search(ctx, domain.SearchFilter{Hazardous: ptr(true)}, domain.Sort{Field: domain.SortByName}, domain.Page{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Items, 1)
}

func TestAsteroidStore_Statistics(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAsteroidStore(pool)
	approaches := NewApproachStore(pool)
	ctx := context.Background()

	seedAsteroid(t, store, "1", "Apophis", 0.68, true)
	seedAsteroid(t, store, "2", "Eros", 34.4, false)
	require.NoError(t, store.UpdateRisk(ctx, "1", 56, domain.RiskHigh, nil))
	require.NoError(t, store.UpdateRisk(ctx, "2", 20, domain.RiskLow, nil))

	future := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	require.NoError(t, approaches.ReplaceForNeo(ctx, "1", []*domain.CloseApproach{
		{NeoID: "1", ApproachAt: future, OrbitingBody: "Earth"},
	}))

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCount)
	assert.Equal(t, 1, stats.HazardousCount)
	assert.Equal(t, 38.0, stats.MeanRiskScore)
	assert.Equal(t, 56.0, stats.MaxRiskScore)
	assert.Equal(t, 1, stats.ByRiskLevel[domain.RiskHigh])
	assert.Equal(t, 1, stats.ByRiskLevel[domain.RiskLow])
	assert.Equal(t, "1", stats.NextApproachNeoID)
	require.NotNil(t, stats.NextApproachAt)
	assert.True(t, stats.NextApproachAt.Equal(future))
}
