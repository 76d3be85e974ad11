package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/storage"
)

func approachAt(neoID string, at time.Time, missKm float64) *domain.CloseApproach {
	miss := missKm
	return &domain.CloseApproach{
		NeoID:          neoID,
		ApproachAt:     at,
		MissDistanceKm: &miss,
		OrbitingBody:   "Earth",
	}
}

func TestApproachStore_ReplaceAndList(t *testing.T) {
	store := NewApproachStore()
	ctx := context.Background()

	base := time.Date(2029, 4, 13, 0, 0, 0, 0, time.UTC)
	// Inserted out of order; ListByNeoID must come back sorted.
	err := store.ReplaceForNeo(ctx, "1", []*domain.CloseApproach{
		approachAt("1", base.AddDate(7, 0, 0), 5000000),
		approachAt("1", base, 31000),
	})
	if err != nil {
		t.Fatalf("ReplaceForNeo: %v", err)
	}

	got, err := store.ListByNeoID(ctx, "1")
	if err != nil {
		t.Fatalf("ListByNeoID: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 approaches, got %d", len(got))
	}
	if !got[0].ApproachAt.Equal(base) {
		t.Errorf("expected earliest first, got %v", got[0].ApproachAt)
	}

	// Replace with a smaller set.
	err = store.ReplaceForNeo(ctx, "1", []*domain.CloseApproach{
		approachAt("1", base, 31000),
	})
	if err != nil {
		t.Fatalf("ReplaceForNeo second: %v", err)
	}
	got, _ = store.ListByNeoID(ctx, "1")
	if len(got) != 1 {
		t.Errorf("expected 1 approach after replace, got %d", len(got))
	}

	// Replace with empty clears.
	if err := store.ReplaceForNeo(ctx, "1", nil); err != nil {
		t.Fatalf("ReplaceForNeo empty: %v", err)
	}
	got, _ = store.ListByNeoID(ctx, "1")
	if len(got) != 0 {
		t.Errorf("expected no approaches, got %d", len(got))
	}
}

func TestApproachStore_ReplaceInvalid(t *testing.T) {
	store := NewApproachStore()

	err := store.ReplaceForNeo(context.Background(), "", nil)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestApproachStore_Upcoming(t *testing.T) {
	store := NewApproachStore()
	ctx := context.Background()

	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if err := store.ReplaceForNeo(ctx, "1", []*domain.CloseApproach{
		approachAt("1", now.Add(-24*time.Hour), 31000), // past, excluded
		approachAt("1", now.Add(72*time.Hour), 31000),
	}); err != nil {
		t.Fatalf("ReplaceForNeo 1: %v", err)
	}
	if err := store.ReplaceForNeo(ctx, "2", []*domain.CloseApproach{
		approachAt("2", now.Add(24*time.Hour), 820000),
	}); err != nil {
		t.Fatalf("ReplaceForNeo 2: %v", err)
	}

	got, err := store.Upcoming(ctx, now, 10)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 upcoming, got %d", len(got))
	}
	if got[0].NeoID != "2" || got[1].NeoID != "1" {
		t.Errorf("unexpected order: %s, %s", got[0].NeoID, got[1].NeoID)
	}

	capped, err := store.Upcoming(ctx, now, 1)
	if err != nil {
		t.Fatalf("Upcoming capped: %v", err)
	}
	if len(capped) != 1 || capped[0].NeoID != "2" {
		t.Errorf("expected single earliest approach, got %d", len(capped))
	}
}
