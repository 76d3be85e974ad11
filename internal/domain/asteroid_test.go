package domain

import (
	"testing"
	"time"
)

func fptr(v float64) *float64 { return &v }

func TestAvgDiameterKm(t *testing.T) {
	tests := []struct {
		name string
		min  *float64
		max  *float64
		want *float64
	}{
		{"both bounds", fptr(0.1), fptr(0.3), fptr(0.2)},
		{"max only", nil, fptr(0.3), fptr(0.3)},
		{"min only", fptr(0.1), nil, fptr(0.1)},
		{"neither", nil, nil, nil},
	}

	for _, tt := range tests {
		a := &Asteroid{EstimatedDiameterMinKm: tt.min, EstimatedDiameterMaxKm: tt.max}
		got := a.AvgDiameterKm()
		if (got == nil) != (tt.want == nil) {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
			continue
		}
		if got != nil && *got != *tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, *got, *tt.want)
		}
	}
}

func TestClosestOf(t *testing.T) {
	a := &CloseApproach{NeoID: "1", MissDistanceKm: fptr(500000)}
	b := &CloseApproach{NeoID: "2", MissDistanceKm: fptr(31000)}
	c := &CloseApproach{NeoID: "3"} // unknown distance

	if got := ClosestOf([]*CloseApproach{a, c, b}); got != b {
		t.Errorf("expected approach 2, got %+v", got)
	}
	if got := ClosestOf([]*CloseApproach{c}); got != nil {
		t.Errorf("expected nil for all-unknown distances, got %+v", got)
	}
	if got := ClosestOf(nil); got != nil {
		t.Errorf("expected nil for empty slice, got %+v", got)
	}
}

func TestNextUpcoming(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := &CloseApproach{NeoID: "past", ApproachAt: now.AddDate(0, -1, 0)}
	near := &CloseApproach{NeoID: "near", ApproachAt: now.AddDate(0, 0, 3)}
	far := &CloseApproach{NeoID: "far", ApproachAt: now.AddDate(2, 0, 0)}

	if got := NextUpcoming([]*CloseApproach{far, past, near}, now); got != near {
		t.Errorf("expected near approach, got %+v", got)
	}
	if got := NextUpcoming([]*CloseApproach{past}, now); got != nil {
		t.Errorf("expected nil for past-only approaches, got %+v", got)
	}
}

func TestRiskLevelIsValid(t *testing.T) {
	valid := []RiskLevel{RiskVeryLow, RiskLow, RiskMedium, RiskHigh, RiskVeryHigh, RiskCritical}
	for _, l := range valid {
		if !l.IsValid() {
			t.Errorf("level %s should be valid", l)
		}
	}
	if RiskUnknown.IsValid() {
		t.Error("unknown level must not validate as a calculation output")
	}
	if RiskLevel("extreme").IsValid() {
		t.Error("arbitrary level must not validate")
	}
}
