package neows

import (
	"testing"
	"time"
)

func TestTransform(t *testing.T) {
	mag := 19.7
	dmin := 0.31
	dmax := 0.68
	observed := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	at := time.Date(2029, 4, 13, 21, 46, 0, 0, time.UTC)

	obj := &NeoObject{
		ID:                 "2099942",
		NeoReferenceID:     "2099942",
		Name:               "99942 Apophis (2004 MN4)",
		NASAJPLURL:         "https://ssd.jpl.nasa.gov/tools/sbdb_lookup.html#/?sstr=2099942",
		AbsoluteMagnitudeH: &mag,
		EstimatedDiameter: EstimatedDiameter{
			Kilometers: &DiameterRange{Min: &dmin, Max: &dmax},
		},
		IsPotentiallyHazardous: true,
		CloseApproachData: []RawApproach{
			{
				CloseApproachDate:     "2029-04-13",
				CloseApproachDateFull: "2029-Apr-13 21:46",
				EpochDateCloseMs:      at.UnixMilli(),
				RelativeVelocity: RawVelocity{
					KilometersPerSecond: "8.5",
					KilometersPerHour:   "30600.0",
				},
				MissDistance: RawDistance{
					Kilometers: "31000.0",
					Lunar:      "0.0806452",
				},
				OrbitingBody: "Earth",
			},
		},
	}

	ast, approaches := Transform(obj, observed)

	if ast.NeoID != "2099942" {
		t.Errorf("expected neo id 2099942, got %s", ast.NeoID)
	}
	if ast.Name != "99942 Apophis (2004 MN4)" {
		t.Errorf("unexpected name: %s", ast.Name)
	}
	if ast.AbsoluteMagnitude == nil || *ast.AbsoluteMagnitude != 19.7 {
		t.Errorf("unexpected magnitude: %v", ast.AbsoluteMagnitude)
	}
	if ast.EstimatedDiameterMinKm == nil || *ast.EstimatedDiameterMinKm != 0.31 {
		t.Errorf("unexpected diameter min: %v", ast.EstimatedDiameterMinKm)
	}
	if !ast.IsPotentiallyHazardous {
		t.Error("expected hazardous flag")
	}
	if ast.FirstObserved == nil || !ast.FirstObserved.Equal(observed) {
		t.Errorf("unexpected first observed: %v", ast.FirstObserved)
	}

	if len(approaches) != 1 {
		t.Fatalf("expected 1 approach, got %d", len(approaches))
	}
	ap := approaches[0]
	if ap.NeoID != "2099942" {
		t.Errorf("expected approach neo id 2099942, got %s", ap.NeoID)
	}
	if !ap.ApproachAt.Equal(at) {
		t.Errorf("expected approach at %v, got %v", at, ap.ApproachAt)
	}
	if ap.RelativeVelocityKmh == nil || *ap.RelativeVelocityKmh != 30600.0 {
		t.Errorf("unexpected velocity: %v", ap.RelativeVelocityKmh)
	}
	if ap.MissDistanceKm == nil || *ap.MissDistanceKm != 31000.0 {
		t.Errorf("unexpected miss distance: %v", ap.MissDistanceKm)
	}
	if ap.OrbitingBody != "Earth" {
		t.Errorf("unexpected orbiting body: %s", ap.OrbitingBody)
	}
}

func TestTransform_ProvisionalNameStripped(t *testing.T) {
	obj := &NeoObject{ID: "3542519", NeoReferenceID: "3542519", Name: "(2010 PK9)"}

	ast, _ := Transform(obj, time.Time{})
	if ast.Name != "2010 PK9" {
		t.Errorf("expected parentheses stripped, got %q", ast.Name)
	}
	if ast.FirstObserved != nil {
		t.Errorf("expected nil first observed for zero time, got %v", ast.FirstObserved)
	}
}

func TestTransform_MalformedApproachSkipped(t *testing.T) {
	obj := &NeoObject{
		ID:             "54016476",
		NeoReferenceID: "54016476",
		Name:           "(2020 SW)",
		CloseApproachData: []RawApproach{
			// No usable timestamp in any form.
			{CloseApproachDate: "not-a-date"},
			{
				CloseApproachDate: "2026-09-24",
				RelativeVelocity:  RawVelocity{KilometersPerHour: "garbage"},
				MissDistance:      RawDistance{Kilometers: "27000.0"},
				OrbitingBody:      "Earth",
			},
		},
	}

	_, approaches := Transform(obj, time.Time{})
	if len(approaches) != 1 {
		t.Fatalf("expected 1 approach, got %d", len(approaches))
	}

	ap := approaches[0]
	if ap.RelativeVelocityKmh != nil {
		t.Errorf("expected nil velocity for garbage input, got %v", ap.RelativeVelocityKmh)
	}
	if ap.MissDistanceKm == nil || *ap.MissDistanceKm != 27000.0 {
		t.Errorf("unexpected miss distance: %v", ap.MissDistanceKm)
	}

	want := time.Date(2026, 9, 24, 0, 0, 0, 0, time.UTC)
	if !ap.ApproachAt.Equal(want) {
		t.Errorf("expected date-only fallback %v, got %v", want, ap.ApproachAt)
	}
}

func TestTransform_FallsBackToID(t *testing.T) {
	obj := &NeoObject{ID: "12345", Name: "Test"}
	ast, _ := Transform(obj, time.Time{})
	if ast.NeoID != "12345" {
		t.Errorf("expected id fallback, got %s", ast.NeoID)
	}
}
