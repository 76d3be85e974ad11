package domain

import "time"

// CloseApproach represents a single close-approach event for an asteroid.
// Corresponds to close_approaches table in PostgreSQL.
type CloseApproach struct {
	NeoID               string    // asteroid reference
	ApproachAt          time.Time // close approach timestamp (UTC)
	RelativeVelocityKmh *float64  // relative velocity in km/h (nullable)
	RelativeVelocityKms *float64  // relative velocity in km/s (nullable)
	MissDistanceKm      *float64  // minimum distance in km (nullable)
	MissDistanceLunar   *float64  // minimum distance in lunar distances (nullable)
	OrbitingBody        string    // body being approached, usually "Earth"
}

// ClosestOf returns the approach with the smallest miss distance.
// Approaches without a miss distance are ignored. Returns nil for an
// empty or all-unknown slice.
func ClosestOf(approaches []*CloseApproach) *CloseApproach {
	var closest *CloseApproach
	for _, ap := range approaches {
		if ap == nil || ap.MissDistanceKm == nil {
			continue
		}
		if closest == nil || *ap.MissDistanceKm < *closest.MissDistanceKm {
			closest = ap
		}
	}
	return closest
}

// NextUpcoming returns the earliest approach at or after now, or nil.
func NextUpcoming(approaches []*CloseApproach, now time.Time) *CloseApproach {
	var next *CloseApproach
	for _, ap := range approaches {
		if ap == nil || ap.ApproachAt.Before(now) {
			continue
		}
		if next == nil || ap.ApproachAt.Before(next.ApproachAt) {
			next = ap
		}
	}
	return next
}
