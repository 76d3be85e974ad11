package domain

import "time"

// RiskHistoryPoint is a single scored observation of an asteroid, kept
// as an append-only timeseries so score drift can be charted over time.
type RiskHistoryPoint struct {
	NeoID      string
	AssessedAt time.Time
	RiskScore  float64
	RiskLevel  RiskLevel
	Confidence float64

	// Factor contributions at assessment time.
	SizeScore           float64
	DistanceScore       float64
	VelocityScore       float64
	TimeScore           float64
	ClassificationScore float64
}
