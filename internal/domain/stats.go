package domain

import "time"

// Statistics summarizes the tracked asteroid population.
type Statistics struct {
	TotalCount     int
	HazardousCount int
	SentryCount    int

	// Count of asteroids per categorical risk level.
	ByRiskLevel map[RiskLevel]int

	MeanRiskScore float64
	MaxRiskScore  float64

	// Earliest upcoming close approach across all objects, if any.
	NextApproachNeoID string
	NextApproachAt    *time.Time
}
