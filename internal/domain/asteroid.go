package domain

import "time"

// Asteroid represents a near-Earth object tracked by the system.
// Corresponds to asteroids table in PostgreSQL.
type Asteroid struct {
	NeoID                  string   // PRIMARY KEY, NASA NEO reference id
	Name                   string   // designation, parentheses stripped
	NASAJPLURL             string   // JPL small-body database link
	AbsoluteMagnitude      *float64 // H magnitude (nullable)
	EstimatedDiameterMinKm *float64 // lower bound of diameter estimate (nullable)
	EstimatedDiameterMaxKm *float64 // upper bound of diameter estimate (nullable)
	IsPotentiallyHazardous bool     // NASA PHO classification
	IsSentryObject         bool     // under Sentry automated monitoring

	// Risk columns, maintained by the scoring pipeline.
	RiskScore    *float64 // 0-100, indexed scalar
	RiskLevel    string   // categorical level, indexed scalar
	RiskAnalysis []byte   // serialized RiskAnalysis blob (JSON)

	FirstObserved *time.Time // feed date the object first appeared on
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AvgDiameterKm returns the average of the estimated diameter bounds,
// or nil if neither bound is known.
func (a *Asteroid) AvgDiameterKm() *float64 {
	switch {
	case a.EstimatedDiameterMinKm != nil && a.EstimatedDiameterMaxKm != nil:
		avg := (*a.EstimatedDiameterMinKm + *a.EstimatedDiameterMaxKm) / 2
		return &avg
	case a.EstimatedDiameterMaxKm != nil:
		return a.EstimatedDiameterMaxKm
	case a.EstimatedDiameterMinKm != nil:
		return a.EstimatedDiameterMinKm
	default:
		return nil
	}
}
