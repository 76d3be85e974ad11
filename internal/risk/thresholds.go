package risk

// Thresholds holds the scoring breakpoints for the four graded dimensions.
// Within each dimension the tiers are strictly ordered: critical is the
// most extreme value, low the least. Constructed once, never mutated.
type Thresholds struct {
	// Miss distance breakpoints in km. Smaller distance scores higher.
	DistanceCritical float64 // extremely close
	DistanceVeryHigh float64 // inside lunar orbit
	DistanceHigh     float64 // ~5 lunar distances (configurable)
	DistanceMedium   float64 // ~20 lunar distances
	DistanceLow      float64 // ~200 lunar distances

	// Diameter breakpoints in km.
	DiameterCritical float64 // extinction-class
	DiameterVeryHigh float64 // regional devastation
	DiameterHigh     float64 // NASA PHO standard (configurable)
	DiameterMedium   float64 // significant local damage
	DiameterLow      float64 // visible meteor

	// Relative velocity breakpoints in km/h.
	VelocityCritical float64
	VelocityVeryHigh float64
	VelocityHigh     float64 // configurable
	VelocityMedium   float64
	VelocityLow      float64

	// Time-to-approach breakpoints in days.
	TimeCritical float64 // one week
	TimeVeryHigh float64 // one month
	TimeHigh     float64 // one year
	TimeMedium   float64 // a decade
}

// DefaultThresholds returns the fixed default breakpoints.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DistanceCritical: 100_000,
		DistanceVeryHigh: 384_400, // lunar distance
		DistanceHigh:     1_926_000,
		DistanceMedium:   7_704_000,
		DistanceLow:      77_040_000,

		DiameterCritical: 10.0,
		DiameterVeryHigh: 1.0,
		DiameterHigh:     0.14,
		DiameterMedium:   0.05,
		DiameterLow:      0.01,

		VelocityCritical: 200_000,
		VelocityVeryHigh: 100_000,
		VelocityHigh:     50_000,
		VelocityMedium:   25_000,
		VelocityLow:      10_000,

		TimeCritical: 7,
		TimeVeryHigh: 30,
		TimeHigh:     365,
		TimeMedium:   3650,
	}
}

// ThresholdOverrides carries the three externally configurable "high"
// breakpoints. Zero or negative values are ignored and the default kept.
type ThresholdOverrides struct {
	DistanceHighKm  float64
	DiameterHighKm  float64
	VelocityHighKmh float64
}

// ThresholdsWith merges overrides onto the defaults.
func ThresholdsWith(ov ThresholdOverrides) Thresholds {
	t := DefaultThresholds()
	if ov.DistanceHighKm > 0 {
		t.DistanceHigh = ov.DistanceHighKm
	}
	if ov.DiameterHighKm > 0 {
		t.DiameterHigh = ov.DiameterHighKm
	}
	if ov.VelocityHighKmh > 0 {
		t.VelocityHigh = ov.VelocityHighKmh
	}
	return t
}
