package risk

import "math"

// Joules per megaton of TNT.
const joulesPerMegaton = 4.184e15

// DefaultDensityKgM3 is the assumed bulk density for a typical asteroid.
const DefaultDensityKgM3 = 2000

// EstimateImpactEnergy computes the kinetic energy of a uniform sphere in
// megatons TNT. Velocity is in km/s. Inputs are not validated here;
// callers must reject negative values beforehand.
func EstimateImpactEnergy(diameterKm, velocityKms, densityKgM3 float64) float64 {
	radiusM := diameterKm * 1000 / 2
	volumeM3 := (4.0 / 3.0) * math.Pi * math.Pow(radiusM, 3)
	massKg := volumeM3 * densityKgM3

	velocityMs := velocityKms * 1000
	energyJoules := 0.5 * massKg * velocityMs * velocityMs

	return energyJoules / joulesPerMegaton
}
