package risk

import (
	"math"
	"testing"
)

func TestEstimateImpactEnergy_KilometerObject(t *testing.T) {
	// 1 km sphere at 20 km/s, density 2000 kg/m3:
	// r=500m, V=(4/3)*pi*500^3 ~ 5.236e8 m3, m ~ 1.047e12 kg,
	// E = 0.5*m*(20000)^2 ~ 2.094e20 J ~ 5.0e4 megatons.
	got := EstimateImpactEnergy(1.0, 20, DefaultDensityKgM3)

	want := 0.5 * (4.0 / 3.0) * math.Pi * math.Pow(500, 3) * 2000 * math.Pow(20000, 2) / 4.184e15
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("energy: got %.2f, want %.2f", got, want)
	}
	if got < 49_000 || got > 51_000 {
		t.Errorf("energy: got %.0f megatons, want ~50,000", got)
	}
}

func TestEstimateImpactEnergy_Scaling(t *testing.T) {
	base := EstimateImpactEnergy(0.1, 20, DefaultDensityKgM3)

	// Energy scales with the cube of diameter.
	doubled := EstimateImpactEnergy(0.2, 20, DefaultDensityKgM3)
	if ratio := doubled / base; math.Abs(ratio-8) > 1e-9 {
		t.Errorf("diameter scaling: got ratio %.4f, want 8", ratio)
	}

	// And with the square of velocity.
	faster := EstimateImpactEnergy(0.1, 40, DefaultDensityKgM3)
	if ratio := faster / base; math.Abs(ratio-4) > 1e-9 {
		t.Errorf("velocity scaling: got ratio %.4f, want 4", ratio)
	}

	// And linearly with density.
	denser := EstimateImpactEnergy(0.1, 20, 2*DefaultDensityKgM3)
	if ratio := denser / base; math.Abs(ratio-2) > 1e-9 {
		t.Errorf("density scaling: got ratio %.4f, want 2", ratio)
	}
}

func TestEstimateImpactEnergy_Zero(t *testing.T) {
	if got := EstimateImpactEnergy(0, 20, DefaultDensityKgM3); got != 0 {
		t.Errorf("zero diameter: got %v, want 0", got)
	}
	if got := EstimateImpactEnergy(1, 0, DefaultDensityKgM3); got != 0 {
		t.Errorf("zero velocity: got %v, want 0", got)
	}
}
