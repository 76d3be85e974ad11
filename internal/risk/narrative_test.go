package risk

import (
	"reflect"
	"testing"
)

func TestNarrative_AllTriggersInEvaluationOrder(t *testing.T) {
	days := 100.0
	c := narrativeContext{
		factorScores: map[string]float64{
			string(FactorSize):     18,
			string(FactorDistance): 20,
		},
		diameterKm:     fptr(1.5),
		missDistanceKm: fptr(300_000),
		velocityKmh:    fptr(150_000),
		hazardous:      true,
		daysToApproach: &days,
	}

	concerns, riskFactors, _ := narrativeFor(c)

	wantConcerns := []string{
		"Large asteroid with devastating potential",
		"Extremely close approach",
		"Very high impact velocity",
		"Approach is imminent",
	}
	if !reflect.DeepEqual(concerns, wantConcerns) {
		t.Errorf("concerns: got %v, want %v", concerns, wantConcerns)
	}

	wantRiskFactors := []string{
		"Classified as Potentially Hazardous by NASA",
		"Significant size",
		"Notable proximity to Earth",
	}
	if !reflect.DeepEqual(riskFactors, wantRiskFactors) {
		t.Errorf("risk factors: got %v, want %v", riskFactors, wantRiskFactors)
	}
}

func TestNarrative_MitigatingTriggers(t *testing.T) {
	days := 4000.0
	c := narrativeContext{
		factorScores:   map[string]float64{},
		diameterKm:     fptr(0.005),
		missDistanceKm: fptr(15_000_000),
		daysToApproach: &days,
	}

	_, _, mitigating := narrativeFor(c)
	want := []string{
		"Safe passing distance",
		"Very small size, minimal impact",
		"Approach in distant future",
	}
	if !reflect.DeepEqual(mitigating, want) {
		t.Errorf("mitigating: got %v, want %v", mitigating, want)
	}
}

func TestNarrative_StrictBoundaries(t *testing.T) {
	// Every trigger is strict: values exactly on the threshold fire nothing.
	days := 365.0
	c := narrativeContext{
		factorScores: map[string]float64{
			string(FactorSize):     15,
			string(FactorDistance): 15,
		},
		diameterKm:     fptr(1.0),
		missDistanceKm: fptr(400_000),
		velocityKmh:    fptr(100_000),
		daysToApproach: &days,
	}

	concerns, riskFactors, _ := narrativeFor(c)
	if len(concerns) != 0 {
		t.Errorf("concerns on boundaries: got %v, want none", concerns)
	}
	if len(riskFactors) != 0 {
		t.Errorf("risk factors on boundaries: got %v, want none", riskFactors)
	}

	days2 := 3650.0
	c2 := narrativeContext{
		factorScores:   map[string]float64{},
		diameterKm:     fptr(0.01),
		missDistanceKm: fptr(10_000_000),
		daysToApproach: &days2,
	}
	_, _, mitigating := narrativeFor(c2)
	if len(mitigating) != 0 {
		t.Errorf("mitigating on boundaries: got %v, want none", mitigating)
	}
}

func TestNarrative_MissingValuesFireNothing(t *testing.T) {
	concerns, riskFactors, mitigating := narrativeFor(narrativeContext{
		factorScores: map[string]float64{},
	})
	if len(concerns)+len(riskFactors)+len(mitigating) != 0 {
		t.Errorf("empty context fired rules: %v %v %v", concerns, riskFactors, mitigating)
	}
}
