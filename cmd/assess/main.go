// Package main provides an offline risk assessment tool: it scores a
// single object described by flags, or a JSON batch file of objects,
// without touching any storage backend.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"neo-tracker/internal/domain"
	"neo-tracker/internal/risk"
)

// batchInput is one object in a JSON batch file.
type batchInput struct {
	NeoID             string   `json:"neo_id"`
	Name              string   `json:"name"`
	DiameterKm        *float64 `json:"diameter_km"`
	AbsoluteMagnitude *float64 `json:"absolute_magnitude_h"`
	MissDistanceKm    *float64 `json:"miss_distance_km"`
	VelocityKmh       *float64 `json:"velocity_kmh"`
	ApproachAt        *string  `json:"approach_at"` // RFC 3339 or YYYY-MM-DD
	Hazardous         bool     `json:"is_potentially_hazardous"`
	Sentry            bool     `json:"is_sentry_object"`
}

func main() {
	neoID := flag.String("neo-id", "", "Object identifier used in output")
	diameterKm := flag.Float64("diameter-km", -1, "Average diameter in km")
	magnitude := flag.Float64("magnitude", -1, "Absolute magnitude H (used when diameter is unknown)")
	missKm := flag.Float64("miss-km", -1, "Closest approach distance in km")
	velocityKmh := flag.Float64("velocity-kmh", -1, "Relative velocity in km/h")
	approach := flag.String("approach", "", "Close approach time (RFC 3339 or YYYY-MM-DD)")
	hazardous := flag.Bool("hazardous", false, "NASA potentially hazardous classification")
	sentry := flag.Bool("sentry", false, "Object is on the Sentry monitoring list")
	file := flag.String("file", "", "JSON batch file of objects; overrides the single-object flags")
	energy := flag.Bool("energy", false, "Also print an impact energy estimate")
	density := flag.Float64("density", risk.DefaultDensityKgM3, "Assumed bulk density in kg/m3 for the energy estimate")
	distanceHigh := flag.Float64("distance-high-km", 0, "Override the high-risk miss distance breakpoint (km)")
	diameterHigh := flag.Float64("diameter-high-km", 0, "Override the high-risk diameter breakpoint (km)")
	velocityHigh := flag.Float64("velocity-high-kmh", 0, "Override the high-risk velocity breakpoint (km/h)")

	flag.Parse()

	logger := log.New(os.Stderr, "[assess] ", log.LstdFlags)
	engine := risk.NewEngine(risk.ThresholdsWith(risk.ThresholdOverrides{
		DistanceHighKm:  *distanceHigh,
		DiameterHighKm:  *diameterHigh,
		VelocityHighKmh: *velocityHigh,
	}))

	if *file != "" {
		if err := assessBatch(engine, *file, *energy, *density); err != nil {
			logger.Fatalf("Batch assessment failed: %v", err)
		}
		return
	}

	in := risk.Input{
		NeoID:                  *neoID,
		DiameterKm:             optionalFloat(*diameterKm),
		AbsoluteMagnitude:      optionalFloat(*magnitude),
		MissDistanceKm:         optionalFloat(*missKm),
		VelocityKmh:            optionalFloat(*velocityKmh),
		IsPotentiallyHazardous: *hazardous,
		IsSentryObject:         *sentry,
	}
	if *approach != "" {
		at, err := parseApproach(*approach)
		if err != nil {
			logger.Fatalf("Invalid --approach: %v", err)
		}
		in.ApproachAt = &at
	}

	analysis, err := engine.Calculate(in)
	if err != nil {
		logger.Fatalf("Calculation failed: %v", err)
	}
	printAnalysis(*neoID, in, analysis, *energy, *density)
}

// assessBatch scores every object in a JSON file and prints each result.
// Failed items are reported but never abort the batch.
func assessBatch(engine *risk.Engine, path string, energy bool, density float64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var objects []batchInput
	if err := json.Unmarshal(data, &objects); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if len(objects) == 0 {
		return fmt.Errorf("%s contains no objects", path)
	}

	inputs := make([]risk.Input, len(objects))
	for i, obj := range objects {
		inputs[i] = risk.Input{
			NeoID:                  obj.NeoID,
			DiameterKm:             obj.DiameterKm,
			AbsoluteMagnitude:      obj.AbsoluteMagnitude,
			MissDistanceKm:         obj.MissDistanceKm,
			VelocityKmh:            obj.VelocityKmh,
			IsPotentiallyHazardous: obj.Hazardous,
			IsSentryObject:         obj.Sentry,
		}
		if obj.ApproachAt != nil {
			at, err := parseApproach(*obj.ApproachAt)
			if err != nil {
				return fmt.Errorf("object %d (%s): %w", i, obj.NeoID, err)
			}
			inputs[i].ApproachAt = &at
		}
	}

	failed := 0
	for i, item := range engine.CalculateBatch(inputs) {
		label := objects[i].NeoID
		if objects[i].Name != "" {
			label = fmt.Sprintf("%s (%s)", objects[i].Name, objects[i].NeoID)
		}
		if item.Err != nil {
			failed++
			fmt.Printf("=== %s: FAILED: %v\n\n", label, item.Err)
			continue
		}
		printAnalysis(label, item.Input, item.Analysis, energy, density)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d objects failed", failed, len(objects))
	}
	return nil
}

// printAnalysis renders one analysis in a readable fixed layout.
func printAnalysis(label string, in risk.Input, a *domain.RiskAnalysis, energy bool, density float64) {
	if label == "" {
		label = "object"
	}
	fmt.Printf("=== %s\n", label)
	fmt.Printf("Overall score:   %.1f / 100 (%s)\n", a.OverallScore, a.RiskLevel)
	fmt.Printf("Confidence:      %.2f\n", a.Confidence)
	fmt.Printf("Monitoring:      %s priority, %s observation\n", a.MonitoringPriority, a.ObservationFrequency)
	if a.TimeToApproachDays != nil {
		fmt.Printf("Approach:        %.1f days away\n", *a.TimeToApproachDays)
	}

	fmt.Println("Factors:")
	for _, factor := range risk.ScoredFactors() {
		fmt.Printf("  %-20s %5.1f\n", string(factor), a.FactorScores[string(factor)])
	}

	printList("Primary concerns", a.PrimaryConcerns)
	printList("Risk factors", a.RiskFactors)
	printList("Mitigating", a.MitigatingFactors)

	if energy {
		if e, ok := impactEnergy(in, density); ok {
			fmt.Printf("Impact energy:   %.2f Mt TNT (density %.0f kg/m3)\n", e, density)
		} else {
			fmt.Println("Impact energy:   unavailable (needs diameter or magnitude, and velocity)")
		}
	}
	fmt.Println()
}

func printList(header string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s:\n", header)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

// impactEnergy derives the inputs the estimator needs. Diameter falls
// back to the magnitude estimate the scoring engine uses.
func impactEnergy(in risk.Input, density float64) (float64, bool) {
	diameter := in.DiameterKm
	if diameter == nil && in.AbsoluteMagnitude != nil {
		d := risk.DiameterFromMagnitude(*in.AbsoluteMagnitude)
		diameter = &d
	}
	if diameter == nil || in.VelocityKmh == nil || *diameter <= 0 || *in.VelocityKmh <= 0 {
		return 0, false
	}
	return risk.EstimateImpactEnergy(*diameter, *in.VelocityKmh/3600, density), true
}

func parseApproach(v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, want RFC 3339 or YYYY-MM-DD", v)
}

// optionalFloat treats negative flag values as unset.
func optionalFloat(v float64) *float64 {
	if v < 0 {
		return nil
	}
	return &v
}
