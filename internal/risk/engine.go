package risk

import (
	"fmt"
	"log"
	"math"
	"time"

	"neo-tracker/internal/domain"
)

// Factor identifies a named contributor to the overall score.
type Factor string

const (
	FactorSize           Factor = "size"
	FactorDistance       Factor = "distance"
	FactorVelocity       Factor = "velocity"
	FactorTimeToApproach Factor = "time_to_approach"
	FactorClassification Factor = "nasa_classification"

	// Reserved for future scoring; declared but never scored.
	FactorOrbitUncertainty  Factor = "orbit_uncertainty"
	FactorImpactProbability Factor = "impact_probability"
)

// ScoredFactors lists the factors the engine actually scores, in
// evaluation order.
func ScoredFactors() []Factor {
	return []Factor{FactorSize, FactorDistance, FactorVelocity, FactorTimeToApproach, FactorClassification}
}

// Assumed geometric albedo for magnitude-based diameter estimation.
const assumedAlbedo = 0.25

// Input holds the attributes of a single object. Every field except the
// classification flags is optional; missing inputs degrade the affected
// factor score to zero instead of failing.
type Input struct {
	NeoID                  string     // optional, used in errors and logs
	DiameterKm             *float64   // average diameter, >= 0
	MissDistanceKm         *float64   // closest approach distance, >= 0
	VelocityKmh            *float64   // relative velocity, >= 0
	ApproachAt             *time.Time // close approach timestamp (UTC)
	IsPotentiallyHazardous bool
	IsSentryObject         bool
	AbsoluteMagnitude      *float64 // H, used only to estimate diameter
}

// Engine computes risk analyses. Stateless apart from its immutable
// thresholds and injected clock; safe for concurrent use.
type Engine struct {
	thresholds Thresholds
	now        func() time.Time
	logger     *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source for the time-to-approach factor.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger enables calculation logging.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a risk engine with the given thresholds.
func NewEngine(thresholds Thresholds, opts ...Option) *Engine {
	e := &Engine{
		thresholds: thresholds,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Calculate produces a complete risk analysis for one object.
// Deterministic given the input, the thresholds, and the clock.
func (e *Engine) Calculate(in Input) (analysis *domain.RiskAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			analysis = nil
			err = calcErr(in.NeoID, "scoring", fmt.Errorf("panic: %v", r))
		}
	}()

	if err := validateInput(in); err != nil {
		return nil, calcErr(in.NeoID, "validation", err)
	}

	// Estimate diameter from absolute magnitude when not measured.
	diameter := in.DiameterKm
	if diameter == nil && in.AbsoluteMagnitude != nil {
		d := DiameterFromMagnitude(*in.AbsoluteMagnitude)
		diameter = &d
	}

	sizeScore := e.sizeScore(diameter)
	distanceScore := e.distanceScore(in.MissDistanceKm)
	velocityScore := e.velocityScore(in.VelocityKmh)
	timeScore, daysToApproach := e.timeScore(in.ApproachAt)
	classScore := classificationScore(in.IsPotentiallyHazardous, in.IsSentryObject)

	factorScores := map[string]float64{
		string(FactorSize):           round1(sizeScore),
		string(FactorDistance):       round1(distanceScore),
		string(FactorVelocity):       round1(velocityScore),
		string(FactorTimeToApproach): round1(timeScore),
		string(FactorClassification): round1(classScore),
	}

	base := sizeScore + distanceScore + velocityScore + timeScore + classScore
	finalScore, confidence := e.applyModifiers(base, diameter, in.MissDistanceKm)

	level := levelFor(finalScore)
	concerns, riskFactors, mitigating := narrativeFor(narrativeContext{
		factorScores:   factorScores,
		diameterKm:     diameter,
		missDistanceKm: in.MissDistanceKm,
		velocityKmh:    in.VelocityKmh,
		hazardous:      in.IsPotentiallyHazardous,
		daysToApproach: daysToApproach,
	})
	priority, frequency := monitoringFor(level, daysToApproach)

	analysis = &domain.RiskAnalysis{
		OverallScore:         round1(finalScore),
		RiskLevel:            level,
		Confidence:           round2(confidence),
		FactorScores:         factorScores,
		PrimaryConcerns:      concerns,
		RiskFactors:          riskFactors,
		MitigatingFactors:    mitigating,
		TimeToApproachDays:   daysToApproach,
		ApproachDecade:       approachDecade(in.ApproachAt),
		MonitoringPriority:   priority,
		ObservationFrequency: frequency,
	}

	if e.logger != nil {
		e.logger.Printf("risk calculated neo_id=%s score=%.1f level=%s confidence=%.2f",
			in.NeoID, analysis.OverallScore, analysis.RiskLevel, analysis.Confidence)
	}

	return analysis, nil
}

// validateInput rejects logically invalid attribute values.
func validateInput(in Input) error {
	if in.DiameterKm != nil && (*in.DiameterKm < 0 || math.IsNaN(*in.DiameterKm)) {
		return fmt.Errorf("diameter must be >= 0, got %v", *in.DiameterKm)
	}
	if in.MissDistanceKm != nil && (*in.MissDistanceKm < 0 || math.IsNaN(*in.MissDistanceKm)) {
		return fmt.Errorf("miss distance must be >= 0, got %v", *in.MissDistanceKm)
	}
	if in.VelocityKmh != nil && (*in.VelocityKmh < 0 || math.IsNaN(*in.VelocityKmh)) {
		return fmt.Errorf("velocity must be >= 0, got %v", *in.VelocityKmh)
	}
	if in.AbsoluteMagnitude != nil && math.IsNaN(*in.AbsoluteMagnitude) {
		return fmt.Errorf("absolute magnitude must be a number")
	}
	return nil
}

// sizeScore maps diameter through 6 ordered bands, 0-25 points.
// Size drives the damage potential, so it carries the highest weight.
func (e *Engine) sizeScore(diameterKm *float64) float64 {
	if diameterKm == nil {
		return 0
	}
	d := *diameterKm
	switch {
	case d >= e.thresholds.DiameterCritical:
		return 25 // extinction-class event
	case d >= e.thresholds.DiameterVeryHigh:
		return 22 // regional devastation
	case d >= e.thresholds.DiameterHigh:
		return 18 // NASA PHO standard
	case d >= e.thresholds.DiameterMedium:
		return 12
	case d >= e.thresholds.DiameterLow:
		return 6
	default:
		return 2
	}
}

// distanceScore maps miss distance through 6 ordered bands, 0-25 points.
// Smaller distance scores higher.
func (e *Engine) distanceScore(missDistanceKm *float64) float64 {
	if missDistanceKm == nil {
		return 0
	}
	d := *missDistanceKm
	switch {
	case d <= e.thresholds.DistanceCritical:
		return 25
	case d <= e.thresholds.DistanceVeryHigh:
		return 20 // inside lunar orbit
	case d <= e.thresholds.DistanceHigh:
		return 15
	case d <= e.thresholds.DistanceMedium:
		return 10
	case d <= e.thresholds.DistanceLow:
		return 5
	default:
		return 1
	}
}

// velocityScore maps relative velocity through 6 ordered bands, 0-20 points.
func (e *Engine) velocityScore(velocityKmh *float64) float64 {
	if velocityKmh == nil {
		return 0
	}
	v := *velocityKmh
	switch {
	case v >= e.thresholds.VelocityCritical:
		return 20
	case v >= e.thresholds.VelocityVeryHigh:
		return 16
	case v >= e.thresholds.VelocityHigh:
		return 12
	case v >= e.thresholds.VelocityMedium:
		return 8
	case v >= e.thresholds.VelocityLow:
		return 4
	default:
		return 1
	}
}

// timeScore scores proximity in time, 0-15 points, and returns signed days
// to approach: negative for past approaches, fractional for future ones.
func (e *Engine) timeScore(approachAt *time.Time) (float64, *float64) {
	if approachAt == nil {
		return 0, nil
	}

	now := e.now()

	if approachAt.Before(now) {
		// Whole elapsed days, reported as a negative offset.
		daysPast := math.Floor(now.Sub(*approachAt).Hours() / 24)
		days := -daysPast
		if daysPast <= 30 {
			return 8, &days // recent approach
		}
		return 2, &days // historical approach
	}

	daysUntil := approachAt.Sub(now).Hours() / 24

	var score float64
	switch {
	case daysUntil <= e.thresholds.TimeCritical:
		score = 15
	case daysUntil <= e.thresholds.TimeVeryHigh:
		score = 12
	case daysUntil <= e.thresholds.TimeHigh:
		score = 8
	case daysUntil <= e.thresholds.TimeMedium:
		score = 4
	default:
		score = 1
	}
	return score, &daysUntil
}

// classificationScore scores the official NASA flags, 0-15 points.
// Sentry monitoring contributes 10, the PHO flag 5, additively capped.
func classificationScore(hazardous, sentry bool) float64 {
	score := 0.0
	if sentry {
		score += 10
	}
	if hazardous {
		score += 5
	}
	return math.Min(score, 15)
}

// applyModifiers applies the proximity-size combo bonus, computes
// confidence from data completeness, and clamps the score to [0,100].
func (e *Engine) applyModifiers(base float64, diameterKm, missDistanceKm *float64) (float64, float64) {
	score := base

	// A large object passing close is worse than either trait alone.
	if diameterKm != nil && *diameterKm > 0.5 &&
		missDistanceKm != nil && *missDistanceKm < 1_000_000 {
		score += 5
	}

	confidence := 1.0
	if diameterKm == nil {
		confidence -= 0.3
	}
	if missDistanceKm == nil {
		confidence -= 0.2
	}
	confidence = math.Max(0.1, confidence)

	return math.Max(0, math.Min(100, score)), confidence
}

// levelFor maps a score to its categorical level.
func levelFor(score float64) domain.RiskLevel {
	switch {
	case score >= 90:
		return domain.RiskCritical
	case score >= 70:
		return domain.RiskVeryHigh
	case score >= 50:
		return domain.RiskHigh
	case score >= 30:
		return domain.RiskMedium
	case score >= 10:
		return domain.RiskLow
	default:
		return domain.RiskVeryLow
	}
}

// monitoringFor derives the monitoring recommendation from the level,
// upgraded when a future approach is less than 30 days away.
func monitoringFor(level domain.RiskLevel, daysToApproach *float64) (domain.MonitoringPriority, domain.ObservationFrequency) {
	var priority domain.MonitoringPriority
	var frequency domain.ObservationFrequency

	switch level {
	case domain.RiskCritical, domain.RiskVeryHigh:
		priority, frequency = domain.PriorityCritical, domain.FreqDaily
	case domain.RiskHigh:
		priority, frequency = domain.PriorityHigh, domain.FreqWeekly
	case domain.RiskMedium:
		priority, frequency = domain.PriorityMedium, domain.FreqMonthly
	default:
		priority, frequency = domain.PriorityLow, domain.FreqYearly
	}

	if daysToApproach != nil && *daysToApproach > 0 && *daysToApproach < 30 {
		frequency = domain.FreqDaily
		if priority == domain.PriorityLow {
			priority = domain.PriorityMedium
		}
	}

	return priority, frequency
}

// approachDecade formats the approach year floored to its decade, e.g. "2020s".
func approachDecade(approachAt *time.Time) *string {
	if approachAt == nil {
		return nil
	}
	decade := fmt.Sprintf("%ds", (approachAt.Year()/10)*10)
	return &decade
}

// DiameterFromMagnitude estimates diameter in km from absolute magnitude H
// using the standard relation D = (1329/sqrt(albedo)) * 10^(-0.2*H),
// with the typical C-type albedo of 0.25.
func DiameterFromMagnitude(absoluteMagnitude float64) float64 {
	return (1329 / math.Sqrt(assumedAlbedo)) * math.Pow(10, -0.2*absoluteMagnitude)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
