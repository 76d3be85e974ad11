package domain

import "strings"

// RiskLevel is the categorical risk level derived from the overall score.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
	RiskCritical RiskLevel = "critical"

	// RiskUnknown marks a degraded placeholder produced when a batch item
	// fails to score. Never produced by a successful calculation.
	RiskUnknown RiskLevel = "unknown"
)

// String returns the string representation of RiskLevel.
func (l RiskLevel) String() string {
	return string(l)
}

// IsValid checks if the level is a value a successful calculation can produce.
func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskVeryLow, RiskLow, RiskMedium, RiskHigh, RiskVeryHigh, RiskCritical:
		return true
	}
	return false
}

// ParseRiskLevel converts a string to a RiskLevel, case-insensitively.
// Returns the empty level when the value is not one a successful
// calculation can produce.
func ParseRiskLevel(s string) RiskLevel {
	level := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if level.IsValid() {
		return level
	}
	return ""
}

// MonitoringPriority is the recommended monitoring priority.
type MonitoringPriority string

const (
	PriorityLow      MonitoringPriority = "low"
	PriorityMedium   MonitoringPriority = "medium"
	PriorityHigh     MonitoringPriority = "high"
	PriorityCritical MonitoringPriority = "critical"
)

// String returns the string representation of MonitoringPriority.
func (p MonitoringPriority) String() string {
	return string(p)
}

// ObservationFrequency is the recommended observation cadence.
type ObservationFrequency string

const (
	FreqYearly  ObservationFrequency = "yearly"
	FreqMonthly ObservationFrequency = "monthly"
	FreqWeekly  ObservationFrequency = "weekly"
	FreqDaily   ObservationFrequency = "daily"
)

// String returns the string representation of ObservationFrequency.
func (f ObservationFrequency) String() string {
	return string(f)
}

// RiskAnalysis is the complete output of a risk calculation. Immutable
// once constructed; persisted as a JSON blob plus two scalar columns.
type RiskAnalysis struct {
	OverallScore float64            `json:"overall_score"` // 0-100
	RiskLevel    RiskLevel          `json:"risk_level"`
	Confidence   float64            `json:"confidence"` // 0.1-1.0 (0 for degraded placeholders)
	FactorScores map[string]float64 `json:"factor_scores"`

	PrimaryConcerns   []string `json:"primary_concerns"`
	RiskFactors       []string `json:"risk_factors"`
	MitigatingFactors []string `json:"mitigating_factors"`

	// Signed days until approach; negative for past approaches.
	TimeToApproachDays *float64 `json:"time_to_approach_days"`
	ApproachDecade     *string  `json:"approach_decade"`

	MonitoringPriority   MonitoringPriority   `json:"monitoring_priority"`
	ObservationFrequency ObservationFrequency `json:"observation_frequency"`
}
