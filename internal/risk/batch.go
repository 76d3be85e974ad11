package risk

import "neo-tracker/internal/domain"

// BatchItem pairs one input with its result or error.
type BatchItem struct {
	Input    Input
	Analysis *domain.RiskAnalysis
	Err      error
}

// CalculateBatch scores each input independently. A failed calculation
// never aborts the batch: the item keeps its error and gets a clearly
// degraded placeholder analysis instead of a partial result.
func (e *Engine) CalculateBatch(inputs []Input) []BatchItem {
	items := make([]BatchItem, len(inputs))
	for i, in := range inputs {
		analysis, err := e.Calculate(in)
		if err != nil {
			analysis = DegradedAnalysis()
		}
		items[i] = BatchItem{Input: in, Analysis: analysis, Err: err}
	}
	return items
}

// DegradedAnalysis returns the placeholder stored for an object whose
// calculation failed: zero score, unknown level, zero confidence, and a
// single explanatory concern.
func DegradedAnalysis() *domain.RiskAnalysis {
	return &domain.RiskAnalysis{
		OverallScore:         0,
		RiskLevel:            domain.RiskUnknown,
		Confidence:           0,
		FactorScores:         map[string]float64{},
		PrimaryConcerns:      []string{"Risk calculation failed"},
		MonitoringPriority:   domain.PriorityLow,
		ObservationFrequency: domain.FreqYearly,
	}
}
