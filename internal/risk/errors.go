package risk

import "fmt"

// CalculationError reports an unexpected internal failure during scoring.
// Missing optional inputs are not errors; factors degrade to zero instead.
type CalculationError struct {
	NeoID  string // subject object, if known
	Stage  string // which step failed
	Reason error  // underlying cause
}

// Error implements the error interface.
func (e *CalculationError) Error() string {
	if e.NeoID != "" {
		return fmt.Sprintf("risk calculation failed for %s at %s: %v", e.NeoID, e.Stage, e.Reason)
	}
	return fmt.Sprintf("risk calculation failed at %s: %v", e.Stage, e.Reason)
}

// Unwrap returns the underlying cause.
func (e *CalculationError) Unwrap() error {
	return e.Reason
}

func calcErr(neoID, stage string, reason error) *CalculationError {
	return &CalculationError{NeoID: neoID, Stage: stage, Reason: reason}
}
