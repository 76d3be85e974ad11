package risk

// narrativeContext carries the values the narrative rules inspect.
type narrativeContext struct {
	factorScores   map[string]float64
	diameterKm     *float64
	missDistanceKm *float64
	velocityKmh    *float64
	hazardous      bool
	daysToApproach *float64
}

// narrativeRule pairs a trigger predicate with its static message.
// Rules are evaluated in order; each list is independent of the others.
type narrativeRule struct {
	when    func(c narrativeContext) bool
	message string
}

var primaryConcernRules = []narrativeRule{
	{
		when:    func(c narrativeContext) bool { return c.diameterKm != nil && *c.diameterKm > 1.0 },
		message: "Large asteroid with devastating potential",
	},
	{
		when:    func(c narrativeContext) bool { return c.missDistanceKm != nil && *c.missDistanceKm < 400_000 },
		message: "Extremely close approach",
	},
	{
		when:    func(c narrativeContext) bool { return c.velocityKmh != nil && *c.velocityKmh > 100_000 },
		message: "Very high impact velocity",
	},
	{
		when: func(c narrativeContext) bool {
			return c.daysToApproach != nil && *c.daysToApproach > 0 && *c.daysToApproach < 365
		},
		message: "Approach is imminent",
	},
}

var riskFactorRules = []narrativeRule{
	{
		when:    func(c narrativeContext) bool { return c.hazardous },
		message: "Classified as Potentially Hazardous by NASA",
	},
	{
		when:    func(c narrativeContext) bool { return c.factorScores[string(FactorSize)] > 15 },
		message: "Significant size",
	},
	{
		when:    func(c narrativeContext) bool { return c.factorScores[string(FactorDistance)] > 15 },
		message: "Notable proximity to Earth",
	},
}

var mitigatingFactorRules = []narrativeRule{
	{
		when:    func(c narrativeContext) bool { return c.missDistanceKm != nil && *c.missDistanceKm > 10_000_000 },
		message: "Safe passing distance",
	},
	{
		when:    func(c narrativeContext) bool { return c.diameterKm != nil && *c.diameterKm < 0.01 },
		message: "Very small size, minimal impact",
	},
	{
		when:    func(c narrativeContext) bool { return c.daysToApproach != nil && *c.daysToApproach > 3650 },
		message: "Approach in distant future",
	},
}

// narrativeFor evaluates the three rule lists against the context.
func narrativeFor(c narrativeContext) (concerns, riskFactors, mitigating []string) {
	return evalRules(primaryConcernRules, c),
		evalRules(riskFactorRules, c),
		evalRules(mitigatingFactorRules, c)
}

func evalRules(rules []narrativeRule, c narrativeContext) []string {
	var out []string
	for _, r := range rules {
		if r.when(c) {
			out = append(out, r.message)
		}
	}
	return out
}
