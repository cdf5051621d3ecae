package detect

// maxScore is the saturation ceiling for relevance scores.
const maxScore = 100

// Scorer computes a bounded relevance score over a text blob. It is a pure
// function of the text and the registry: no state, no clock, no I/O.
type Scorer struct {
	registry *Registry
}

// NewScorer builds a scorer over the shared registry.
func NewScorer(reg *Registry) *Scorer {
	return &Scorer{registry: reg}
}

// Score evaluates the four signal axes (funding keywords, stage, location,
// industry) and sums the weight of the first matching rule per axis.
// Within an axis later rules are mutually exclusive with earlier ones
// (UK > EU > ME, Fintech > SaaS > Tech, one stage at most). The result is
// clamped to [0, 100]. Any input is safe, including the empty string.
func (s *Scorer) Score(text string) int {
	score := 0

	axes := [][]Rule{
		s.registry.funding,
		s.registry.stages,
		s.registry.locations,
		s.registry.industries,
	}
	for _, axis := range axes {
		if rule, ok := firstMatch(axis, text); ok {
			score += rule.Weight
		}
	}

	if score > maxScore {
		score = maxScore
	}
	return score
}
