package service

import (
	"github.com/Harshitk-cp/mastery/internal/domain"
)

// minEvidenceDenominator guards the Bayes step against degenerate inputs.
const minEvidenceDenominator = 1e-12

// Evidence applies Bayes' rule for a single right/wrong outcome and returns
// the posterior probability of the known state. When the outcome has
// (numerically) zero probability the prior is returned unchanged.
func Evidence(prior float64, correct bool, params domain.ParameterSet) float64 {
	l := domain.ClampProbability(prior)
	s, g := params.Slip, params.Guess

	var num, den float64
	if correct {
		num = l * (1 - s)
		den = num + (1-l)*g
	} else {
		num = l * s
		den = num + (1-l)*(1-g)
	}

	if den < minEvidenceDenominator {
		return l
	}
	return num / den
}

// Transition applies the learning step: any practice attempt has a pTransit
// chance of moving an unknown skill into the known state.
func Transition(posterior float64, params domain.ParameterSet) float64 {
	return posterior + (1-posterior)*params.PTransit
}

// Update runs the evidence step followed by the learning step.
func Update(prior float64, correct bool, params domain.ParameterSet) float64 {
	return domain.ClampProbability(Transition(Evidence(prior, correct, params), params))
}
