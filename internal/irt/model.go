// Package irt implements the two-parameter logistic (2PL) item response
// model: response probabilities, Fisher information and ability estimation.
package irt

import "math"

// Params are the calibrated 2PL parameters of an item.
type Params struct {
	Discrimination float64 // a, strictly positive
	Difficulty     float64 // b
}

// Observation is one scored response to an item.
type Observation struct {
	Params
	Correct bool
}

// Probability returns P(correct | theta) = 1 / (1 + exp(-a(theta - b))).
func Probability(theta float64, p Params) float64 {
	return 1.0 / (1.0 + math.Exp(-p.Discrimination*(theta-p.Difficulty)))
}

// Information returns the Fisher information a²·P·(1-P) of an item at theta.
func Information(theta float64, p Params) float64 {
	prob := Probability(theta, p)
	return p.Discrimination * p.Discrimination * prob * (1 - prob)
}

// TestInformation sums item information over items at theta.
func TestInformation(theta float64, items []Params) float64 {
	var total float64
	for _, p := range items {
		total += Information(theta, p)
	}
	return total
}

// StandardError is the inverse square root of the test information at
// theta. It is +Inf when there is no information.
func StandardError(theta float64, items []Params) float64 {
	info := TestInformation(theta, items)
	if info <= 0 {
		return math.Inf(1)
	}
	return 1 / math.Sqrt(info)
}

func paramsOf(history []Observation) []Params {
	out := make([]Params, len(history))
	for i, o := range history {
		out[i] = o.Params
	}
	return out
}
