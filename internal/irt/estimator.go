package irt

import (
	"errors"
	"math"
)

// ErrNonConvergent is reported by Estimate.Err when Newton-Raphson hit the
// iteration cap. The last iterate is still usable.
var ErrNonConvergent = errors.New("ability estimate did not converge")

// minInformation is the denominator below which a Newton step is replaced by
// a fixed step in the direction of the score.
const minInformation = 1e-9

type EstimatorConfig struct {
	PriorMean     float64
	PriorVariance float64
	Tolerance     float64
	MaxIterations int
	MaxStep       float64
	ThetaMin      float64
	ThetaMax      float64
}

func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		PriorMean:     0.0,
		PriorVariance: 1.0,
		Tolerance:     1e-4,
		MaxIterations: 25,
		MaxStep:       1.0,
		ThetaMin:      -6.0,
		ThetaMax:      6.0,
	}
}

// Estimate is the result of one estimation run.
type Estimate struct {
	Theta         float64 `json:"theta"`
	StandardError float64 `json:"standard_error"`
	Iterations    int     `json:"iterations"`
	Converged     bool    `json:"converged"`
	UsedPrior     bool    `json:"used_prior"`
}

// Err returns ErrNonConvergent for an estimate that stopped at the cap.
func (e Estimate) Err() error {
	if !e.Converged {
		return ErrNonConvergent
	}
	return nil
}

// Estimator computes maximum-likelihood ability estimates. Histories whose
// likelihood is monotone (all correct or all incorrect) are regularised
// with a normal prior, which gives the Bayes modal estimate instead.
type Estimator struct {
	cfg EstimatorConfig
}

func NewEstimator(cfg EstimatorConfig) *Estimator {
	def := DefaultEstimatorConfig()
	if cfg.PriorVariance <= 0 {
		cfg.PriorVariance = def.PriorVariance
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = def.MaxStep
	}
	if cfg.ThetaMin >= cfg.ThetaMax {
		cfg.ThetaMin, cfg.ThetaMax = def.ThetaMin, def.ThetaMax
	}
	return &Estimator{cfg: cfg}
}

func (e *Estimator) Config() EstimatorConfig {
	return e.cfg
}

// Estimate returns theta and SE(theta) for the given response history. It
// has no side effects.
func (e *Estimator) Estimate(history []Observation) Estimate {
	if len(history) == 0 {
		return Estimate{
			Theta:         e.cfg.PriorMean,
			StandardError: math.Sqrt(e.cfg.PriorVariance),
			Converged:     true,
			UsedPrior:     true,
		}
	}

	usePrior := Degenerate(history)
	theta := e.clamp(e.cfg.PriorMean)
	result := Estimate{UsedPrior: usePrior}

	for result.Iterations < e.cfg.MaxIterations {
		result.Iterations++

		num, den := score(theta, history)
		if usePrior {
			num -= (theta - e.cfg.PriorMean) / e.cfg.PriorVariance
			den += 1 / e.cfg.PriorVariance
		}

		var step float64
		if den < minInformation {
			step = math.Copysign(e.cfg.MaxStep, num)
		} else {
			step = num / den
		}
		if math.IsNaN(step) {
			break
		}
		step = math.Max(-e.cfg.MaxStep, math.Min(e.cfg.MaxStep, step))

		next := e.clamp(theta + step)
		delta := math.Abs(next - theta)
		theta = next
		if delta < e.cfg.Tolerance {
			result.Converged = true
			break
		}
	}

	result.Theta = theta
	result.StandardError = StandardError(theta, paramsOf(history))
	return result
}

// Degenerate reports whether every response in history has the same
// outcome, in which case the likelihood has no finite maximum.
func Degenerate(history []Observation) bool {
	if len(history) == 0 {
		return true
	}
	first := history[0].Correct
	for _, o := range history[1:] {
		if o.Correct != first {
			return false
		}
	}
	return true
}

// score returns the first derivative of the log-likelihood and the test
// information at theta.
func score(theta float64, history []Observation) (num, den float64) {
	for _, o := range history {
		p := Probability(theta, o.Params)
		u := 0.0
		if o.Correct {
			u = 1.0
		}
		num += o.Discrimination * (u - p)
		den += o.Discrimination * o.Discrimination * p * (1 - p)
	}
	return num, den
}

func (e *Estimator) clamp(theta float64) float64 {
	return math.Max(e.cfg.ThetaMin, math.Min(e.cfg.ThetaMax, theta))
}
