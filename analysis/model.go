package analysis

import (
	"fmt"
	"math"

	"github.com/oqtopus-team/calibration-engine/core"
)

// Model is one parametric fit function together with its guess and bound
// strategies.
type Model interface {
	Name() string
	NumParams() int
	Eval(params []float64, x float64) float64
	// InitialGuesses proposes starting points from the data. Every guess is
	// attempted and the best converged fit wins.
	InitialGuesses(x, y []float64) [][]float64
	// Boundary returns per-parameter lower and upper limits.
	Boundary(x, y []float64) (lower, upper []float64)
}

// FitResult is the outcome of fitting one data series.
type FitResult struct {
	Params       []float64
	StdErrs      []float64
	ReducedChiSq float64
	Guess        []float64
	Series       string
}

func (r *FitResult) String() string {
	return fmt.Sprintf("fit[%s] params=%v red_chisq=%g", r.Series, r.Params, r.ReducedChiSq)
}

// PeriodFraction converts a fitted oscillation into the x distance covering
// a fraction of one period. Only oscillating models have a period.
func PeriodFraction(fraction float64, result *FitResult, model Model) (float64, error) {
	if model.Name() != ModelNameCosine {
		return 0, core.NewNotSupportedError(
			fmt.Sprintf("model %s has no period", model.Name()))
	}
	if result == nil {
		return 0, core.NewNotSupportedError("period of a failed fit is undefined")
	}
	freq := result.Params[1]
	if freq == 0 {
		return 0, core.NewNotSupportedError("fitted frequency is zero")
	}
	return fraction / freq, nil
}

// PeriodAngle is PeriodFraction with the fraction given as a rotation angle
// in radians. A full period is 2*pi.
func PeriodAngle(angle float64, result *FitResult, model Model) (float64, error) {
	return PeriodFraction(angle/(2*math.Pi), result, model)
}
