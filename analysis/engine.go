package analysis

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// boundPenalty dominates any plausible residual so the minimizer retreats
// from out-of-bound regions.
const boundPenalty = 1e12

// Engine fits models to measured series. Each initial guess of the model is
// minimized independently and the converged fit with the lowest reduced
// chi-squared wins.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Run fits every series. A series whose attempts all fail maps to nil; the
// caller decides whether that aborts the experiment.
func (e *Engine) Run(x []float64, ySeries map[string][]float64, model Model) (map[string]*FitResult, error) {
	if len(x) <= model.NumParams() {
		return nil, fmt.Errorf("fit of %s needs more than %d points, got %d",
			model.Name(), model.NumParams(), len(x))
	}
	out := make(map[string]*FitResult, len(ySeries))
	for series, y := range ySeries {
		if len(y) != len(x) {
			return nil, fmt.Errorf("series %s has %d points for %d x values", series, len(y), len(x))
		}
		out[series] = e.fitSeries(x, y, model, series)
		if out[series] == nil {
			zap.L().Error(fmt.Sprintf("all fit attempts of model %s failed for series %s",
				model.Name(), series))
		}
	}
	return out, nil
}

func (e *Engine) fitSeries(x, y []float64, model Model, series string) *FitResult {
	lower, upper := model.Boundary(x, y)
	objective := func(params []float64) float64 {
		for i, p := range params {
			if p < lower[i] || p > upper[i] {
				return boundPenalty
			}
		}
		return sumSquares(x, y, model, params)
	}

	var best *FitResult
	for _, guess := range model.InitialGuesses(x, y) {
		problem := optimize.Problem{Func: objective}
		result, err := optimize.Minimize(problem, guess, nil, &optimize.NelderMead{})
		if err != nil {
			zap.L().Warn(fmt.Sprintf("fit attempt failed for series %s/reason:%s", series, err))
			continue
		}
		redChiSq := reducedChiSquared(x, y, model, result.X)
		if math.IsNaN(redChiSq) || math.IsInf(redChiSq, 0) || result.F >= boundPenalty {
			zap.L().Warn(fmt.Sprintf("fit attempt diverged for series %s with guess %v", series, guess))
			continue
		}
		if best == nil || redChiSq < best.ReducedChiSq {
			best = &FitResult{
				Params:       result.X,
				ReducedChiSq: redChiSq,
				Guess:        guess,
				Series:       series,
			}
		}
	}
	if best != nil {
		best.StdErrs = stdErrors(x, y, model, best.Params)
	}
	return best
}

func sumSquares(x, y []float64, model Model, params []float64) float64 {
	var sum float64
	for i := range x {
		d := model.Eval(params, x[i]) - y[i]
		sum += d * d
	}
	return sum
}

// reducedChiSquared is the residual sum over the degrees of freedom.
func reducedChiSquared(x, y []float64, model Model, params []float64) float64 {
	dof := len(x) - len(params)
	if dof <= 0 {
		return math.NaN()
	}
	return sumSquares(x, y, model, params) / float64(dof)
}

// stdErrors estimates parameter standard errors from the numerical Jacobian.
// A singular normal matrix yields no errors, not a failed fit.
func stdErrors(x, y []float64, model Model, params []float64) []float64 {
	n, k := len(x), len(params)
	jac := mat.NewDense(n, k, nil)
	for j := 0; j < k; j++ {
		h := 1e-8 * math.Max(1, math.Abs(params[j]))
		plus := append([]float64(nil), params...)
		minus := append([]float64(nil), params...)
		plus[j] += h
		minus[j] -= h
		for i := 0; i < n; i++ {
			jac.Set(i, j, (model.Eval(plus, x[i])-model.Eval(minus, x[i]))/(2*h))
		}
	}
	var normal mat.Dense
	normal.Mul(jac.T(), jac)
	var inv mat.Dense
	if err := inv.Inverse(&normal); err != nil {
		zap.L().Debug(fmt.Sprintf("normal matrix is singular/reason:%s", err))
		return nil
	}
	s2 := reducedChiSquared(x, y, model, params)
	errs := make([]float64, k)
	for j := 0; j < k; j++ {
		v := s2 * inv.At(j, j)
		if v < 0 {
			v = 0
		}
		errs[j] = math.Sqrt(v)
	}
	return errs
}
