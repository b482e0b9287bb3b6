//go:build unit
// +build unit

package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oqtopus-team/calibration-engine/common"
	"github.com/oqtopus-team/calibration-engine/core"
)

func cosineSamples(a, f, phi, b float64, x []float64) []float64 {
	y := make([]float64, len(x))
	for i, xi := range x {
		y[i] = a*math.Cos(2*math.Pi*f*xi+phi) + b
	}
	return y
}

func TestCosineFitRecoversParameters(t *testing.T) {
	x := common.Linspace(0, 50, 101)
	y := cosineSamples(2, 0.1, 0, 0.5, x)

	engine := NewEngine()
	results, err := engine.Run(x, map[string][]float64{"default": y}, CosineModel{})
	assert.Nil(t, err)

	result := results["default"]
	assert.NotNil(t, result)
	assert.True(t, core.AlmostEqual(math.Abs(result.Params[0]), 2, 1e-3),
		"amp %g", result.Params[0])
	assert.True(t, core.AlmostEqual(result.Params[1], 0.1, 1e-4),
		"freq %g", result.Params[1])
	assert.True(t, core.AlmostEqual(result.Params[3], 0.5, 1e-3),
		"base %g", result.Params[3])
	assert.True(t, result.ReducedChiSq < 1e-6)
}

func TestGaussianFitRecoversParameters(t *testing.T) {
	x := common.Linspace(4.9e9, 5.1e9, 81)
	y := make([]float64, len(x))
	for i, xi := range x {
		d := xi - 5.0e9
		y[i] = 0.8*math.Exp(-d*d/(2*2e7*2e7)) + 0.1
	}

	engine := NewEngine()
	results, err := engine.Run(x, map[string][]float64{"default": y}, GaussianModel{})
	assert.Nil(t, err)

	result := results["default"]
	assert.NotNil(t, result)
	assert.True(t, core.AlmostEqual(result.Params[1], 5.0e9, 1e6),
		"center %g", result.Params[1])
	assert.True(t, core.AlmostEqual(result.Params[0], 0.8, 1e-2),
		"amp %g", result.Params[0])
}

func TestFitIdempotent(t *testing.T) {
	x := common.Linspace(0, 50, 51)
	y := cosineSamples(1, 0.05, 0, 0, x)

	engine := NewEngine()
	first, err := engine.Run(x, map[string][]float64{"default": y}, CosineModel{})
	assert.Nil(t, err)
	second, err := engine.Run(x, map[string][]float64{"default": y}, CosineModel{})
	assert.Nil(t, err)

	assert.Equal(t, first["default"].Params, second["default"].Params)
	assert.Equal(t, first["default"].ReducedChiSq, second["default"].ReducedChiSq)
}

func TestRunValidatesInput(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Run([]float64{1, 2, 3}, map[string][]float64{"default": {1, 2, 3}}, CosineModel{})
	assert.EqualError(t, err, "fit of cosine needs more than 4 points, got 3")

	x := common.Linspace(0, 1, 10)
	_, err = engine.Run(x, map[string][]float64{"default": {1, 2}}, CosineModel{})
	assert.EqualError(t, err, "series default has 2 points for 10 x values")
}

func TestPeriodFraction(t *testing.T) {
	result := &FitResult{Params: []float64{2, 0.1, 0, 0.5}}

	got, err := PeriodFraction(0.5, result, CosineModel{})
	assert.Nil(t, err)
	assert.True(t, core.AlmostEqual(got, 5, 1e-12))

	_, err = PeriodFraction(0.5, result, GaussianModel{})
	assert.EqualError(t, err, "model gaussian has no period")
	assert.True(t, core.IsKind(err, core.ErrNotSupported))

	_, err = PeriodFraction(0.5, nil, CosineModel{})
	assert.EqualError(t, err, "period of a failed fit is undefined")

	_, err = PeriodFraction(0.5, &FitResult{Params: []float64{1, 0, 0, 0}}, CosineModel{})
	assert.EqualError(t, err, "fitted frequency is zero")
}

func TestPeriodAngle(t *testing.T) {
	result := &FitResult{Params: []float64{2, 0.1, 0, 0.5}}

	// pi radians is half a period
	got, err := PeriodAngle(math.Pi, result, CosineModel{})
	assert.Nil(t, err)
	assert.True(t, core.AlmostEqual(got, 5, 1e-12))

	_, err = PeriodAngle(math.Pi, result, GaussianModel{})
	assert.EqualError(t, err, "model gaussian has no period")
}

func TestLocalMinimaFallback(t *testing.T) {
	// interior dips at x=10, 20, 30
	x := common.Linspace(0, 40, 41)
	y := cosineSamples(1, 0.1, math.Pi, 0, x)

	got := localMinimaFrequency(x, y, 1)
	assert.True(t, core.AlmostEqual(got, 0.1, 1e-6), "freq %g", got)
}

func TestCreateDataVector(t *testing.T) {
	md := func(amp float64, series string) *core.Metadata {
		return &core.Metadata{
			Name:    "rough_amplitude",
			XValues: map[string]float64{"amp": amp},
			Series:  series,
		}
	}
	outcomes := []Outcome{
		{Metadata: md(0.3, ""), Y: 0.9},
		{Metadata: md(0.1, ""), Y: 0.1},
		{Metadata: md(0.2, ""), Y: 0.5},
		{Metadata: md(0.1, "ref"), Y: 0.0},
		{Metadata: md(0.2, "ref"), Y: 0.4},
		{Metadata: md(0.3, "ref"), Y: 0.8},
	}

	dv, err := CreateDataVector("amp", outcomes)
	assert.Nil(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, dv.X["default"])
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, dv.Y["default"])
	assert.Equal(t, []float64{0.0, 0.4, 0.8}, dv.Y["ref"])

	x, ySeries, err := dv.Aligned()
	assert.Nil(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, x)
	assert.Equal(t, 2, len(ySeries))
}

func TestCreateDataVectorErrors(t *testing.T) {
	_, err := CreateDataVector("amp", nil)
	assert.EqualError(t, err, "no outcomes to vectorize for \"amp\"")

	outcomes := []Outcome{
		{Metadata: &core.Metadata{Name: "x", XValues: map[string]float64{"freq": 1}}},
	}
	_, err = CreateDataVector("amp", outcomes)
	assert.EqualError(t, err, "outcome of x has no x value \"amp\"")
}

func TestAlignedRejectsMismatchedGrids(t *testing.T) {
	dv := &DataVector{
		XKey: "amp",
		X: map[string][]float64{
			"a": {0.1, 0.2},
			"b": {0.1, 0.3},
		},
		Y: map[string][]float64{
			"a": {1, 2},
			"b": {3, 4},
		},
	}
	_, _, err := dv.Aligned()
	assert.NotNil(t, err)
}
