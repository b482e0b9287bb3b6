package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

const (
	ModelNameGaussian = "gaussian"
	ModelNameCosine   = "cosine"

	// fwhmFactor converts a full width at half maximum into a sigma.
	fwhmFactor = 2.3548200450309493
)

// GaussianModel fits a*exp(-(x-mu)^2/(2*sigma^2)) + b. Parameter order is
// [a, mu, sigma, b].
type GaussianModel struct{}

func (GaussianModel) Name() string   { return ModelNameGaussian }
func (GaussianModel) NumParams() int { return 4 }

func (GaussianModel) Eval(p []float64, x float64) float64 {
	d := x - p[1]
	return p[0]*math.Exp(-d*d/(2*p[2]*p[2])) + p[3]
}

// InitialGuesses proposes a peak and a dip interpretation of the data, with
// sigma taken from the full width at half maximum around the extremum.
func (m GaussianModel) InitialGuesses(x, y []float64) [][]float64 {
	minY, maxY := floats.Min(y), floats.Max(y)
	span := maxY - minY
	peakX := x[floats.MaxIdx(y)]
	dipX := x[floats.MinIdx(y)]

	peakSigma := fwhmSigma(x, y, minY+span/2, true)
	dipSigma := fwhmSigma(x, y, maxY-span/2, false)
	return [][]float64{
		{span, peakX, peakSigma, minY},
		{-span, dipX, dipSigma, maxY},
	}
}

func (GaussianModel) Boundary(x, y []float64) ([]float64, []float64) {
	minY, maxY := floats.Min(y), floats.Max(y)
	span := maxY - minY
	minX, maxX := floats.Min(x), floats.Max(x)
	width := maxX - minX
	lower := []float64{-2 * span, minX, width / float64(10*len(x)), minY - span}
	upper := []float64{2 * span, maxX, width, maxY + span}
	return lower, upper
}

// fwhmSigma measures the width of the region above (peak) or below (dip) the
// half level and converts it to a sigma estimate.
func fwhmSigma(x, y []float64, half float64, peak bool) float64 {
	first, last := -1, -1
	for i := range y {
		inside := y[i] >= half
		if !peak {
			inside = y[i] <= half
		}
		if inside {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 || last <= first {
		// flat or single-point extremum, fall back to a tenth of the range
		return (floats.Max(x) - floats.Min(x)) / 10
	}
	return (x[last] - x[first]) / fwhmFactor
}

// CosineModel fits a*cos(2*pi*f*x + phi) + b. Parameter order is
// [a, f, phi, b].
type CosineModel struct{}

func (CosineModel) Name() string   { return ModelNameCosine }
func (CosineModel) NumParams() int { return 4 }

func (CosineModel) Eval(p []float64, x float64) float64 {
	return p[0]*math.Cos(2*math.Pi*p[1]*x+p[2]) + p[3]
}

// InitialGuesses seeds the frequency from the dominant FFT bin and tries
// both phase conventions.
func (m CosineModel) InitialGuesses(x, y []float64) [][]float64 {
	amp := (floats.Max(y) - floats.Min(y)) / 2
	base := floats.Sum(y) / float64(len(y))
	freq := m.guessFrequency(x, y, base)
	return [][]float64{
		{amp, freq, 0, base},
		{amp, freq, math.Pi, base},
	}
}

func (CosineModel) Boundary(x, y []float64) ([]float64, []float64) {
	minY, maxY := floats.Min(y), floats.Max(y)
	span := maxY - minY
	dx := (floats.Max(x) - floats.Min(x)) / float64(len(x)-1)
	nyquist := 1 / (2 * dx)
	lower := []float64{-2 * span, 0, -math.Pi - 0.1, minY - span}
	upper := []float64{2 * span, nyquist, math.Pi + 0.1, maxY + span}
	return lower, upper
}

// guessFrequency picks the dominant non-DC FFT component, falling back to
// the spacing of local minima when the spectrum is degenerate.
func (CosineModel) guessFrequency(x, y []float64, base float64) float64 {
	n := len(y)
	dx := (floats.Max(x) - floats.Min(x)) / float64(n-1)
	centered := make([]float64, n)
	for i := range y {
		centered[i] = y[i] - base
	}
	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, centered)
	bestIdx, bestMag := 0, 0.0
	for i := 1; i < len(coeffs); i++ {
		mag := cmplxAbs(coeffs[i])
		if mag > bestMag {
			bestMag = mag
			bestIdx = i
		}
	}
	freq := fft.Freq(bestIdx) / dx
	if freq > 0 {
		return freq
	}
	return localMinimaFrequency(x, y, dx)
}

// localMinimaFrequency estimates the frequency from the average distance
// between strict local minima.
func localMinimaFrequency(x, y []float64, dx float64) float64 {
	var minima []float64
	for i := 1; i < len(y)-1; i++ {
		if y[i] < y[i-1] && y[i] < y[i+1] {
			minima = append(minima, x[i])
		}
	}
	if len(minima) < 2 {
		// no oscillation visible, take one period across the full window
		return 1 / (dx * float64(len(x)))
	}
	total := 0.0
	for i := 1; i < len(minima); i++ {
		total += minima[i] - minima[i-1]
	}
	return float64(len(minima)-1) / total
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
