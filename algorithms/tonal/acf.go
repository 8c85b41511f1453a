package tonal

import (
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/audio"
	"gonum.org/v1/gonum/dsp/fourier"
)

// defaultACFThreshold is the lowest normalized autocorrelation peak accepted as periodic
const defaultACFThreshold = 0.3

// acf implements autocorrelation-based pitch detection. The autocorrelation
// is computed as the inverse transform of the power spectrum.
type acf struct {
	params    Params
	threshold float64

	// plan is rebuilt when the padded size changes
	plan   *fourier.FFT
	padded []float64
}

func newACF(params Params) *acf {
	return &acf{
		params:    params,
		threshold: params.thresholdOr(defaultACFThreshold),
	}
}

// autocorrelation returns the biased autocorrelation of x, scaled by the
// transform length
func (a *acf) autocorrelation(x []float64) []float64 {
	size := common.NextPowerOfTwo(2 * len(x))
	if a.plan == nil || a.plan.Len() != size {
		a.plan = fourier.NewFFT(size)
		a.padded = make([]float64, size)
	}

	copy(a.padded, x)
	clear(a.padded[len(x):])

	coeff := a.plan.Coefficients(nil, a.padded)
	for i, c := range coeff {
		re, im := real(c), imag(c)
		coeff[i] = complex(re*re+im*im, 0)
	}

	return a.plan.Sequence(nil, coeff)
}

// Estimate implements Estimator
func (a *acf) Estimate(frame audio.Frame) Estimate {
	if !analyzable(frame, a.params) {
		return unvoiced(frame)
	}

	x := frame.Samples
	r := a.autocorrelation(x)
	r0 := r[0]
	if r0 <= 0 || math.IsNaN(r0) {
		return unvoiced(frame)
	}

	maxTau := min(len(x)/2, a.params.maxLag()+1)

	// Skip the lobe around lag zero
	tau := 1
	for tau < maxTau && r[tau] > 0 {
		tau++
	}
	if tau >= maxTau {
		return unvoiced(frame)
	}

	// Highest local maximum in the remaining lag range
	best := -1
	for t := max(tau, a.params.minLag()); t < maxTau; t++ {
		if r[t] > r[t-1] && r[t] >= r[t+1] {
			if best < 0 || r[t] > r[best] {
				best = t
			}
		}
	}
	if best < 0 {
		return unvoiced(frame)
	}

	normalized := r[best] / r0
	if normalized < a.threshold {
		return unvoiced(frame)
	}

	period := common.ParabolicInterpolation(r, best)
	return voiced(frame, a.params.SampleRate, period, normalized)
}
