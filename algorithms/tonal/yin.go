package tonal

import (
	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/audio"
)

// defaultYinThreshold is the absolute threshold on the cumulative mean
// normalized difference
const defaultYinThreshold = 0.15

// yin implements the YIN pitch detection algorithm in the time domain
type yin struct {
	params    Params
	threshold float64
	diff      []float64
}

func newYin(params Params) *yin {
	return &yin{
		params:    params,
		threshold: params.thresholdOr(defaultYinThreshold),
	}
}

// Estimate implements Estimator
func (y *yin) Estimate(frame audio.Frame) Estimate {
	if !analyzable(frame, y.params) {
		return unvoiced(frame)
	}

	x := frame.Samples
	halfN := len(x) / 2
	maxTau := min(halfN, y.params.maxLag()+2)

	if cap(y.diff) < maxTau {
		y.diff = make([]float64, maxTau)
	}
	diff := y.diff[:maxTau]

	// Calculate difference function
	for tau := range maxTau {
		sum := 0.0
		for j := range halfN {
			delta := x[j] - x[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}

	period, probability, ok := yinDecide(diff, y.params.minLag(), y.threshold)
	if !ok {
		return unvoiced(frame)
	}
	return voiced(frame, y.params.SampleRate, period, probability)
}

// yinFFT computes the YIN difference function from an FFT cross-correlation:
// d(tau) = r_0(0) + r_tau(0) - 2*r(tau)
type yinFFT struct {
	params    Params
	threshold float64
	fft       *spectral.FFT
}

func newYinFFT(params Params) *yinFFT {
	return &yinFFT{
		params:    params,
		threshold: params.thresholdOr(defaultYinThreshold),
		fft:       spectral.NewFFT(),
	}
}

// Estimate implements Estimator
func (y *yinFFT) Estimate(frame audio.Frame) Estimate {
	if !analyzable(frame, y.params) {
		return unvoiced(frame)
	}

	x := frame.Samples
	halfN := len(x) / 2
	maxTau := min(halfN, y.params.maxLag()+2)

	corr := y.fft.CrossCorrelation(x[:halfN], x, maxTau)
	energy := squareSums(x)
	power0 := energy[halfN]

	diff := make([]float64, maxTau)
	for tau := range maxTau {
		powerTau := energy[tau+halfN] - energy[tau]
		// Rounding in the FFT can push tiny values below zero
		diff[tau] = max(0, power0+powerTau-2*corr[tau])
	}

	period, probability, ok := yinDecide(diff, y.params.minLag(), y.threshold)
	if !ok {
		return unvoiced(frame)
	}
	return voiced(frame, y.params.SampleRate, period, probability)
}

// yinDecide turns a difference function into a period (in samples) using the
// cumulative mean normalized difference and an absolute threshold. diff is
// overwritten.
func yinDecide(diff []float64, minTau int, threshold float64) (float64, float64, bool) {
	if len(diff) < 3 {
		return 0, 0, false
	}

	// Cumulative mean normalized difference function
	diff[0] = 1.0
	runningSum := 0.0
	for tau := 1; tau < len(diff); tau++ {
		runningSum += diff[tau]
		if runningSum == 0 {
			diff[tau] = 1.0
		} else {
			diff[tau] *= float64(tau) / runningSum
		}
	}

	// First dip below threshold, followed down to its local minimum
	minTau = max(minTau, 2)
	tauEstimate := -1
	for tau := minTau; tau < len(diff); tau++ {
		if diff[tau] < threshold {
			for tau+1 < len(diff) && diff[tau+1] < diff[tau] {
				tau++
			}
			tauEstimate = tau
			break
		}
	}

	if tauEstimate < 0 {
		return 0, 0, false
	}

	probability := 1.0 - diff[tauEstimate]
	period := common.ParabolicInterpolation(diff, tauEstimate)
	return period, probability, true
}
