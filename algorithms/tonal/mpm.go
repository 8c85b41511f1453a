package tonal

import (
	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/audio"
)

const (
	// defaultMPMCutoff selects the first key maximum within this ratio of the highest one
	defaultMPMCutoff = 0.97

	// mpmVoicingFloor is the lowest key maximum accepted as periodic
	mpmVoicingFloor = 0.5
)

// mpm implements the McLeod Pitch Method on the normalized square difference
// function (NSDF)
type mpm struct {
	params Params
	cutoff float64
	fft    *spectral.FFT
}

func newMPM(params Params) *mpm {
	return &mpm{
		params: params,
		cutoff: params.thresholdOr(defaultMPMCutoff),
		fft:    spectral.NewFFT(),
	}
}

// Estimate implements Estimator
func (m *mpm) Estimate(frame audio.Frame) Estimate {
	if !analyzable(frame, m.params) {
		return unvoiced(frame)
	}

	x := frame.Samples
	n := len(x)
	maxTau := min(n/2, m.params.maxLag()+2)

	// NSDF(tau) = 2*r(tau) / m(tau), m(tau) = sum x[i]^2 + x[i+tau]^2
	acf := m.fft.Autocorrelation(x, maxTau)
	energy := squareSums(x)
	nsdf := make([]float64, maxTau)
	for tau := range maxTau {
		norm := energy[n-tau] + (energy[n] - energy[tau])
		if norm > 0 {
			nsdf[tau] = 2.0 * acf[tau] / norm
		}
	}

	peaks := keyMaxima(nsdf)
	if len(peaks) == 0 {
		return unvoiced(frame)
	}

	highest := 0.0
	for _, p := range peaks {
		highest = max(highest, nsdf[p])
	}
	if highest < mpmVoicingFloor {
		return unvoiced(frame)
	}

	// The first key maximum close enough to the highest avoids octave errors
	threshold := m.cutoff * highest
	minLag := m.params.minLag()
	for _, p := range peaks {
		if p < minLag || nsdf[p] < threshold {
			continue
		}
		period := common.ParabolicInterpolation(nsdf, p)
		return voiced(frame, m.params.SampleRate, period, nsdf[p])
	}

	return unvoiced(frame)
}

// keyMaxima returns the index of the highest local maximum in every positive
// region of nsdf, skipping the lobe around lag zero
func keyMaxima(nsdf []float64) []int {
	n := len(nsdf)
	pos := 0

	// Skip the initial positive lobe, then the first negative region
	for pos < n-1 && nsdf[pos] > 0 {
		pos++
	}
	for pos < n-1 && nsdf[pos] <= 0 {
		pos++
	}
	pos = max(pos, 1)

	var peaks []int
	current := -1
	for ; pos < n-1; pos++ {
		v := nsdf[pos]
		if v <= 0 {
			if current >= 0 {
				peaks = append(peaks, current)
				current = -1
			}
			continue
		}
		if v > nsdf[pos-1] && v >= nsdf[pos+1] {
			if current < 0 || v > nsdf[current] {
				current = pos
			}
		}
	}
	if current >= 0 {
		peaks = append(peaks, current)
	}

	return peaks
}
