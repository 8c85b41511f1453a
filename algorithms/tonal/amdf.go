package tonal

import (
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/audio"
)

const (
	// defaultAMDFRatio places the acceptance level for minima above the
	// global minimum, as a share of the dynamic range
	defaultAMDFRatio = 0.1

	// amdfMinContrast rejects flat difference curves (noise)
	amdfMinContrast = 0.2
)

// amdf implements the average magnitude difference function pitch extractor
type amdf struct {
	params Params
	ratio  float64
	amd    []float64
}

func newAMDF(params Params) *amdf {
	return &amdf{
		params: params,
		ratio:  params.thresholdOr(defaultAMDFRatio),
	}
}

// Estimate implements Estimator
func (a *amdf) Estimate(frame audio.Frame) Estimate {
	if !analyzable(frame, a.params) {
		return unvoiced(frame)
	}

	x := frame.Samples
	n := len(x)
	lo := a.params.minLag()
	hi := min(a.params.maxLag(), n/2)
	if hi-lo < 3 {
		return unvoiced(frame)
	}

	size := hi - lo + 1
	if cap(a.amd) < size {
		a.amd = make([]float64, size)
	}
	amd := a.amd[:size]

	// Average magnitude difference per lag
	minVal, maxVal := math.Inf(1), 0.0
	for i := range amd {
		lag := lo + i
		sum := 0.0
		for j := 0; j < n-lag; j++ {
			sum += math.Abs(x[j] - x[j+lag])
		}
		amd[i] = sum / float64(n-lag)
		minVal = min(minVal, amd[i])
		maxVal = max(maxVal, amd[i])
	}

	if maxVal == 0 || (maxVal-minVal)/maxVal < amdfMinContrast {
		return unvoiced(frame)
	}

	// First local minimum close to the global minimum
	cutoff := minVal + a.ratio*(maxVal-minVal)
	best := -1
	for i := 1; i < size-1; i++ {
		if amd[i] <= cutoff && amd[i] <= amd[i-1] && amd[i] <= amd[i+1] {
			best = i
			break
		}
	}
	if best < 0 {
		return unvoiced(frame)
	}

	period := float64(lo) + common.ParabolicInterpolation(amd, best)
	return voiced(frame, a.params.SampleRate, period, 1.0-amd[best]/maxVal)
}
