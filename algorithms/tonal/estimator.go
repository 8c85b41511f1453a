// Package tonal implements the interchangeable pitch estimators used by the
// capture pipeline.
//
// Every estimator satisfies [Estimator]: one frame in, one [Estimate] out.
// Silence and noise are normal results reported as [Unvoiced], never errors.
// Estimators keep scratch buffers between calls and are therefore not safe
// for concurrent use; the pipeline builds one per capture run.
//
// References:
// - de Cheveigné, A., Kawahara, H. (2002). "YIN, a fundamental frequency estimator for speech and music"
// - McLeod, P., Wyvill, G. (2005). "A smarter way to find pitch"
// - Rabiner, L.R. (1977). "On the use of autocorrelation analysis for pitch detection"
// - Ross, M.J. et al. (1974). "Average magnitude difference function pitch extractor"
package tonal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/audio"
)

// Unvoiced is the frequency reported when no reliable periodicity was found
const Unvoiced = -1.0

// Estimate is the pitch of one frame
type Estimate struct {
	Frequency   float64 `json:"frequency"`   // Hz, or Unvoiced
	Probability float64 `json:"probability"` // confidence in [0, 1]
	Timestamp   float64 `json:"timestamp"`   // copied from the frame
	RMS         float64 `json:"rms"`         // copied from the frame
}

// Voiced reports whether a frequency was found
func (e Estimate) Voiced() bool {
	return e.Frequency != Unvoiced
}

// Estimator produces a pitch estimate from a single frame. It must not rely
// on the results of earlier frames.
type Estimator interface {
	Estimate(frame audio.Frame) Estimate
}

// Params configures an estimator
type Params struct {
	SampleRate float64 `json:"sample_rate"`
	FrameSize  int     `json:"frame_size"`

	// Frequency range constraints
	MinFrequency float64 `json:"min_frequency"` // Hz
	MaxFrequency float64 `json:"max_frequency"` // Hz

	// Threshold is the algorithm specific decision threshold. Zero selects
	// the algorithm default.
	Threshold float64 `json:"threshold"`
}

// DefaultParams covers the note table (C2..C6) with some margin
func DefaultParams(sampleRate float64, frameSize int) Params {
	return Params{
		SampleRate:   sampleRate,
		FrameSize:    frameSize,
		MinFrequency: 60.0,
		MaxFrequency: 1100.0,
	}
}

// Validate checks that p describes a usable search range
func (p Params) Validate() error {
	if p.SampleRate <= 0 || math.IsNaN(p.SampleRate) || math.IsInf(p.SampleRate, 0) {
		return fmt.Errorf("sample rate must be positive, got %v", p.SampleRate)
	}
	if p.FrameSize <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", p.FrameSize)
	}
	if !isFinite(p.MinFrequency) || !isFinite(p.MaxFrequency) {
		return fmt.Errorf("frequency range [%v, %v] must be finite", p.MinFrequency, p.MaxFrequency)
	}
	if p.MinFrequency <= 0 || p.MaxFrequency <= p.MinFrequency {
		return fmt.Errorf("frequency range [%v, %v] is empty", p.MinFrequency, p.MaxFrequency)
	}
	if p.MaxFrequency >= p.SampleRate/2 {
		return fmt.Errorf("max frequency %v must be below Nyquist (%v)", p.MaxFrequency, p.SampleRate/2)
	}
	if p.Threshold < 0 || math.IsNaN(p.Threshold) {
		return fmt.Errorf("threshold must not be negative, got %v", p.Threshold)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// minLag is the shortest period searched, in samples
func (p Params) minLag() int {
	return max(2, int(math.Floor(p.SampleRate/p.MaxFrequency)))
}

// maxLag is the longest period searched, in samples
func (p Params) maxLag() int {
	return int(math.Ceil(p.SampleRate / p.MinFrequency))
}

// thresholdOr returns the configured threshold or def
func (p Params) thresholdOr(def float64) float64 {
	if p.Threshold > 0 {
		return p.Threshold
	}
	return def
}

// New creates the estimator for algorithm
func New(algorithm Algorithm, params Params) (Estimator, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", algorithm, err)
	}

	switch algorithm {
	case FFTPitch:
		return newFFTPitch(params), nil
	case ACF:
		return newACF(params), nil
	case MPM:
		return newMPM(params), nil
	case YIN:
		return newYin(params), nil
	case FFTYIN:
		return newYinFFT(params), nil
	case AMDF:
		return newAMDF(params), nil
	default:
		return nil, fmt.Errorf("unsupported pitch estimation algorithm: %d", int(algorithm))
	}
}

// unvoiced builds the result for a frame without detectable pitch
func unvoiced(frame audio.Frame) Estimate {
	return Estimate{
		Frequency:   Unvoiced,
		Probability: 0,
		Timestamp:   frame.Timestamp,
		RMS:         frame.RMS,
	}
}

// voiced builds the result for a detected period, in samples
func voiced(frame audio.Frame, sampleRate, period, probability float64) Estimate {
	if period <= 0 || math.IsNaN(period) || math.IsInf(period, 0) {
		return unvoiced(frame)
	}
	return Estimate{
		Frequency:   sampleRate / period,
		Probability: common.Clamp(probability, 0, 1),
		Timestamp:   frame.Timestamp,
		RMS:         frame.RMS,
	}
}

// analyzable reports whether the frame has energy and is long enough to
// hold two periods at the shortest searched lag
func analyzable(frame audio.Frame, p Params) bool {
	return frame.RMS > 0 && frame.Len() >= 2*(p.minLag()+3)
}

// squareSums returns the prefix sums of x^2, with out[0] = 0
func squareSums(x []float64) []float64 {
	out := make([]float64, len(x)+1)
	for i, v := range x {
		out[i+1] = out[i] + v*v
	}
	return out
}
