package tonal

import (
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/RyanBlaney/sonido-pitch/algorithms/spectral"
	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/mjibson/go-dsp/window"
)

// fftPitch reports the strongest spectral peak in the search range, refined
// by quadratic interpolation on the log magnitude
type fftPitch struct {
	params Params
	fft    *spectral.FFT

	// window coefficients are cached per frame length
	window []float64
}

func newFFTPitch(params Params) *fftPitch {
	return &fftPitch{
		params: params,
		fft:    spectral.NewFFT(),
		window: window.Hann(params.FrameSize),
	}
}

// Estimate implements Estimator
func (f *fftPitch) Estimate(frame audio.Frame) Estimate {
	if !analyzable(frame, f.params) {
		return unvoiced(frame)
	}

	x := frame.Samples
	if len(f.window) != len(x) {
		f.window = window.Hann(len(x))
	}

	// Windowed and zero padded to a power of two
	size := common.NextPowerOfTwo(len(x))
	padded := make([]float64, size)
	for i, v := range x {
		padded[i] = v * f.window[i]
	}

	magnitude := f.fft.Magnitude(f.fft.Compute(padded))
	binHz := f.params.SampleRate / float64(size)

	lo := max(1, int(math.Ceil(f.params.MinFrequency/binHz)))
	hi := min(len(magnitude)-2, int(math.Floor(f.params.MaxFrequency/binHz)))
	peakIdx, peak := common.ArgMax(magnitude, lo, hi+1)
	if peakIdx < 0 || peak <= 0 {
		return unvoiced(frame)
	}

	// Share of the band power that sits in the peak's main lobe
	bandPower := 0.0
	for i := lo; i <= hi; i++ {
		bandPower += magnitude[i] * magnitude[i]
	}
	lobePower := 0.0
	for i := peakIdx - 1; i <= peakIdx+1; i++ {
		lobePower += magnitude[i] * magnitude[i]
	}
	if bandPower == 0 {
		return unvoiced(frame)
	}

	logMag := []float64{
		math.Log(magnitude[peakIdx-1] + 1e-12),
		math.Log(magnitude[peakIdx] + 1e-12),
		math.Log(magnitude[peakIdx+1] + 1e-12),
	}
	bin := float64(peakIdx-1) + common.ParabolicInterpolation(logMag, 1)

	// Convert the interpolated bin to a period in samples
	period := f.params.SampleRate / (bin * binHz)
	return voiced(frame, f.params.SampleRate, period, lobePower/bandPower)
}
