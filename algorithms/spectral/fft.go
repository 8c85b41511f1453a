package spectral

import (
	"math/cmplx"

	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality backed by mjibson/go-dsp
type FFT struct {
	// No state needed for now
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the Fast Fourier Transform of a real signal
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// mjibson/go-dsp handles all sizes, including non-power-of-2
	return fft.FFTReal(x)
}

// ComputeInverseReal computes inverse FFT and returns real part only
func (f *FFT) ComputeInverseReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	realResult := make([]float64, len(result))

	for i, val := range result {
		realResult[i] = real(val)
	}

	return realResult
}

// Magnitude returns |X[k]| for the non-negative frequency bins of spectrum
func (f *FFT) Magnitude(spectrum []complex128) []float64 {
	n := len(spectrum)/2 + 1
	if len(spectrum) == 0 {
		return []float64{}
	}

	magnitude := make([]float64, n)
	for i := range magnitude {
		magnitude[i] = cmplx.Abs(spectrum[i])
	}
	return magnitude
}

// Autocorrelation returns r[tau] = sum_i x[i]*x[i+tau] for tau in [0, maxLag).
// The signal is zero padded so the circular correlation equals the linear one.
func (f *FFT) Autocorrelation(x []float64, maxLag int) []float64 {
	return f.CrossCorrelation(x, x, maxLag)
}

// CrossCorrelation returns c[tau] = sum_j a[j]*x[j+tau] for tau in [0, maxLag),
// where out-of-range samples of x count as zero
func (f *FFT) CrossCorrelation(a, x []float64, maxLag int) []float64 {
	if len(a) == 0 || len(x) == 0 || maxLag <= 0 {
		return []float64{}
	}

	size := common.NextPowerOfTwo(len(a) + len(x))
	paddedX := make([]float64, size)
	copy(paddedX, x)
	paddedA := make([]float64, size)
	copy(paddedA, a)

	specX := f.Compute(paddedX)
	specA := f.Compute(paddedA)

	// X * conj(A) in the frequency domain is the correlation in time
	for i := range specX {
		specX[i] *= cmplx.Conj(specA[i])
	}

	corr := f.ComputeInverseReal(specX)
	if maxLag > len(x) {
		maxLag = len(x)
	}
	return corr[:maxLag]
}
