package tonal_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/audio"
)

const (
	testRate = 48000.0
	testSize = 4096
)

func sineFrame(freq, amplitude float64, n int, timestamp float64) audio.Frame {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}
	return audio.NewFrame(samples, timestamp)
}

func newEstimator(t *testing.T, alg tonal.Algorithm) tonal.Estimator {
	t.Helper()
	est, err := tonal.New(alg, tonal.DefaultParams(testRate, testSize))
	if err != nil {
		t.Fatalf("New(%s): %v", alg, err)
	}
	return est
}

func TestEstimatorsSine(t *testing.T) {
	t.Parallel()

	for _, alg := range tonal.Algorithms() {
		t.Run(alg.String(), func(t *testing.T) {
			t.Parallel()
			est := newEstimator(t, alg)
			for _, freq := range []float64{220, 440, 880} {
				frame := sineFrame(freq, 0.5, testSize, 1.25)
				got := est.Estimate(frame)
				if !got.Voiced() {
					t.Fatalf("%v Hz: got unvoiced", freq)
				}
				if rel := math.Abs(got.Frequency-freq) / freq; rel > 0.02 {
					t.Errorf("%v Hz: estimated %.2f Hz (%.1f%% off)", freq, got.Frequency, rel*100)
				}
				if got.Probability <= 0 || got.Probability > 1 {
					t.Errorf("%v Hz: probability %v outside (0, 1]", freq, got.Probability)
				}
				if got.Timestamp != frame.Timestamp || got.RMS != frame.RMS {
					t.Errorf("%v Hz: timestamp/RMS not copied from frame: %+v", freq, got)
				}
			}
		})
	}
}

func TestEstimatorsLowString(t *testing.T) {
	t.Parallel()

	// E2 is the lowest guitar string; its period needs most of the lag range
	for _, alg := range []tonal.Algorithm{tonal.ACF, tonal.MPM, tonal.YIN, tonal.FFTYIN, tonal.AMDF} {
		est := newEstimator(t, alg)
		got := est.Estimate(sineFrame(82.41, 0.3, testSize, 0))
		if rel := math.Abs(got.Frequency-82.41) / 82.41; !got.Voiced() || rel > 0.02 {
			t.Errorf("%s: estimated %.2f Hz, want 82.41", alg, got.Frequency)
		}
	}
}

func TestEstimatorsSilence(t *testing.T) {
	t.Parallel()

	silence := audio.NewFrame(make([]float64, testSize), 0.5)
	for _, alg := range tonal.Algorithms() {
		got := newEstimator(t, alg).Estimate(silence)
		if got.Frequency != tonal.Unvoiced || got.Probability != 0 {
			t.Errorf("%s: silence gave %+v, want unvoiced", alg, got)
		}
		if got.Timestamp != 0.5 {
			t.Errorf("%s: timestamp %v, want 0.5", alg, got.Timestamp)
		}
	}
}

func TestEstimatorsShortFrame(t *testing.T) {
	t.Parallel()

	short := sineFrame(440, 0.5, 16, 0)
	for _, alg := range tonal.Algorithms() {
		if got := newEstimator(t, alg).Estimate(short); got.Voiced() {
			t.Errorf("%s: 16 sample frame should be unvoiced, got %.2f Hz", alg, got.Frequency)
		}
	}
}

func TestEstimatorsNoise(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	samples := make([]float64, testSize)
	for i := range samples {
		samples[i] = rng.Float64()*2 - 1
	}
	noise := audio.NewFrame(samples, 0)

	// The spectral peak picker always reports its strongest bin
	for _, alg := range []tonal.Algorithm{tonal.ACF, tonal.MPM, tonal.YIN, tonal.FFTYIN, tonal.AMDF} {
		if got := newEstimator(t, alg).Estimate(noise); got.Voiced() {
			t.Errorf("%s: white noise gave %.2f Hz (p=%.2f), want unvoiced", alg, got.Frequency, got.Probability)
		}
	}
}

func TestEstimatorIndependentOfHistory(t *testing.T) {
	t.Parallel()

	frame := sineFrame(330, 0.4, testSize, 0)
	for _, alg := range tonal.Algorithms() {
		est := newEstimator(t, alg)
		first := est.Estimate(frame)
		est.Estimate(sineFrame(600, 0.8, testSize, 0))
		est.Estimate(audio.NewFrame(make([]float64, testSize), 0))
		if again := est.Estimate(frame); again != first {
			t.Errorf("%s: repeated estimate differs: %+v vs %+v", alg, again, first)
		}
	}
}

func TestNewRejectsInvalidParams(t *testing.T) {
	t.Parallel()

	cases := map[string]tonal.Params{
		"zero rate":     {SampleRate: 0, FrameSize: 1024, MinFrequency: 60, MaxFrequency: 1100},
		"no frame":      {SampleRate: 48000, FrameSize: 0, MinFrequency: 60, MaxFrequency: 1100},
		"empty range":   {SampleRate: 48000, FrameSize: 1024, MinFrequency: 500, MaxFrequency: 400},
		"above nyquist": {SampleRate: 8000, FrameSize: 1024, MinFrequency: 60, MaxFrequency: 4000},
		"negative thr":  {SampleRate: 48000, FrameSize: 1024, MinFrequency: 60, MaxFrequency: 1100, Threshold: -1},
		"NaN min":       {SampleRate: 48000, FrameSize: 1024, MinFrequency: math.NaN(), MaxFrequency: 1100},
		"NaN max":       {SampleRate: 48000, FrameSize: 1024, MinFrequency: 60, MaxFrequency: math.NaN()},
		"Inf min":       {SampleRate: 48000, FrameSize: 1024, MinFrequency: math.Inf(-1), MaxFrequency: 1100},
		"NaN thr":       {SampleRate: 48000, FrameSize: 1024, MinFrequency: 60, MaxFrequency: 1100, Threshold: math.NaN()},
	}
	for name, params := range cases {
		for _, alg := range tonal.Algorithms() {
			if _, err := tonal.New(alg, params); err == nil {
				t.Errorf("%s/%s: expected error", name, alg)
			}
		}
	}

	if _, err := tonal.New(tonal.Algorithm(42), tonal.DefaultParams(testRate, testSize)); err == nil {
		t.Error("unknown algorithm: expected error")
	}
}

func TestAlgorithms(t *testing.T) {
	t.Parallel()

	want := []string{"FFT_PITCH", "ACF", "MPM", "YIN", "FFT_YIN", "AMDF"}
	got := tonal.Algorithms()
	if len(got) != len(want) {
		t.Fatalf("Algorithms() has %d entries, want %d", len(got), len(want))
	}
	for i, alg := range got {
		if alg.String() != want[i] {
			t.Errorf("Algorithms()[%d] = %s, want %s", i, alg, want[i])
		}
	}

	// Mutating the result must not affect later calls
	got[0] = tonal.AMDF
	if tonal.Algorithms()[0] != tonal.FFTPitch {
		t.Error("Algorithms() returned shared storage")
	}
}

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	cases := map[string]tonal.Algorithm{
		"YIN":         tonal.YIN,
		"yin":         tonal.YIN,
		"fft-yin":     tonal.FFTYIN,
		" Fft_Pitch ": tonal.FFTPitch,
		"amdf":        tonal.AMDF,
	}
	for in, want := range cases {
		got, err := tonal.ParseAlgorithm(in)
		if err != nil || got != want {
			t.Errorf("ParseAlgorithm(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := tonal.ParseAlgorithm("cepstrum"); err == nil {
		t.Error("ParseAlgorithm(cepstrum): expected error")
	}

	var alg tonal.Algorithm
	if err := alg.UnmarshalText([]byte("mpm")); err != nil || alg != tonal.MPM {
		t.Errorf("UnmarshalText(mpm) = %v, %v", alg, err)
	}
	if _, err := tonal.Algorithm(-1).MarshalText(); err == nil {
		t.Error("MarshalText of invalid algorithm: expected error")
	}
}
