package tonal

import (
	"fmt"
	"strings"
)

// Algorithm selects a pitch estimation method
type Algorithm int

const (
	// Frequency domain methods
	FFTPitch Algorithm = iota // strongest spectral peak

	// Autocorrelation-based methods
	ACF // autocorrelation function
	MPM // McLeod Pitch Method (normalized square difference)

	// Difference function methods
	YIN    // de Cheveigné & Kawahara
	FFTYIN // YIN with the difference function computed via FFT
	AMDF   // average magnitude difference function
)

// algorithms lists every variant in canonical order
var algorithms = []Algorithm{FFTPitch, ACF, MPM, YIN, FFTYIN, AMDF}

// Algorithms returns every supported algorithm in canonical listing order.
// Index i of the result is what selection by index refers to.
func Algorithms() []Algorithm {
	out := make([]Algorithm, len(algorithms))
	copy(out, algorithms)
	return out
}

// String returns the canonical identifier of the algorithm
func (a Algorithm) String() string {
	switch a {
	case FFTPitch:
		return "FFT_PITCH"
	case ACF:
		return "ACF"
	case MPM:
		return "MPM"
	case YIN:
		return "YIN"
	case FFTYIN:
		return "FFT_YIN"
	case AMDF:
		return "AMDF"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// Description returns a human readable name of the detection method
func (a Algorithm) Description() string {
	switch a {
	case FFTPitch:
		return "Spectral peak (FFT)"
	case ACF:
		return "Autocorrelation Function"
	case MPM:
		return "McLeod Pitch Method"
	case YIN:
		return "YIN"
	case FFTYIN:
		return "YIN-FFT Hybrid"
	case AMDF:
		return "Average Magnitude Difference Function"
	default:
		return "Unknown"
	}
}

// Valid reports whether a is one of the supported algorithms
func (a Algorithm) Valid() bool {
	return a >= FFTPitch && a <= AMDF
}

// ParseAlgorithm resolves a canonical identifier, case-insensitively
func ParseAlgorithm(name string) (Algorithm, error) {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	for _, a := range algorithms {
		if a.String() == normalized {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown pitch estimation algorithm %q", name)
}

// MarshalText implements encoding.TextMarshaler
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("unknown pitch estimation algorithm %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
