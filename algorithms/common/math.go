package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Basic numeric helpers shared by the pitch estimators, backed by gonum

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// ArgMax returns the index and value of the largest element in data[lo:hi].
// It returns -1 when the range is empty.
func ArgMax(data []float64, lo, hi int) (int, float64) {
	lo = max(lo, 0)
	hi = min(hi, len(data))
	if lo >= hi {
		return -1, 0
	}
	idx := lo + floats.MaxIdx(data[lo:hi])
	return idx, data[idx]
}

// ParabolicInterpolation refines the position of an extremum at peakIdx by
// fitting a parabola through it and its two neighbours
func ParabolicInterpolation(data []float64, peakIdx int) float64 {
	if peakIdx <= 0 || peakIdx >= len(data)-1 {
		return float64(peakIdx)
	}

	y1 := data[peakIdx-1]
	y2 := data[peakIdx]
	y3 := data[peakIdx+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2

	if a == 0 {
		return float64(peakIdx)
	}

	// Offset stays within half a sample of the discrete extremum
	xPeak := Clamp(-b/(2*a), -0.5, 0.5)

	return float64(peakIdx) + xPeak
}

// Clamp restricts value to [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
