package audio

import (
	"github.com/RyanBlaney/sonido-pitch/algorithms/common"
)

// Frame is one fixed-length analysis window of mono samples in [-1, 1).
// Frames are never mutated after NewFrame returns.
type Frame struct {
	Samples []float64

	// Timestamp is the position of the first sample, in seconds since the
	// start of the capture run.
	Timestamp float64

	// RMS is the root mean square of Samples.
	RMS float64
}

// NewFrame builds a frame over samples. The caller hands ownership of the
// slice to the frame.
func NewFrame(samples []float64, timestamp float64) Frame {
	return Frame{
		Samples:   samples,
		Timestamp: timestamp,
		RMS:       common.RMS(samples),
	}
}

// Len returns the number of samples in the frame.
func (f Frame) Len() int {
	return len(f.Samples)
}
