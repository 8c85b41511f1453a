// Package filters holds streaming sample filters applied ahead of framing.
package filters

import (
	"fmt"
	"math"
)

// DCBlocker is a one-pole high-pass filter that removes the constant offset
// some inputs add to the signal:
//
//	y[n] = x[n] - x[n-1] + R*y[n-1]
//
// It keeps state between calls, so one DCBlocker serves one continuous
// stream.
type DCBlocker struct {
	pole float64 // R, 0 < R < 1

	x1 float64
	y1 float64
}

// NewDCBlocker creates a filter with a -3 dB point near cutoff Hz. The pole
// is placed at R = 1 - 2*pi*fc/fs.
func NewDCBlocker(sampleRate, cutoff float64) (*DCBlocker, error) {
	if !(sampleRate > 0) || !(cutoff > 0 && cutoff < sampleRate/2) {
		return nil, fmt.Errorf("dc blocker: cutoff %v Hz outside (0, %v)", cutoff, sampleRate/2)
	}
	pole := 1.0 - 2.0*math.Pi*cutoff/sampleRate
	pole = min(max(pole, 0.001), 0.999)
	return &DCBlocker{pole: pole}, nil
}

// Process filters samples in place
func (dc *DCBlocker) Process(samples []float64) {
	for i, x := range samples {
		y := x - dc.x1 + dc.pole*dc.y1
		dc.x1 = x
		dc.y1 = y
		samples[i] = y
	}
}
