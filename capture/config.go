package capture

import (
	"math"

	"github.com/RyanBlaney/sonido-pitch/algorithms/filters"
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/audio"
)

const (
	DefaultFrameSize = 16384
	DefaultOverlap   = 0
)

// Config describes one capture run. It is immutable once passed to
// Pipeline.Configure; changing any field means starting a new run.
type Config struct {
	SampleRate float64
	FrameSize  int
	Overlap    int // samples shared by consecutive frames

	Device    audio.Device
	Algorithm tonal.Algorithm

	// Estimator search range, zero selects the tonal defaults
	MinFrequency float64
	MaxFrequency float64

	// DCCutoff enables a DC blocking filter with this -3 dB point in Hz
	// ahead of framing, 0 disables it
	DCCutoff float64
}

// DefaultConfig returns the standard run settings for device and algorithm
func DefaultConfig(device audio.Device, algorithm tonal.Algorithm) Config {
	return Config{
		SampleRate: audio.DefaultSampleRate,
		FrameSize:  DefaultFrameSize,
		Overlap:    DefaultOverlap,
		Device:     device,
		Algorithm:  algorithm,
	}
}

// Hop returns the number of new samples per frame
func (c Config) Hop() int {
	return c.FrameSize - c.Overlap
}

// Format returns the PCM layout requested from the device
func (c Config) Format() audio.Format {
	return audio.DefaultFormat(c.SampleRate)
}

// EstimatorParams derives the estimator settings for this run
func (c Config) EstimatorParams() tonal.Params {
	params := tonal.DefaultParams(c.SampleRate, c.FrameSize)
	if c.MinFrequency > 0 {
		params.MinFrequency = c.MinFrequency
	}
	if c.MaxFrequency > 0 {
		params.MaxFrequency = c.MaxFrequency
	}
	return params
}

// dcBlocker returns the run's input filter, nil when disabled
func (c Config) dcBlocker() (*filters.DCBlocker, error) {
	if c.DCCutoff == 0 {
		return nil, nil
	}
	return filters.NewDCBlocker(c.SampleRate, c.DCCutoff)
}

// Validate checks the configuration without touching any device. Every
// failure is a *audio.ConfigError.
func (c Config) Validate() error {
	if c.SampleRate <= 0 || math.IsNaN(c.SampleRate) || math.IsInf(c.SampleRate, 0) {
		return &audio.ConfigError{Field: "sample_rate", Reason: "must be a positive number"}
	}
	if c.FrameSize <= 0 {
		return &audio.ConfigError{Field: "frame_size", Reason: "must be positive"}
	}
	if c.Overlap < 0 || c.Overlap >= c.FrameSize {
		return &audio.ConfigError{Field: "overlap", Reason: "must be in [0, frame_size)"}
	}
	if !c.Algorithm.Valid() {
		return &audio.ConfigError{Field: "algorithm", Reason: "unknown algorithm " + c.Algorithm.String()}
	}
	if err := c.Format().Validate(); err != nil {
		return &audio.ConfigError{Field: "format", Reason: "unsupported", Err: err}
	}
	if c.DCCutoff != 0 {
		if _, err := c.dcBlocker(); err != nil {
			return &audio.ConfigError{Field: "dc_cutoff", Reason: "invalid cutoff", Err: err}
		}
	}
	if err := c.EstimatorParams().Validate(); err != nil {
		return &audio.ConfigError{Field: "estimator", Reason: "invalid search range", Err: err}
	}
	return nil
}
