// Package config defines the YAML configuration of the sonido-pitch tuner.
package config

import (
	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/RyanBlaney/sonido-pitch/audio/synth"
	"github.com/RyanBlaney/sonido-pitch/capture"
	"github.com/RyanBlaney/sonido-pitch/transcode"
	"github.com/RyanBlaney/sonido-pitch/tuning"
)

// BackendName selects the audio source
type BackendName string

const (
	BackendPortAudio BackendName = "portaudio"
	BackendMalgo     BackendName = "malgo"
	BackendFile      BackendName = "file"
	BackendSynth     BackendName = "synth"
)

// IsValid reports whether b names a known backend
func (b BackendName) IsValid() bool {
	switch b {
	case BackendPortAudio, BackendMalgo, BackendFile, BackendSynth:
		return true
	}
	return false
}

// Config is the root configuration
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Backend    BackendName      `yaml:"backend"`
	Capture    CaptureConfig    `yaml:"capture"`
	Gate       tuning.Gate      `yaml:"gate"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Estimator  EstimatorConfig  `yaml:"estimator"`
	PortAudio  PortAudioConfig  `yaml:"portaudio"`
	Malgo      MalgoConfig      `yaml:"malgo"`
	Transcode  TranscodeConfig  `yaml:"transcode"`
	Synth      SynthConfig      `yaml:"synth"`
}

// CaptureConfig holds the framing settings shared by every run
type CaptureConfig struct {
	SampleRate float64 `yaml:"sample_rate"`
	FrameSize  int     `yaml:"frame_size"`
	Overlap    int     `yaml:"overlap"`
	ReadChunk  int     `yaml:"read_chunk"` // samples per device read
	DCCutoff   float64 `yaml:"dc_cutoff"`  // Hz, 0 disables the DC blocker
}

type ClassifierConfig struct {
	Precision float64 `yaml:"precision"` // relative tolerance around each note

	// Notes restricts matching to these names of the standard table, for
	// example the open strings of a guitar. Empty selects every note.
	Notes []string `yaml:"notes"`
}

// EstimatorConfig bounds the pitch search range in Hz
type EstimatorConfig struct {
	MinFrequency float64 `yaml:"min_frequency"`
	MaxFrequency float64 `yaml:"max_frequency"`
}

type PortAudioConfig struct {
	FramesPerBuffer int `yaml:"frames_per_buffer"`
}

type MalgoConfig struct {
	QueueDepth int `yaml:"queue_depth"` // buffered callback chunks before dropping
}

// TranscodeConfig configures the file backend
type TranscodeConfig struct {
	transcode.Config `yaml:",inline"`
	Files            []string `yaml:"files"`
}

// SynthConfig lists the tones offered by the synth backend
type SynthConfig struct {
	Realtime bool         `yaml:"realtime"`
	Tones    []synth.Tone `yaml:"tones"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	params := tonal.DefaultParams(audio.DefaultSampleRate, capture.DefaultFrameSize)
	return &Config{
		LogLevel: "info",
		Backend:  BackendPortAudio,
		Capture: CaptureConfig{
			SampleRate: audio.DefaultSampleRate,
			FrameSize:  capture.DefaultFrameSize,
			Overlap:    capture.DefaultOverlap,
			ReadChunk:  capture.DefaultReadChunk,
		},
		Gate:       tuning.DefaultGate(),
		Classifier: ClassifierConfig{Precision: tuning.DefaultPrecision},
		Estimator: EstimatorConfig{
			MinFrequency: params.MinFrequency,
			MaxFrequency: params.MaxFrequency,
		},
		Transcode: TranscodeConfig{Config: transcode.DefaultConfig()},
		Synth:     SynthConfig{Realtime: true},
	}
}

// CaptureDefaults returns the run template for the tuner. Device and
// algorithm are chosen per run.
func (c *Config) CaptureDefaults() capture.Config {
	cfg := capture.DefaultConfig(audio.Device{}, tonal.FFTPitch)
	cfg.SampleRate = c.Capture.SampleRate
	cfg.FrameSize = c.Capture.FrameSize
	cfg.Overlap = c.Capture.Overlap
	cfg.MinFrequency = c.Estimator.MinFrequency
	cfg.MaxFrequency = c.Estimator.MaxFrequency
	cfg.DCCutoff = c.Capture.DCCutoff
	return cfg
}

// NewClassifier builds the note classifier for the configured precision and
// note selection. Unknown names are skipped; Validate reports them.
func (c *Config) NewClassifier() *tuning.Classifier {
	if len(c.Classifier.Notes) == 0 {
		return tuning.NewClassifier(c.Classifier.Precision, tuning.Notes()...)
	}
	notes := make([]tuning.Note, 0, len(c.Classifier.Notes))
	for _, name := range c.Classifier.Notes {
		if n, ok := tuning.Lookup(name); ok {
			notes = append(notes, n)
		}
	}
	return tuning.NewClassifier(c.Classifier.Precision, notes...)
}
