package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/tuning"
)

// Load reads the YAML configuration file at path and returns a validated
// Config. Keys absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Unknown keys are errors.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w; valid values: debug, info, warn, error, fatal", err))
	}
	if !cfg.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("backend %q is invalid; valid values: portaudio, malgo, file, synth", cfg.Backend))
	}

	// Capture and estimator range
	if cfg.Capture.ReadChunk < 0 {
		errs = append(errs, fmt.Errorf("capture.read_chunk %d must not be negative", cfg.Capture.ReadChunk))
	}
	if err := cfg.CaptureDefaults().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("capture: %w", err))
	}

	// Thresholds
	if t := cfg.Gate.ThresholdPercent; t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		errs = append(errs, fmt.Errorf("gate.rms_percent_threshold %v must be a non-negative number", t))
	}
	if p := cfg.Classifier.Precision; !(p > 0 && p < 1) {
		errs = append(errs, fmt.Errorf("classifier.precision %v is out of range (0, 1)", p))
	}
	for i, name := range cfg.Classifier.Notes {
		if _, ok := tuning.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("classifier.notes[%d] %q is not a note between C2 and C6", i, name))
		}
	}

	// Backends
	if cfg.PortAudio.FramesPerBuffer < 0 {
		errs = append(errs, fmt.Errorf("portaudio.frames_per_buffer %d must not be negative", cfg.PortAudio.FramesPerBuffer))
	}
	if cfg.Malgo.QueueDepth < 0 {
		errs = append(errs, fmt.Errorf("malgo.queue_depth %d must not be negative", cfg.Malgo.QueueDepth))
	}
	if cfg.Transcode.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("transcode.max_duration %s must not be negative", cfg.Transcode.MaxDuration))
	}
	for i, f := range cfg.Transcode.Files {
		if f == "" {
			errs = append(errs, fmt.Errorf("transcode.files[%d] is empty", i))
		}
	}
	for i, tone := range cfg.Synth.Tones {
		prefix := fmt.Sprintf("synth.tones[%d]", i)
		if tone.Frequency < 0 {
			errs = append(errs, fmt.Errorf("%s.frequency %v must not be negative", prefix, tone.Frequency))
		}
		if tone.Amplitude < 0 || tone.Amplitude+tone.Noise > 1 {
			errs = append(errs, fmt.Errorf("%s: amplitude plus noise must stay within full scale", prefix))
		}
		if tone.Duration < 0 {
			errs = append(errs, fmt.Errorf("%s.duration %s must not be negative", prefix, tone.Duration))
		}
	}

	return errors.Join(errs...)
}
