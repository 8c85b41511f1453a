package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/RyanBlaney/sonido-pitch/config"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.Gate.ThresholdPercent != 1.0 || cfg.Classifier.Precision != 0.03 {
		t.Errorf("thresholds = %v / %v", cfg.Gate.ThresholdPercent, cfg.Classifier.Precision)
	}

	run := cfg.CaptureDefaults()
	if run.SampleRate != 48000 || run.FrameSize != 16384 || run.Overlap != 0 {
		t.Errorf("CaptureDefaults() = %+v", run)
	}
}

func TestLoadFromReader_EmptyKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Backend != config.BackendPortAudio || cfg.Capture.FrameSize != 16384 {
		t.Errorf("empty document changed defaults: %+v", cfg)
	}
}

func TestLoadFromReader_Overrides(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: debug
backend: synth
capture:
  frame_size: 4096
  overlap: 1024
gate:
  rms_percent_threshold: 2.5
classifier:
  precision: 0.05
estimator:
  min_frequency: 70
transcode:
  ffmpeg_path: /opt/ffmpeg
  max_duration: 30s
  files:
    - take1.flac
synth:
  realtime: false
  tones:
    - name: Low E
      frequency: 82.41
      amplitude: 0.4
      duration: 2s
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Backend != config.BackendSynth || cfg.LogLevel != "debug" {
		t.Errorf("backend/log level = %q/%q", cfg.Backend, cfg.LogLevel)
	}
	run := cfg.CaptureDefaults()
	if run.FrameSize != 4096 || run.Overlap != 1024 || run.SampleRate != 48000 {
		t.Errorf("capture = %+v", run)
	}
	if run.MinFrequency != 70 || run.MaxFrequency != 1100 {
		t.Errorf("estimator range = [%v, %v]", run.MinFrequency, run.MaxFrequency)
	}
	if cfg.Gate.ThresholdPercent != 2.5 {
		t.Errorf("gate threshold = %v", cfg.Gate.ThresholdPercent)
	}
	if got := cfg.NewClassifier().Precision(); got != 0.05 {
		t.Errorf("classifier precision = %v", got)
	}

	// Inline transcode keys merge with the decoder defaults
	if cfg.Transcode.FFmpegPath != "/opt/ffmpeg" || cfg.Transcode.FFprobePath != "ffprobe" {
		t.Errorf("transcode paths = %q, %q", cfg.Transcode.FFmpegPath, cfg.Transcode.FFprobePath)
	}
	if cfg.Transcode.MaxDuration != 30*time.Second || len(cfg.Transcode.Files) != 1 {
		t.Errorf("transcode = %+v", cfg.Transcode)
	}

	if cfg.Synth.Realtime || len(cfg.Synth.Tones) != 1 {
		t.Fatalf("synth = %+v", cfg.Synth)
	}
	if tone := cfg.Synth.Tones[0]; tone.Name != "Low E" || tone.Frequency != 82.41 || tone.Duration != 2*time.Second {
		t.Errorf("tone = %+v", tone)
	}
}

func TestLoadFromReader_UnknownKey(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("capture:\n  frame_length: 4096\n"))
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "frame_length") {
		t.Errorf("error should name the unknown key, got: %v", err)
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: loud
backend: jack
capture:
  overlap: 20000
gate:
  rms_percent_threshold: -1
classifier:
  precision: 0
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []string{"log_level", "backend", "overlap", "rms_percent_threshold", "classifier.precision"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}

	var cfgErr *audio.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "overlap" {
		t.Errorf("capture failure should unwrap to the overlap ConfigError, got %v", cfgErr)
	}
}

func TestValidate_SynthTones(t *testing.T) {
	t.Parallel()
	yaml := `
backend: synth
synth:
  tones:
    - frequency: -5
      amplitude: 0.9
      noise: 0.3
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid tone, got nil")
	}
	if !strings.Contains(err.Error(), "synth.tones[0].frequency") || !strings.Contains(err.Error(), "full scale") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestClassifierNotes(t *testing.T) {
	t.Parallel()
	yaml := `
classifier:
  notes: [E2, A2, D3, G3, B3, E4]
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	c := cfg.NewClassifier()
	if got := len(c.Notes()); got != 6 {
		t.Fatalf("classifier has %d notes, want 6", got)
	}
	if m := c.Classify(110.5); !m.Matched || m.Note.Name != "A2" {
		t.Errorf("Classify(110.5) = %+v, want A2", m)
	}
	// C4 is in the standard table but not selected
	if m := c.Classify(261.63); m.Matched {
		t.Errorf("Classify(261.63) = %+v, want no match", m)
	}

	_, err = config.LoadFromReader(strings.NewReader("classifier:\n  notes: [E2, H9]\n"))
	if err == nil || !strings.Contains(err.Error(), `classifier.notes[1] "H9"`) {
		t.Errorf("unknown note error = %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sonido.yaml")
	if err := os.WriteFile(path, []byte("backend: file\ntranscode:\n  files: [a.wav, b.mp3]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend != config.BackendFile || len(cfg.Transcode.Files) != 2 {
		t.Errorf("Load = %+v", cfg)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) = %v, want ErrNotExist", err)
	}
}
