// Package tuner is the selection surface over the capture pipeline: it lists
// input devices and estimation algorithms and starts a run from a pair of
// indexes into those lists.
package tuner

import (
	"context"
	"fmt"
	"sync"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/RyanBlaney/sonido-pitch/capture"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// Source is what a tuner needs from an audio backend
type Source interface {
	audio.Catalog
	audio.Opener
}

// Option configures a Tuner
type Option func(*Tuner)

// WithCaptureDefaults sets the sample rate, frame size, overlap and
// frequency range used for every run. Device and algorithm are ignored.
func WithCaptureDefaults(cfg capture.Config) Option {
	return func(t *Tuner) { t.template = cfg }
}

// WithPipelineOptions passes options to the underlying capture pipeline
func WithPipelineOptions(opts ...capture.Option) Option {
	return func(t *Tuner) { t.pipelineOpts = append(t.pipelineOpts, opts...) }
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) Option {
	return func(t *Tuner) { t.logger = logging.OrNoOp(l) }
}

// Tuner selects a device and an algorithm by index and drives the pipeline
type Tuner struct {
	source       Source
	pipeline     *capture.Pipeline
	template     capture.Config
	pipelineOpts []capture.Option
	logger       logging.Logger

	mu      sync.Mutex
	devices []audio.Device // listing the indexes refer to
	listed  bool
}

// New creates a tuner reading from source and reporting to sink
func New(source Source, sink capture.Sink, opts ...Option) *Tuner {
	t := &Tuner{
		source:   source,
		template: capture.DefaultConfig(audio.Device{}, tonal.FFTPitch),
		logger:   &logging.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(t)
	}
	pipelineOpts := append([]capture.Option{capture.WithLogger(t.logger)}, t.pipelineOpts...)
	t.pipeline = capture.New(source, sink, pipelineOpts...)
	return t
}

// ListDevices enumerates the available inputs. Device indexes passed to
// Start refer to the most recent listing.
func (t *Tuner) ListDevices(ctx context.Context) ([]audio.Device, error) {
	devices, err := t.source.Devices(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.devices = devices
	t.listed = true
	t.mu.Unlock()

	out := make([]audio.Device, len(devices))
	copy(out, devices)
	return out, nil
}

// ListAlgorithms returns every estimation algorithm in index order
func (t *Tuner) ListAlgorithms() []tonal.Algorithm {
	return tonal.Algorithms()
}

// Start configures the pipeline for device deviceIndex and algorithm
// algorithmIndex, replacing any running capture. Out of range indexes yield
// a *audio.ConfigError before any device is opened.
func (t *Tuner) Start(ctx context.Context, deviceIndex, algorithmIndex int) error {
	algorithms := tonal.Algorithms()
	if algorithmIndex < 0 || algorithmIndex >= len(algorithms) {
		return &audio.ConfigError{
			Field:  "algorithm index",
			Reason: fmt.Sprintf("%d is outside [0, %d)", algorithmIndex, len(algorithms)),
		}
	}

	devices, err := t.listing(ctx)
	if err != nil {
		return err
	}
	if deviceIndex < 0 || deviceIndex >= len(devices) {
		return &audio.ConfigError{
			Field:  "device index",
			Reason: fmt.Sprintf("%d is outside [0, %d)", deviceIndex, len(devices)),
		}
	}

	cfg := t.template
	cfg.Device = devices[deviceIndex]
	cfg.Algorithm = algorithms[algorithmIndex]

	t.logger.Debug("starting capture", logging.Fields{
		"device":    cfg.Device.Name,
		"algorithm": cfg.Algorithm.String(),
	})
	return t.pipeline.Configure(ctx, cfg)
}

// listing returns the last device listing, enumerating once if there is none
func (t *Tuner) listing(ctx context.Context) ([]audio.Device, error) {
	t.mu.Lock()
	listed, devices := t.listed, t.devices
	t.mu.Unlock()
	if listed {
		return devices, nil
	}
	return t.ListDevices(ctx)
}

// Stop ends the running capture, if any
func (t *Tuner) Stop() error {
	return t.pipeline.Stop()
}

// Pipeline exposes the underlying capture pipeline
func (t *Tuner) Pipeline() *capture.Pipeline {
	return t.pipeline
}

// Wait blocks until the current run ends on its own or ctx is done. It
// returns the run's terminal error.
func (t *Tuner) Wait(ctx context.Context) error {
	select {
	case <-t.pipeline.Done():
		return t.pipeline.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
