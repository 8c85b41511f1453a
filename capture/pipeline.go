// Package capture runs the real-time pitch pipeline: it reads PCM from an
// input device, cuts it into overlapping frames and passes every frame
// through a pitch estimator, the signal quality gate and the note classifier
// before reporting it to a Sink.
//
// A Pipeline runs at most one capture at a time. Configure always stops and
// joins the previous run before the next one opens its device.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/RyanBlaney/sonido-pitch/logging"
	"github.com/RyanBlaney/sonido-pitch/tuning"
)

// DefaultReadChunk is the number of samples requested per device read
const DefaultReadChunk = 1024

// maxEmptyReads bounds consecutive reads that return no data and no error
const maxEmptyReads = 100

// State is the lifecycle position of a Pipeline
type State int32

const (
	Idle State = iota
	Starting
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// EstimatorFactory builds the estimator of a run
type EstimatorFactory func(tonal.Algorithm, tonal.Params) (tonal.Estimator, error)

// Option configures a Pipeline
type Option func(*Pipeline)

// WithGate replaces the default signal quality gate
func WithGate(g tuning.Gate) Option {
	return func(p *Pipeline) { p.gate = g }
}

// WithClassifier replaces the default note classifier
func WithClassifier(c *tuning.Classifier) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.classifier = c
		}
	}
}

// WithEstimatorFactory replaces tonal.New
func WithEstimatorFactory(f EstimatorFactory) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.newEstimator = f
		}
	}
}

// WithLogger sets the logger for lifecycle debug messages
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) { p.logger = logging.OrNoOp(l) }
}

// WithMetrics sets the metric instruments
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithReadChunk sets the number of samples requested per device read
func WithReadChunk(samples int) Option {
	return func(p *Pipeline) {
		if samples > 0 {
			p.readChunk = samples
		}
	}
}

// run is one capture session: one device, one estimator, one goroutine
type run struct {
	cfg    Config
	stream audio.Stream

	stop atomic.Bool
	done chan struct{}

	// written by the capture goroutine before done is closed
	err      error
	closeErr error
}

// Pipeline owns the active capture run
type Pipeline struct {
	opener       audio.Opener
	sink         Sink
	gate         tuning.Gate
	classifier   *tuning.Classifier
	newEstimator EstimatorFactory
	logger       logging.Logger
	metrics      *Metrics
	readChunk    int

	// transition serialises Configure and Stop
	transition sync.Mutex

	// mu guards the fields below
	mu     sync.Mutex
	state  State
	active *run
	last   *run
}

// New creates an idle pipeline reading from opener and reporting to sink
func New(opener audio.Opener, sink Sink, opts ...Option) *Pipeline {
	if sink == nil {
		sink = Discard
	}
	p := &Pipeline{
		opener:     opener,
		sink:       sink,
		gate:       tuning.DefaultGate(),
		classifier: tuning.DefaultClassifier(),
		newEstimator: func(a tonal.Algorithm, params tonal.Params) (tonal.Estimator, error) {
			return tonal.New(a, params)
		},
		logger:    &logging.NoOpLogger{},
		readChunk: DefaultReadChunk,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = DefaultMetrics()
	}
	return p
}

// State returns the current lifecycle state
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Config returns the configuration of the active run
func (p *Pipeline) Config() (Config, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return Config{}, false
	}
	return p.active.cfg, true
}

// Done returns a channel closed when the most recent run terminates. Before
// the first run it returns a closed channel.
func (p *Pipeline) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return p.last.done
}

// Err returns the error that terminated the most recent run: a
// *audio.CaptureError, or nil when it was stopped or reached end of stream.
// It is only meaningful once Done is closed.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	if last == nil {
		return nil
	}
	select {
	case <-last.done:
		return last.err
	default:
		return nil
	}
}

// Configure validates cfg, stops any running capture and starts a new run.
// An invalid config leaves the current run untouched. If the device cannot be
// opened the pipeline ends up Idle and a *audio.DeviceOpenError is returned.
func (p *Pipeline) Configure(ctx context.Context, cfg Config) error {
	p.transition.Lock()
	defer p.transition.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}
	estimator, err := p.newEstimator(cfg.Algorithm, cfg.EstimatorParams())
	if err != nil {
		return &audio.ConfigError{Field: "algorithm", Reason: "cannot build estimator", Err: err}
	}

	if err := p.stopLocked(); err != nil {
		p.logger.Debug("previous run released with error", logging.Fields{"error": err.Error()})
	}

	p.setState(Starting)
	fields := logging.Fields{
		"device":    cfg.Device.Name,
		"algorithm": cfg.Algorithm.String(),
		"rate":      cfg.SampleRate,
		"frame":     cfg.FrameSize,
		"overlap":   cfg.Overlap,
		"hop":       cfg.Hop(),
	}
	p.logger.Debug("opening capture device", fields)

	stream, err := p.opener.Open(ctx, cfg.Device, cfg.Format())
	if err != nil {
		p.setState(Idle)
		var openErr *audio.DeviceOpenError
		if !errors.As(err, &openErr) {
			err = &audio.DeviceOpenError{Device: cfg.Device, Err: err}
		}
		return err
	}

	r := &run{
		cfg:    cfg,
		stream: stream,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	p.state = Running
	p.active = r
	p.last = r
	p.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	p.metrics.RunsActive.Add(runCtx, 1)
	p.logger.Debug("capture run started", fields)

	go p.capture(runCtx, r, estimator)
	return nil
}

// Stop ends the active run and waits for its goroutine to exit. It is a
// no-op when the pipeline is idle. The returned error reports a failure to
// release the device.
func (p *Pipeline) Stop() error {
	p.transition.Lock()
	defer p.transition.Unlock()
	return p.stopLocked()
}

func (p *Pipeline) stopLocked() error {
	p.mu.Lock()
	r := p.active
	if r == nil {
		p.mu.Unlock()
		return nil
	}
	p.state = Stopping
	p.mu.Unlock()

	// Observed by the capture goroutine once its in-flight read returns
	r.stop.Store(true)
	<-r.done

	p.mu.Lock()
	if p.active == r {
		p.active = nil
	}
	p.state = Idle
	p.mu.Unlock()

	p.logger.Debug("capture run stopped", logging.Fields{"device": r.cfg.Device.Name})
	return r.closeErr
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// capture is the body of the run goroutine. It owns the stream and closes it
// before signalling completion.
func (p *Pipeline) capture(ctx context.Context, r *run, estimator tonal.Estimator) {
	err := p.readLoop(ctx, r, estimator)
	closeErr := r.stream.Close()

	if err != nil {
		p.metrics.CaptureErrors.Add(ctx, 1)
		p.logger.Debug("capture run failed", logging.Fields{
			"device": r.cfg.Device.Name,
			"error":  err.Error(),
		})
	}
	p.metrics.RunsActive.Add(ctx, -1)

	p.mu.Lock()
	r.err = err
	r.closeErr = closeErr
	// A run that ends on its own returns the pipeline to Idle
	if p.active == r && p.state == Running {
		p.active = nil
		p.state = Idle
	}
	p.mu.Unlock()

	close(r.done)
}

func (p *Pipeline) readLoop(ctx context.Context, r *run, estimator tonal.Estimator) error {
	cfg := r.cfg
	order := cfg.Format().ByteOrder()
	framer := NewFramer(cfg.FrameSize, cfg.Overlap, cfg.SampleRate)
	blocker, _ := cfg.dcBlocker() // validated by Configure

	buf := make([]byte, 2*p.readChunk)
	samples := make([]float64, p.readChunk)
	carry := 0 // odd trailing byte kept from the previous read
	empty := 0

	overflows, _ := r.stream.(audio.OverflowReporter)
	var lastOverflows uint64

	emit := func(frame audio.Frame) {
		p.process(ctx, estimator, frame)
	}

	for {
		n, readErr := r.stream.Read(buf[carry:])
		if r.stop.Load() {
			// Data read after the stop request is discarded
			return nil
		}

		if n > 0 {
			empty = 0
			total := carry + n
			count := audio.DecodePCM16(samples, buf[:total], order)
			carry = total - 2*count
			if carry > 0 {
				buf[0] = buf[total-1]
			}
			if blocker != nil {
				blocker.Process(samples[:count])
			}
			framer.Push(samples[:count], emit)
		}

		if overflows != nil {
			if current := overflows.Overflows(); current > lastOverflows {
				p.metrics.InputOverflows.Add(ctx, int64(current-lastOverflows))
				lastOverflows = current
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				p.logger.Debug("end of stream", logging.Fields{
					"device":  cfg.Device.Name,
					"frames":  framer.Frames(),
					"dropped": framer.Pending(),
				})
				return nil
			}
			return &audio.CaptureError{Device: cfg.Device, Err: readErr}
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return &audio.CaptureError{Device: cfg.Device, Err: io.ErrNoProgress}
			}
		}
	}
}

// process runs one frame through estimate, gate and classify
func (p *Pipeline) process(ctx context.Context, estimator tonal.Estimator, frame audio.Frame) {
	start := time.Now()
	est := estimator.Estimate(frame)
	p.metrics.EstimateDuration.Record(ctx, time.Since(start).Seconds())
	p.metrics.FramesProcessed.Add(ctx, 1)

	if verdict := p.gate.Check(est); verdict != tuning.Admitted {
		p.metrics.RecordRejected(ctx, verdict)
		return
	}

	match := p.classifier.Classify(est.Frequency)
	p.metrics.RecordClassified(ctx, match.Matched)

	p.sink.Report(Event{
		Timestamp:   est.Timestamp,
		Frequency:   est.Frequency,
		Probability: est.Probability,
		RMSPercent:  est.RMS * 100,
		Match:       match,
	})
}
