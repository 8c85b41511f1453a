// Package synth is a deterministic tone generator that behaves like an audio
// input backend. It stands in for real hardware in tests and demos.
package synth

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/RyanBlaney/sonido-pitch/audio"
)

// BackendName identifies devices produced by this package
const BackendName = "synth"

// Tone describes one synthetic input device. A zero Frequency yields silence
// (plus optional noise).
type Tone struct {
	Name      string        `yaml:"name"`
	Frequency float64       `yaml:"frequency"` // Hz
	Amplitude float64       `yaml:"amplitude"` // peak, full scale = 1
	Noise     float64       `yaml:"noise"`     // peak amplitude of uniform white noise
	Duration  time.Duration `yaml:"duration"`  // 0 streams forever
}

func (t Tone) label() string {
	if t.Name != "" {
		return t.Name
	}
	if t.Frequency <= 0 {
		return "Silence"
	}
	return fmt.Sprintf("Sine %.2f Hz", t.Frequency)
}

// Backend serves one device per configured tone
type Backend struct {
	tones    []Tone
	realtime bool
	seed     uint64
}

// Option configures a Backend
type Option func(*Backend)

// WithRealtime paces reads to the sample rate, like a live device
func WithRealtime() Option {
	return func(b *Backend) { b.realtime = true }
}

// WithSeed sets the noise generator seed
func WithSeed(seed uint64) Option {
	return func(b *Backend) { b.seed = seed }
}

// New creates a backend with a device per tone. Without tones it offers a
// single A4 reference.
func New(tones []Tone, opts ...Option) *Backend {
	if len(tones) == 0 {
		tones = []Tone{{Name: "A4 reference", Frequency: 440, Amplitude: 0.5}}
	}
	b := &Backend{tones: append([]Tone(nil), tones...), seed: 1}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements audio.Backend
func (b *Backend) Name() string { return BackendName }

// Close implements audio.Backend
func (b *Backend) Close() error { return nil }

// Devices implements audio.Catalog
func (b *Backend) Devices(ctx context.Context) ([]audio.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, &audio.DeviceEnumerationError{Backend: BackendName, Err: err}
	}
	devices := make([]audio.Device, len(b.tones))
	for i, tone := range b.tones {
		devices[i] = audio.Device{
			ID:                BackendName + ":" + strconv.Itoa(i),
			Name:              tone.label(),
			Backend:           BackendName,
			MaxInputChannels:  1,
			DefaultSampleRate: audio.DefaultSampleRate,
		}
	}
	return devices, nil
}

// Open implements audio.Opener
func (b *Backend) Open(ctx context.Context, device audio.Device, format audio.Format) (audio.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}
	if err := format.Validate(); err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}

	idx, err := strconv.Atoi(strings.TrimPrefix(device.ID, BackendName+":"))
	if err != nil || !strings.HasPrefix(device.ID, BackendName+":") || idx < 0 || idx >= len(b.tones) {
		return nil, &audio.DeviceOpenError{Device: device, Err: audio.ErrDeviceNotFound}
	}

	tone := b.tones[idx]
	s := &Stream{
		tone:   tone,
		format: format,
		order:  format.ByteOrder(),
		rng:    rand.New(rand.NewPCG(b.seed, uint64(idx))),
	}
	if tone.Duration > 0 {
		s.limit = int64(math.Round(tone.Duration.Seconds() * format.SampleRate))
	}
	if b.realtime {
		s.started = time.Now()
		s.paced = true
	}
	return s, nil
}

// Stream generates PCM for one tone
type Stream struct {
	tone   Tone
	format audio.Format
	order  binary.ByteOrder
	rng    *rand.Rand

	produced int64
	limit    int64 // samples, 0 = endless

	// second byte of a sample split across reads
	pending    byte
	hasPending bool

	paced   bool
	started time.Time

	closed atomic.Bool
}

// Read fills p with 16-bit samples. A sample that does not fit is split
// and its second byte starts the next read.
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	if len(p) == 0 {
		return 0, nil
	}

	written := 0
	if s.hasPending {
		p[0] = s.pending
		s.hasPending = false
		written = 1
	}

	n := (len(p) - written + 1) / 2
	if s.limit > 0 {
		n = int(min(int64(n), s.limit-s.produced))
	}
	if n <= 0 {
		if written > 0 {
			return written, nil
		}
		return 0, io.EOF
	}

	rate := s.format.SampleRate
	var sample [2]byte
	for i := range n {
		t := float64(s.produced+int64(i)) / rate
		v := 0.0
		if s.tone.Frequency > 0 {
			v = s.tone.Amplitude * math.Sin(2*math.Pi*s.tone.Frequency*t)
		}
		if s.tone.Noise > 0 {
			v += s.tone.Noise * (s.rng.Float64()*2 - 1)
		}
		s.order.PutUint16(sample[:], uint16(audio.FloatToPCM16(v)))

		if written+2 <= len(p) {
			copy(p[written:], sample[:])
			written += 2
		} else {
			p[written] = sample[0]
			s.pending = sample[1]
			s.hasPending = true
			written++
		}
	}
	s.produced += int64(n)

	if s.paced {
		due := s.started.Add(time.Duration(float64(s.produced) / rate * float64(time.Second)))
		if wait := time.Until(due); wait > 0 {
			time.Sleep(wait)
		}
	}

	return written, nil
}

// Close releases the stream. Further reads fail.
func (s *Stream) Close() error {
	s.closed.Store(true)
	return nil
}
