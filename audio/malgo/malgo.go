// Package malgo captures from sound cards through miniaudio. The device
// delivers audio on a callback thread; chunks are queued for the blocking
// reader of the capture pipeline.
package malgo

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// BackendName identifies devices produced by this package
const BackendName = "malgo"

// DefaultQueueDepth is the number of callback chunks buffered per stream
const DefaultQueueDepth = 64

// Backend owns a miniaudio context
type Backend struct {
	ctx        *malgo.AllocatedContext
	queueDepth int
	logger     logging.Logger

	closeOnce sync.Once
	closeErr  error
}

// New initializes a miniaudio context. Library messages go to logger at
// debug level.
func New(queueDepth int, logger logging.Logger) (*Backend, error) {
	logger = logging.OrNoOp(logger).WithFields(logging.Fields{"backend": BackendName})
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug(message)
	})
	if err != nil {
		return nil, fmt.Errorf("malgo: init context: %w", err)
	}
	if queueDepth <= 0 {
		queueDepth = DefaultQueueDepth
	}
	return &Backend{ctx: ctx, queueDepth: queueDepth, logger: logger}, nil
}

// Name implements audio.Backend
func (b *Backend) Name() string { return BackendName }

// Close releases the miniaudio context
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.ctx.Uninit()
		b.ctx.Free()
	})
	return b.closeErr
}

// Devices implements audio.Catalog
func (b *Backend) Devices(ctx context.Context) ([]audio.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, &audio.DeviceEnumerationError{Backend: BackendName, Err: err}
	}
	infos, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, &audio.DeviceEnumerationError{Backend: BackendName, Err: err}
	}

	devices := make([]audio.Device, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if name == "" {
			name = "Unknown input"
		}
		devices = append(devices, audio.Device{
			ID:                info.ID.String(),
			Name:              name,
			Backend:           BackendName,
			MaxInputChannels:  1,
			DefaultSampleRate: defaultRate(info),
		})
	}
	return devices, nil
}

func defaultRate(info malgo.DeviceInfo) float64 {
	for _, f := range info.Formats {
		if f.SampleRate > 0 {
			return float64(f.SampleRate)
		}
	}
	return audio.DefaultSampleRate
}

func (b *Backend) lookup(id string) (*malgo.DeviceInfo, error) {
	infos, err := b.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	for i := range infos {
		if infos[i].ID.String() == id {
			info := infos[i]
			return &info, nil
		}
	}
	return nil, audio.ErrDeviceNotFound
}

// Open implements audio.Opener
func (b *Backend) Open(ctx context.Context, device audio.Device, format audio.Format) (audio.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}
	if err := format.Validate(); err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}

	info, err := b.lookup(device.ID)
	if err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = uint32(format.Channels)
	config.Capture.DeviceID = info.ID.Pointer()
	config.SampleRate = uint32(format.SampleRate)
	config.Alsa.NoMMap = 1

	queue := audio.NewChunkQueue(b.queueDepth)
	swap := format.BigEndian

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			if len(input) == 0 {
				return
			}
			// miniaudio delivers native little-endian samples
			chunk := make([]byte, len(input))
			copy(chunk, input)
			if swap {
				for i := 0; i+1 < len(chunk); i += 2 {
					chunk[i], chunk[i+1] = chunk[i+1], chunk[i]
				}
			}
			queue.Push(chunk)
		},
	}

	dev, err := malgo.InitDevice(b.ctx.Context, config, callbacks)
	if err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}

	b.logger.Debug("capture device started", logging.Fields{
		"device": device.Name,
		"rate":   format.SampleRate,
	})
	return &Stream{device: dev, queue: queue}, nil
}

// Stream reads queued callback chunks
type Stream struct {
	device *malgo.Device
	queue  *audio.ChunkQueue

	closeOnce sync.Once
	closeErr  error
}

// Read implements io.Reader
func (s *Stream) Read(p []byte) (int, error) {
	return s.queue.Read(p)
}

// Overflows implements audio.OverflowReporter
func (s *Stream) Overflows() uint64 {
	return s.queue.Overflows()
}

// Close stops the device and unblocks pending reads
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.device.Stop()
		s.device.Uninit()
		s.queue.Close()
	})
	return s.closeErr
}
