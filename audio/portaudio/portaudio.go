// Package portaudio captures from sound cards through PortAudio blocking
// input streams.
package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/RyanBlaney/sonido-pitch/audio"
)

// BackendName identifies devices produced by this package
const BackendName = "portaudio"

// DefaultFramesPerBuffer is the number of samples fetched per blocking read
const DefaultFramesPerBuffer = 1024

// Backend owns the PortAudio library session
type Backend struct {
	framesPerBuffer int
	closeOnce       sync.Once
	closeErr        error
}

// New initializes PortAudio. Close must be called to release it.
func New(framesPerBuffer int) (*Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	if framesPerBuffer <= 0 {
		framesPerBuffer = DefaultFramesPerBuffer
	}
	return &Backend{framesPerBuffer: framesPerBuffer}, nil
}

// Name implements audio.Backend
func (b *Backend) Name() string { return BackendName }

// Close terminates PortAudio
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = portaudio.Terminate()
	})
	return b.closeErr
}

func deviceID(info *portaudio.DeviceInfo) string {
	host := ""
	if info.HostApi != nil {
		host = info.HostApi.Name
	}
	return host + "/" + info.Name
}

func descriptor(info *portaudio.DeviceInfo) audio.Device {
	return audio.Device{
		ID:                deviceID(info),
		Name:              info.Name,
		Backend:           BackendName,
		MaxInputChannels:  info.MaxInputChannels,
		DefaultSampleRate: info.DefaultSampleRate,
	}
}

// Devices implements audio.Catalog. Only devices with input channels are
// listed.
func (b *Backend) Devices(ctx context.Context) ([]audio.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, &audio.DeviceEnumerationError{Backend: BackendName, Err: err}
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, &audio.DeviceEnumerationError{Backend: BackendName, Err: err}
	}

	var devices []audio.Device
	for _, info := range infos {
		if info.MaxInputChannels > 0 {
			devices = append(devices, descriptor(info))
		}
	}
	return devices, nil
}

func (b *Backend) lookup(id string) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.MaxInputChannels > 0 && deviceID(info) == id {
			return info, nil
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

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   info,
			Channels: format.Channels,
			Latency:  info.DefaultHighInputLatency,
		},
		SampleRate:      format.SampleRate,
		FramesPerBuffer: b.framesPerBuffer,
	}

	buf := make([]int16, b.framesPerBuffer)
	if err := portaudio.IsFormatSupported(params, buf); err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: fmt.Errorf("%w: %v", audio.ErrUnsupportedFormat, err)}
	}

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}

	return &Stream{
		stream: stream,
		buf:    buf,
		bytes:  make([]byte, 2*len(buf)),
		order:  format.ByteOrder(),
	}, nil
}

// Stream adapts a PortAudio blocking input stream to io.Reader
type Stream struct {
	stream  *portaudio.Stream
	buf     []int16
	bytes   []byte
	pending []byte
	order   binary.ByteOrder

	overflows atomic.Uint64
	closeOnce sync.Once
	closeErr  error
}

// Read returns encoded samples, fetching a new buffer from the device when
// the previous one is drained
func (s *Stream) Read(p []byte) (int, error) {
	if len(s.pending) == 0 {
		if err := s.stream.Read(); err != nil {
			if !errors.Is(err, portaudio.InputOverflowed) {
				return 0, err
			}
			// The buffer still holds valid samples
			s.overflows.Add(1)
		}
		n := audio.EncodePCM16(s.bytes, s.buf, s.order)
		s.pending = s.bytes[:n]
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Overflows implements audio.OverflowReporter
func (s *Stream) Overflows() uint64 {
	return s.overflows.Load()
}

// Close stops and closes the device stream
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		stopErr := s.stream.Stop()
		s.closeErr = errors.Join(stopErr, s.stream.Close())
	})
	return s.closeErr
}
