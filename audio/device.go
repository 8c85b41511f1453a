// Package audio defines the device abstractions, PCM format handling and
// error taxonomy shared by the capture pipeline and its backends.
//
// A backend implements [Catalog] to enumerate inputs and [Opener] to turn a
// [Device] into a blocking [Stream] of PCM bytes. Backends live in
// subpackages (audio/portaudio, audio/malgo, audio/synth) and in transcode
// for file input.
package audio

import (
	"context"
	"io"
)

// Device is an immutable descriptor of one input source, as returned by a
// single enumeration.
type Device struct {
	// ID is the backend specific identifier used to reopen the device.
	ID string

	// Name is the human readable display name.
	Name string

	// Backend names the backend that produced the descriptor.
	Backend string

	MaxInputChannels  int
	DefaultSampleRate float64
}

// Catalog enumerates the input sources that are available right now.
// Results are not cached between calls.
type Catalog interface {
	Devices(ctx context.Context) ([]Device, error)
}

// Stream is a blocking reader of PCM bytes in the format the stream was
// opened with. Close releases the device.
type Stream interface {
	io.ReadCloser
}

// Opener opens a device for capture in the given format. Failures are
// reported as *DeviceOpenError.
type Opener interface {
	Open(ctx context.Context, device Device, format Format) (Stream, error)
}

// Backend bundles enumeration and opening for one audio subsystem.
type Backend interface {
	Catalog
	Opener

	// Name identifies the backend, e.g. "portaudio".
	Name() string

	// Close releases subsystem wide resources.
	Close() error
}

// OverflowReporter is implemented by streams that can lose input when the
// reader falls behind. Overflows returns the running count of lost chunks.
type OverflowReporter interface {
	Overflows() uint64
}
