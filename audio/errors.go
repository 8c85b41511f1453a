package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is wrapped when a device or the pipeline cannot
	// handle the requested PCM layout.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrDeviceNotFound is wrapped when a device descriptor no longer maps to
	// an available input.
	ErrDeviceNotFound = errors.New("device not found")
)

// DeviceEnumerationError reports that a backend could not list its inputs.
type DeviceEnumerationError struct {
	Backend string
	Err     error
}

func (e *DeviceEnumerationError) Error() string {
	return fmt.Sprintf("audio: enumerate %s devices: %v", e.Backend, e.Err)
}

func (e *DeviceEnumerationError) Unwrap() error { return e.Err }

// DeviceOpenError reports that the selected device could not be opened in the
// required format.
type DeviceOpenError struct {
	Device Device
	Err    error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("audio: open device %q: %v", e.Device.Name, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// CaptureError reports a read failure on a running stream.
type CaptureError struct {
	Device Device
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("audio: capture from %q: %v", e.Device.Name, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// ConfigError reports an invalid selection index or pipeline configuration.
// It is always returned before any device is touched.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("audio: invalid %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }
