package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// BackendName identifies devices produced by this package
const BackendName = "file"

// Backend exposes a fixed list of audio files as input devices
type Backend struct {
	cfg   Config
	files []string
}

// NewBackend creates a file backend over files
func NewBackend(cfg Config, files ...string) *Backend {
	return &Backend{cfg: cfg, files: append([]string(nil), files...)}
}

// Name implements audio.Backend
func (b *Backend) Name() string { return BackendName }

// Close implements audio.Backend
func (b *Backend) Close() error { return nil }

// Devices implements audio.Catalog. Files that cannot be probed are skipped.
func (b *Backend) Devices(ctx context.Context) ([]audio.Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, &audio.DeviceEnumerationError{Backend: BackendName, Err: err}
	}
	if _, err := exec.LookPath(b.cfg.FFprobePath); err != nil {
		return nil, &audio.DeviceEnumerationError{Backend: BackendName, Err: err}
	}

	var devices []audio.Device
	for _, file := range b.files {
		meta, err := Probe(ctx, b.cfg, file)
		if err != nil {
			commandLogger(file).Debug("Skipping unreadable file", logging.Fields{"error": err.Error()})
			continue
		}
		devices = append(devices, audio.Device{
			ID:                file,
			Name:              filepath.Base(file),
			Backend:           BackendName,
			MaxInputChannels:  meta.Channels,
			DefaultSampleRate: float64(meta.SampleRate),
		})
	}
	return devices, nil
}

// Open implements audio.Opener by starting ffmpeg on the device's file
func (b *Backend) Open(ctx context.Context, device audio.Device, format audio.Format) (audio.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}
	if err := format.Validate(); err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}
	if !b.known(device.ID) {
		return nil, &audio.DeviceOpenError{Device: device, Err: audio.ErrDeviceNotFound}
	}

	args := ffmpegArgs(b.cfg, device.ID, format)
	commandLogger(device.ID).Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	// The process outlives ctx; it is stopped by Close
	cmd := exec.Command(b.cfg.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: err}
	}
	s := &Stream{cmd: cmd, stdout: stdout}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, &audio.DeviceOpenError{Device: device, Err: fmt.Errorf("start ffmpeg: %w", err)}
	}
	return s, nil
}

func (b *Backend) known(id string) bool {
	for _, f := range b.files {
		if f == id {
			return true
		}
	}
	return false
}

// Stream reads decoded PCM from a running ffmpeg process
type Stream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer

	waitOnce sync.Once
	waitErr  error

	closeOnce sync.Once
	closing   bool
}

// Read returns io.EOF once ffmpeg finished successfully. A failed decode is
// reported with ffmpeg's error output instead.
func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.stdout.Read(p)
	if errors.Is(err, io.EOF) {
		if waitErr := s.wait(); waitErr != nil && !s.closing {
			return n, fmt.Errorf("ffmpeg decode failed: %w, stderr: %s", waitErr, strings.TrimSpace(s.stderr.String()))
		}
	}
	return n, err
}

func (s *Stream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

// Close stops ffmpeg and reaps the process
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closing = true
		// Kill fails harmlessly when ffmpeg already exited
		_ = s.cmd.Process.Kill()
		_ = s.wait()
	})
	return nil
}
