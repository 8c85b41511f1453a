// Package transcode turns audio files into capture devices. Metadata comes
// from ffprobe; samples are decoded by an ffmpeg child process that streams
// raw 16-bit PCM on its stdout.
package transcode

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// Config holds decoder configuration
type Config struct {
	FFmpegPath  string        `yaml:"ffmpeg_path"`  // Path to ffmpeg binary
	FFprobePath string        `yaml:"ffprobe_path"` // Path to ffprobe binary
	Timeout     time.Duration `yaml:"timeout"`      // Timeout for ffprobe calls

	// Realtime makes ffmpeg emit samples at playback speed (-re)
	Realtime bool `yaml:"realtime"`

	// MaxDuration truncates decoding, 0 decodes the whole file
	MaxDuration time.Duration `yaml:"max_duration"`

	// Normalize applies EBU R128 loudness normalization before capture
	Normalize  bool    `yaml:"normalize"`
	TargetLUFS float64 `yaml:"target_lufs"`
	TargetPeak float64 `yaml:"target_peak"`
}

// DefaultConfig returns default decoder configuration
func DefaultConfig() Config {
	return Config{
		FFmpegPath:  "ffmpeg",  // Assume in PATH
		FFprobePath: "ffprobe", // Assume in PATH
		Timeout:     15 * time.Second,
		TargetLUFS:  -16.0,
		TargetPeak:  -1.0,
	}
}

// Metadata holds detected audio properties from ffprobe
type Metadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// Probe uses ffprobe to read the first audio stream of filename
func Probe(ctx context.Context, cfg Config, filename string) (*Metadata, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		filename,
	}

	cmd := exec.CommandContext(ctx, cfg.FFprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbeOutput(output)
}

// parseProbeOutput parses ffprobe JSON to extract audio metadata
func parseProbeOutput(jsonData []byte) (*Metadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil {
		sampleRate = int(audio.DefaultSampleRate)
	}

	// Duration and bitrate are optional in ffprobe output
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &Metadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// ffmpegArgs builds the decode command line for filename in format
func ffmpegArgs(cfg Config, filename string, format audio.Format) []string {
	args := []string{"-nostdin", "-v", "error"}
	if cfg.Realtime {
		args = append(args, "-re")
	}
	args = append(args, "-i", filename, "-map", "0:a:0", "-vn")

	if cfg.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", cfg.MaxDuration.Seconds()))
	}
	if cfg.Normalize {
		args = append(args, "-af", fmt.Sprintf("loudnorm=I=%.1f:TP=%.1f", cfg.TargetLUFS, cfg.TargetPeak))
	}

	sampleFormat := "s16le"
	if format.BigEndian {
		sampleFormat = "s16be"
	}
	args = append(args,
		"-f", sampleFormat,
		"-ac", strconv.Itoa(format.Channels),
		"-ar", strconv.FormatFloat(format.SampleRate, 'f', 0, 64),
		"pipe:1", // Output to stdout
	)
	return args
}

// CheckAvailability checks that ffmpeg and ffprobe can be executed
func CheckAvailability(cfg Config) error {
	if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", cfg.FFmpegPath, err)
	}
	if _, err := exec.LookPath(cfg.FFprobePath); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", cfg.FFprobePath, err)
	}
	return nil
}

func commandLogger(filename string) logging.Logger {
	return logging.WithFields(logging.Fields{
		"component": "transcode",
		"filename":  filename,
	})
}
