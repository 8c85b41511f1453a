package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DefaultSampleRate is the capture rate used when none is configured.
const DefaultSampleRate = 48000.0

// Format describes the PCM layout a stream delivers.
type Format struct {
	SampleRate float64
	BitDepth   int
	Channels   int
	BigEndian  bool
	Signed     bool
}

// DefaultFormat returns 16-bit signed big-endian mono at sampleRate.
func DefaultFormat(sampleRate float64) Format {
	return Format{
		SampleRate: sampleRate,
		BitDepth:   16,
		Channels:   1,
		BigEndian:  true,
		Signed:     true,
	}
}

// FrameBytes returns the number of bytes per sample frame (all channels).
func (f Format) FrameBytes() int {
	return f.Channels * f.BitDepth / 8
}

// ByteOrder returns the binary order samples are encoded in.
func (f Format) ByteOrder() binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Validate reports whether f is a layout the pipeline can decode: signed
// 16-bit mono at a positive sample rate.
func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0 || math.IsNaN(f.SampleRate) || math.IsInf(f.SampleRate, 0):
		return fmt.Errorf("%w: sample rate %v", ErrUnsupportedFormat, f.SampleRate)
	case f.BitDepth != 16:
		return fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, f.BitDepth)
	case f.Channels != 1:
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, f.Channels)
	case !f.Signed:
		return fmt.Errorf("%w: unsigned samples", ErrUnsupportedFormat)
	}
	return nil
}

func (f Format) String() string {
	endian := "little-endian"
	if f.BigEndian {
		endian = "big-endian"
	}
	sign := "unsigned"
	if f.Signed {
		sign = "signed"
	}
	return fmt.Sprintf("%.0f Hz, %d-bit, %d ch, %s %s", f.SampleRate, f.BitDepth, f.Channels, sign, endian)
}

// DecodePCM16 converts 16-bit signed PCM bytes into samples in [-1, 1).
// dst must hold len(src)/2 samples; a trailing odd byte is ignored.
// It returns the number of samples written.
func DecodePCM16(dst []float64, src []byte, order binary.ByteOrder) int {
	n := min(len(src)/2, len(dst))
	for i := range n {
		dst[i] = float64(int16(order.Uint16(src[2*i:]))) / 32768.0
	}
	return n
}

// EncodePCM16 writes samples as 16-bit signed PCM into dst, which must hold
// 2*len(samples) bytes. It returns the number of bytes written.
func EncodePCM16(dst []byte, samples []int16, order binary.ByteOrder) int {
	n := min(len(dst)/2, len(samples))
	for i := range n {
		order.PutUint16(dst[2*i:], uint16(samples[i]))
	}
	return 2 * n
}

// FloatToPCM16 quantises a sample in [-1, 1] to int16, clipping out-of-range values.
func FloatToPCM16(v float64) int16 {
	scaled := math.Round(v * 32767.0)
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}
