package capture

import "github.com/RyanBlaney/sonido-pitch/audio"

// Framer cuts a sample stream into fixed-size frames. Consecutive frames
// share overlap samples; frame k starts at sample k*hop.
type Framer struct {
	buffer     []float64
	frameSize  int
	hopSize    int
	writePos   int
	index      int64
	sampleRate float64
}

// NewFramer creates a framer. overlap must be in [0, frameSize).
func NewFramer(frameSize, overlap int, sampleRate float64) *Framer {
	return &Framer{
		buffer:     make([]float64, frameSize),
		frameSize:  frameSize,
		hopSize:    frameSize - overlap,
		sampleRate: sampleRate,
	}
}

// Push appends samples and calls emit for every completed frame, in order.
// Samples of an incomplete frame are kept for the next call.
func (f *Framer) Push(samples []float64, emit func(audio.Frame)) {
	for len(samples) > 0 {
		n := copy(f.buffer[f.writePos:], samples)
		f.writePos += n
		samples = samples[n:]

		if f.writePos < f.frameSize {
			return
		}

		frame := make([]float64, f.frameSize)
		copy(frame, f.buffer)
		timestamp := float64(f.index*int64(f.hopSize)) / f.sampleRate
		f.index++

		// Keep the overlap for the next frame
		copy(f.buffer, f.buffer[f.hopSize:])
		f.writePos = f.frameSize - f.hopSize

		emit(audio.NewFrame(frame, timestamp))
	}
}

// Pending returns the number of buffered samples not yet emitted as part of
// a frame
func (f *Framer) Pending() int {
	return f.writePos
}

// Frames returns the number of frames emitted so far
func (f *Framer) Frames() int64 {
	return f.index
}
