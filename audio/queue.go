package audio

import (
	"io"
	"sync"
	"sync/atomic"
)

// ChunkQueue hands PCM chunks from a device callback to a blocking reader.
// Push never blocks: when the queue is full the chunk is dropped and counted
// as an overflow.
type ChunkQueue struct {
	chunks  chan []byte
	pending []byte

	dropped atomic.Uint64

	closed    chan struct{}
	closeOnce sync.Once
}

// NewChunkQueue creates a queue holding up to depth chunks
func NewChunkQueue(depth int) *ChunkQueue {
	return &ChunkQueue{
		chunks: make(chan []byte, max(depth, 1)),
		closed: make(chan struct{}),
	}
}

// Push enqueues chunk and takes ownership of it. It reports false when the
// chunk was dropped.
func (q *ChunkQueue) Push(chunk []byte) bool {
	select {
	case <-q.closed:
		return false
	default:
	}

	select {
	case q.chunks <- chunk:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Read copies queued bytes into p, blocking until a chunk is available or
// the queue is closed
func (q *ChunkQueue) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(q.pending) == 0 {
		select {
		case chunk := <-q.chunks:
			q.pending = chunk
		case <-q.closed:
			return 0, io.ErrClosedPipe
		}
	}

	n := copy(p, q.pending)
	q.pending = q.pending[n:]
	return n, nil
}

// Overflows implements OverflowReporter
func (q *ChunkQueue) Overflows() uint64 {
	return q.dropped.Load()
}

// Close wakes a blocked reader. Later pushes are discarded.
func (q *ChunkQueue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
