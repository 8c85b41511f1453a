package audio_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-pitch/audio"
)

func TestChunkQueue(t *testing.T) {
	t.Parallel()

	q := audio.NewChunkQueue(2)
	if !q.Push([]byte{1, 2, 3, 4}) || !q.Push([]byte{5, 6}) {
		t.Fatal("push into empty queue failed")
	}
	if q.Push([]byte{7, 8}) {
		t.Error("push into full queue should drop")
	}
	if got := q.Overflows(); got != 1 {
		t.Errorf("Overflows() = %d, want 1", got)
	}

	// Reads may split a chunk
	buf := make([]byte, 3)
	n, err := q.Read(buf)
	if err != nil || n != 3 || buf[0] != 1 || buf[2] != 3 {
		t.Fatalf("Read = %d, %v, %v", n, err, buf[:n])
	}
	n, _ = q.Read(buf)
	if n != 1 || buf[0] != 4 {
		t.Fatalf("second Read = %d, %v", n, buf[:n])
	}
	n, _ = q.Read(buf)
	if n != 2 || buf[0] != 5 || buf[1] != 6 {
		t.Fatalf("third Read = %d, %v", n, buf[:n])
	}
}

func TestChunkQueueCloseUnblocksReader(t *testing.T) {
	t.Parallel()

	q := audio.NewChunkQueue(1)
	result := make(chan error, 1)
	go func() {
		_, err := q.Read(make([]byte, 8))
		result <- err
	}()

	time.Sleep(10 * time.Millisecond)
	q.Close()
	q.Close()

	select {
	case err := <-result:
		if !errors.Is(err, io.ErrClosedPipe) {
			t.Errorf("Read after Close = %v, want ErrClosedPipe", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reader still blocked after Close")
	}

	if q.Push([]byte{1, 2}) {
		t.Error("push after Close should be discarded")
	}
}
