package filters

import (
	"math"
	"testing"
)

func TestDCBlockerRemovesOffset(t *testing.T) {
	dc, err := NewDCBlocker(48000, 20)
	if err != nil {
		t.Fatal(err)
	}

	signal := make([]float64, 48000)
	for i := range signal {
		signal[i] = 0.3 + 0.2*math.Sin(2*math.Pi*220*float64(i)/48000)
	}
	dc.Process(signal)

	// After the transient the mean of the last 0.1 s is near zero
	tail := signal[len(signal)-4800:]
	mean, peak := 0.0, 0.0
	for _, v := range tail {
		mean += v
		peak = max(peak, math.Abs(v))
	}
	mean /= float64(len(tail))
	if math.Abs(mean) > 1e-3 {
		t.Errorf("residual offset %v", mean)
	}
	if peak < 0.19 || peak > 0.21 {
		t.Errorf("220 Hz peak %v, want about 0.2", peak)
	}
}

func TestDCBlockerStreaming(t *testing.T) {
	whole, _ := NewDCBlocker(48000, 10)
	split, _ := NewDCBlocker(48000, 10)

	a := make([]float64, 1000)
	for i := range a {
		a[i] = math.Sin(float64(i)/7) + 0.5
	}
	b := append([]float64(nil), a...)

	whole.Process(a)
	split.Process(b[:333])
	split.Process(b[333:])
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs between chunked and whole processing", i)
		}
	}

	fresh, _ := NewDCBlocker(48000, 10)
	c := []float64{1}
	fresh.Process(c)
	if c[0] != 1 {
		t.Errorf("first sample of a fresh filter = %v, want 1", c[0])
	}
}

func TestNewDCBlockerRejectsCutoff(t *testing.T) {
	for _, cutoff := range []float64{0, -5, 24000, math.NaN()} {
		if _, err := NewDCBlocker(48000, cutoff); err == nil {
			t.Errorf("cutoff %v: expected error", cutoff)
		}
	}
}
