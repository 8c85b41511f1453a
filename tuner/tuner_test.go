package tuner_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/RyanBlaney/sonido-pitch/algorithms/tonal"
	"github.com/RyanBlaney/sonido-pitch/audio"
	"github.com/RyanBlaney/sonido-pitch/audio/synth"
	"github.com/RyanBlaney/sonido-pitch/capture"
	"github.com/RyanBlaney/sonido-pitch/tuner"
)

// countingSource wraps a backend and counts device interactions
type countingSource struct {
	*synth.Backend
	mu    sync.Mutex
	lists int
	opens int
}

func (c *countingSource) Devices(ctx context.Context) ([]audio.Device, error) {
	c.mu.Lock()
	c.lists++
	c.mu.Unlock()
	return c.Backend.Devices(ctx)
}

func (c *countingSource) Open(ctx context.Context, d audio.Device, f audio.Format) (audio.Stream, error) {
	c.mu.Lock()
	c.opens++
	c.mu.Unlock()
	return c.Backend.Open(ctx, d, f)
}

func newTuner(t *testing.T, tones []synth.Tone, sink capture.Sink) (*tuner.Tuner, *countingSource) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	met, err := capture.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}

	src := &countingSource{Backend: synth.New(tones)}
	defaults := capture.DefaultConfig(audio.Device{}, tonal.YIN)
	defaults.FrameSize = 4096
	tn := tuner.New(src, sink,
		tuner.WithCaptureDefaults(defaults),
		tuner.WithPipelineOptions(capture.WithMetrics(met)),
	)
	t.Cleanup(func() { _ = tn.Stop() })
	return tn, src
}

func TestListAlgorithms(t *testing.T) {
	t.Parallel()

	tn, _ := newTuner(t, nil, nil)
	algs := tn.ListAlgorithms()
	if len(algs) != 6 || algs[0] != tonal.FFTPitch || algs[5] != tonal.AMDF {
		t.Errorf("ListAlgorithms() = %v", algs)
	}
}

func TestStartRejectsBadIndexes(t *testing.T) {
	t.Parallel()

	tn, src := newTuner(t, nil, nil)
	devices, err := tn.ListDevices(context.Background())
	if err != nil || len(devices) != 1 {
		t.Fatalf("ListDevices = %v, %v", devices, err)
	}

	cases := []struct{ device, algorithm int }{
		{1, 0}, {-1, 0}, {0, 6}, {0, -1}, {5, 99},
	}
	for _, tc := range cases {
		var cfgErr *audio.ConfigError
		if err := tn.Start(context.Background(), tc.device, tc.algorithm); !errors.As(err, &cfgErr) {
			t.Errorf("Start(%d, %d) = %v, want ConfigError", tc.device, tc.algorithm, err)
		}
	}

	if src.opens != 0 {
		t.Errorf("bad indexes opened the device %d times", src.opens)
	}
	if src.lists != 1 {
		t.Errorf("bad indexes re-enumerated devices (%d listings)", src.lists)
	}
	if s := tn.Pipeline().State(); s != capture.Idle {
		t.Errorf("state = %s, want idle", s)
	}
}

func TestStartAndSwitch(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var notes []string
	sink := capture.SinkFunc(func(e capture.Event) {
		mu.Lock()
		notes = append(notes, e.Match.Note.Name)
		mu.Unlock()
	})
	tn, src := newTuner(t, []synth.Tone{
		{Frequency: 329.63, Amplitude: 0.4, Duration: 500 * time.Millisecond},
		{Frequency: 196, Amplitude: 0.4, Duration: 500 * time.Millisecond},
	}, sink)
	ctx := context.Background()

	// Without a prior listing Start enumerates once
	if err := tn.Start(ctx, 0, 3); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := tn.Wait(waitCtx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	// A run that reaches end of stream leaves no active config behind
	if cfg, ok := tn.Pipeline().Config(); ok {
		t.Errorf("active config after end of stream = %+v", cfg)
	}

	if err := tn.Start(ctx, 1, 2); err != nil {
		t.Fatalf("Start second: %v", err)
	}
	if err := tn.Wait(waitCtx); err != nil {
		t.Fatalf("Wait second: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	// 24000 samples per tone make 5 frames of 4096
	if len(notes) != 10 {
		t.Fatalf("got %d events, want 10: %v", len(notes), notes)
	}
	for i, n := range notes {
		want := "E4"
		if i >= 5 {
			want = "G3"
		}
		if n != want {
			t.Errorf("event %d = %s, want %s", i, n, want)
		}
	}
	if src.lists != 1 || src.opens != 2 {
		t.Errorf("device interactions: %d listings, %d opens", src.lists, src.opens)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	t.Parallel()

	tn, _ := newTuner(t, nil, nil)
	if err := tn.Start(context.Background(), 0, 0); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tn.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want deadline exceeded", err)
	}
	if err := tn.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}
