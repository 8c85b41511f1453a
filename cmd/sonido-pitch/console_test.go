package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/RyanBlaney/sonido-pitch/capture"
	"github.com/RyanBlaney/sonido-pitch/tuning"
)

func TestFormatEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event capture.Event
		want  string
	}{
		{
			name: "matched",
			event: capture.Event{
				Timestamp: 0.341, Frequency: 440.004, Probability: 0.981, RMSPercent: 12.345671,
				Match: tuning.Match{Note: tuning.Note{Name: "A4", Frequency: 440}, Matched: true},
			},
			want: "Right note: A4. Pitch detected at 0.34s: 440.00Hz ( 0.98 probability, RMS: 12.34567 )",
		},
		{
			name:  "unmatched",
			event: capture.Event{Timestamp: 2, Frequency: 1500, Probability: 0.5, RMSPercent: 3},
			want:  "Wrong note!. Pitch detected at 2.00s: 1500.00Hz ( 0.50 probability, RMS: 3.00000 )",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatEvent(tt.event); got != tt.want {
				t.Errorf("formatEvent() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestConsoleSink(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	sink := newConsoleSink(&buf)
	sink.Report(capture.Event{Frequency: 82.41, Probability: 1, RMSPercent: 5})
	sink.Report(capture.Event{Frequency: 82.41, Probability: 1, RMSPercent: 5})
	if lines := strings.Count(buf.String(), "\n"); lines != 2 {
		t.Errorf("got %d lines, want 2: %q", lines, buf.String())
	}
}

func TestPromptIndex(t *testing.T) {
	t.Parallel()

	in := bufio.NewScanner(strings.NewReader("abc\n-2\n 3 \n"))
	var out bytes.Buffer
	n, err := promptIndex(in, &out, "Pick: ")
	if err != nil || n != 3 {
		t.Fatalf("promptIndex = %d, %v; want 3", n, err)
	}
	if got := strings.Count(out.String(), "Invalid input"); got != 2 {
		t.Errorf("printed %d invalid input notices, want 2", got)
	}
	if got := strings.Count(out.String(), "Pick: "); got != 3 {
		t.Errorf("prompted %d times, want 3", got)
	}

	if _, err := promptIndex(in, &out, "Pick: "); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("promptIndex at EOF = %v, want ErrUnexpectedEOF", err)
	}
}

func TestMetricTotals(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()
	met, err := capture.NewMetrics(provider)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	met.FramesProcessed.Add(ctx, 3)
	met.RecordRejected(ctx, tuning.RejectedQuiet)
	met.RecordRejected(ctx, tuning.RejectedUnvoiced)
	met.EstimateDuration.Record(ctx, 0.002)
	met.EstimateDuration.Record(ctx, 0.004)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatal(err)
	}
	fields := metricTotals(rm)
	if fields["sonido.frames.processed"] != int64(3) {
		t.Errorf("frames processed = %v", fields["sonido.frames.processed"])
	}
	if fields["sonido.frames.rejected"] != int64(2) {
		t.Errorf("frames rejected = %v", fields["sonido.frames.rejected"])
	}
	if fields["sonido.estimate.duration.mean_ms"] != "3.000" {
		t.Errorf("mean estimate = %v", fields["sonido.estimate.duration.mean_ms"])
	}
}
