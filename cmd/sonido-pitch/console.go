package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/RyanBlaney/sonido-pitch/capture"
	"github.com/RyanBlaney/sonido-pitch/logging"
)

// consoleSink prints one line per admitted frame
type consoleSink struct {
	w io.Writer
}

func newConsoleSink(w io.Writer) *consoleSink {
	return &consoleSink{w: w}
}

// Report implements capture.Sink
func (s *consoleSink) Report(e capture.Event) {
	fmt.Fprintln(s.w, formatEvent(e))
}

func formatEvent(e capture.Event) string {
	verdict := "Wrong note!"
	if e.Match.Matched {
		verdict = "Right note: " + e.Match.Note.Name
	}
	return fmt.Sprintf("%s. Pitch detected at %.2fs: %.2fHz ( %.2f probability, RMS: %.5f )",
		verdict, e.Timestamp, e.Frequency, e.Probability, e.RMSPercent)
}

// promptIndex asks until a non-negative integer is entered. Range checks are
// left to the tuner.
func promptIndex(in *bufio.Scanner, out io.Writer, message string) (int, error) {
	for {
		fmt.Fprint(out, message)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return -1, err
			}
			return -1, io.ErrUnexpectedEOF
		}
		n, err := strconv.Atoi(strings.TrimSpace(in.Text()))
		if err == nil && n >= 0 {
			return n, nil
		}
		fmt.Fprintln(out, "Invalid input. Please enter a valid number.")
	}
}

// logMetrics collects the pipeline counters and logs their totals
func logMetrics(ctx context.Context, reader *sdkmetric.ManualReader, logger logging.Logger) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		logger.Debug("metrics collection failed", logging.Fields{"error": err.Error()})
		return
	}
	logger.Info("Capture summary", metricTotals(rm))
}

func metricTotals(rm metricdata.ResourceMetrics) logging.Fields {
	fields := logging.Fields{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				var total int64
				for _, dp := range data.DataPoints {
					total += dp.Value
				}
				fields[m.Name] = total
			case metricdata.Histogram[float64]:
				var count uint64
				var sum float64
				for _, dp := range data.DataPoints {
					count += dp.Count
					sum += dp.Sum
				}
				if count > 0 {
					fields[m.Name+".mean_ms"] = strconv.FormatFloat(1000*sum/float64(count), 'f', 3, 64)
				}
			}
		}
	}
	return fields
}
