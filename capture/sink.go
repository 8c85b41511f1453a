package capture

import "github.com/RyanBlaney/sonido-pitch/tuning"

// Event is one admitted and classified frame
type Event struct {
	Timestamp   float64 // seconds since the run started
	Frequency   float64 // Hz
	Probability float64
	RMSPercent  float64 // frame RMS in percent of full scale
	Match       tuning.Match
}

// Sink receives events from the capture goroutine, in capture order. Report
// runs inline with capture and should return quickly.
type Sink interface {
	Report(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

// Report implements Sink
func (f SinkFunc) Report(e Event) { f(e) }

// Discard drops every event
var Discard Sink = SinkFunc(func(Event) {})
