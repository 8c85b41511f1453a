package tuning

import (
	"math"
	"slices"
)

// DefaultPrecision is the relative tolerance around each reference frequency
const DefaultPrecision = 0.03

// Match is the outcome of classifying a frequency
type Match struct {
	Note    Note    `json:"note"`
	Matched bool    `json:"matched"`
	Cents   float64 `json:"cents"` // deviation from Note, zero when unmatched
}

// Classifier maps frequencies onto the nearest acceptable note of a table.
// It is immutable and safe for concurrent use.
type Classifier struct {
	precision float64
	notes     []Note
}

// DefaultClassifier uses the standard table with a 3% tolerance
func DefaultClassifier() *Classifier {
	return NewClassifier(DefaultPrecision, standardNotes...)
}

// NewClassifier builds a classifier over notes. The notes are copied and
// sorted by ascending frequency; classification scans them in that order.
func NewClassifier(precision float64, notes ...Note) *Classifier {
	sorted := slices.Clone(notes)
	slices.SortStableFunc(sorted, func(a, b Note) int {
		switch {
		case a.Frequency < b.Frequency:
			return -1
		case a.Frequency > b.Frequency:
			return 1
		default:
			return 0
		}
	})
	return &Classifier{precision: precision, notes: sorted}
}

// Precision returns the relative tolerance
func (c *Classifier) Precision() float64 {
	return c.precision
}

// Notes returns a copy of the table in scan order
func (c *Classifier) Notes() []Note {
	return slices.Clone(c.notes)
}

// Classify returns the first note, in ascending order, whose tolerance band
// |f - ref| < ref*precision contains freq. Bands of adjacent notes may
// overlap; the lower note wins. Non-finite and non-positive frequencies never
// match.
func (c *Classifier) Classify(freq float64) Match {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return Match{}
	}

	for _, note := range c.notes {
		if math.Abs(freq-note.Frequency) < note.Frequency*c.precision {
			return Match{
				Note:    note,
				Matched: true,
				Cents:   1200 * math.Log2(freq/note.Frequency),
			}
		}
	}
	return Match{}
}
