// Package tuning holds the musical reference data and the decision policies
// applied to pitch estimates: the note table, the signal quality gate and the
// note classifier.
package tuning

// Note is one reference pitch of the tuning table
type Note struct {
	Name      string  `json:"name"`
	Frequency float64 `json:"frequency"` // Hz
}

// standardNotes are the natural notes C2..C6 in equal temperament (A4 = 440 Hz),
// rounded to two decimals, in ascending order
var standardNotes = []Note{
	{"C2", 65.41}, {"D2", 73.42}, {"E2", 82.41}, {"F2", 87.31}, {"G2", 98.00}, {"A2", 110.00}, {"B2", 123.47},
	{"C3", 130.81}, {"D3", 146.83}, {"E3", 164.81}, {"F3", 174.61}, {"G3", 196.00}, {"A3", 220.00}, {"B3", 246.94},
	{"C4", 261.63}, {"D4", 293.66}, {"E4", 329.63}, {"F4", 349.23}, {"G4", 392.00}, {"A4", 440.00}, {"B4", 493.88},
	{"C5", 523.25}, {"D5", 587.33}, {"E5", 659.25}, {"F5", 698.46}, {"G5", 783.99}, {"A5", 880.00}, {"B5", 987.77},
	{"C6", 1046.50},
}

// Notes returns a copy of the standard note table in ascending frequency order
func Notes() []Note {
	out := make([]Note, len(standardNotes))
	copy(out, standardNotes)
	return out
}

// Lookup finds a note of the standard table by name
func Lookup(name string) (Note, bool) {
	for _, n := range standardNotes {
		if n.Name == name {
			return n, true
		}
	}
	return Note{}, false
}
