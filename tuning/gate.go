package tuning

import "github.com/RyanBlaney/sonido-pitch/algorithms/tonal"

// DefaultRMSPercentThreshold is the minimum frame level, in percent of full scale
const DefaultRMSPercentThreshold = 1.0

// Rejection explains why the gate refused an estimate
type Rejection int

const (
	Admitted Rejection = iota
	RejectedUnvoiced
	RejectedQuiet
)

// String returns the reason label used in metrics
func (r Rejection) String() string {
	switch r {
	case Admitted:
		return "admitted"
	case RejectedUnvoiced:
		return "unvoiced"
	case RejectedQuiet:
		return "quiet"
	default:
		return "unknown"
	}
}

// Gate discards estimates that are unvoiced or too quiet to be trusted
type Gate struct {
	ThresholdPercent float64 `json:"threshold_percent" yaml:"rms_percent_threshold"`
}

// DefaultGate admits frames louder than 1% RMS
func DefaultGate() Gate {
	return Gate{ThresholdPercent: DefaultRMSPercentThreshold}
}

// Check returns Admitted when est is voiced and est.RMS*100 is strictly above
// the threshold
func (g Gate) Check(est tonal.Estimate) Rejection {
	if !est.Voiced() {
		return RejectedUnvoiced
	}
	if !(est.RMS*100 > g.ThresholdPercent) {
		return RejectedQuiet
	}
	return Admitted
}

// Admit reports whether est passes the gate
func (g Gate) Admit(est tonal.Estimate) bool {
	return g.Check(est) == Admitted
}
