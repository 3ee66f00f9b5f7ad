// Package classify turns a representative metric value, or an external
// script's exit status, into a bisection verdict.
package classify

import "github.com/simbisect/simbisect/model"

// Baseline holds the caller-supplied anchor values for a known-good and a
// known-bad revision, and the interpolation factor placing the cutoff
// between them.
type Baseline struct {
	Good   float64
	Bad    float64
	Factor float64
}

// Cutoff returns the decision threshold Good + Factor*(Bad-Good). Factor 0
// puts the cutoff on the good baseline, factor 1 on the bad baseline, and
// anything between interpolates linearly.
func (b Baseline) Cutoff() float64 {
	return b.Good + b.Factor*(b.Bad-b.Good)
}

// Threshold classifies a representative value against the baseline. The
// polarity comes from the baselines themselves: when Bad exceeds Good,
// values at or beyond the cutoff are bad; when Bad is below Good the
// comparison flips. Equal baselines fall into the higher-is-worse branch.
func (b Baseline) Threshold(value float64) model.Verdict {
	cutoff := b.Cutoff()
	if b.Bad < b.Good {
		if value <= cutoff {
			return model.VerdictBad
		}
		return model.VerdictGood
	}
	if value >= cutoff {
		return model.VerdictBad
	}
	return model.VerdictGood
}

// FromExitStatus classifies an external script run: exit status zero marks
// the revision good, any other status bad.
func FromExitStatus(code int) model.Verdict {
	if code == 0 {
		return model.VerdictGood
	}
	return model.VerdictBad
}
