// Package metric defines the measurements that can be taken from one run of
// the model problem and how repeated measurements reduce to a single
// representative value.
package metric

import (
	"fmt"
	"math"
	"strings"
)

// Rule selects how per-repeat values collapse into the representative value.
type Rule string

const (
	RuleMin  Rule = "min"
	RuleMean Rule = "mean"
)

// Kind is a closed enumeration of the supported metrics. Each kind fixes its
// own extraction source and reduction rule; adding a metric means adding a
// constant here plus a case in Extract.
type Kind string

const (
	// RuntimeMin and RuntimeMean measure the total wall-clock time the run
	// reports, reduced across repeats by minimum and mean respectively.
	RuntimeMin  Kind = "runtime-min"
	RuntimeMean Kind = "runtime-mean"
	// RHSTime measures the average wall-clock time per RHS evaluation.
	RHSTime Kind = "rhs-time"
	// InversionTime measures the average wall-clock time per RHS evaluation
	// spent in the Laplacian inversion.
	InversionTime Kind = "inversion-time-per-rhs"
	// ExternalScript delegates the verdict to an external script's exit
	// status; nothing is extracted or reduced for it.
	ExternalScript Kind = "external-script"
)

// Kinds lists the metrics selectable on the command line.
func Kinds() []Kind {
	return []Kind{RuntimeMin, RuntimeMean, RHSTime, InversionTime}
}

// ParseKind validates a command-line metric name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}

	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return "", fmt.Errorf("unknown metric %q (choose one of %s)", s, strings.Join(names, ", "))
}

// Rule returns the reduction rule for the kind. The noisy wall-clock and
// per-RHS figures keep the fastest repeat; only runtime-mean averages.
func (k Kind) Rule() Rule {
	if k == RuntimeMean {
		return RuleMean
	}
	return RuleMin
}

// Reduce collapses the extracted per-repeat values into the representative
// value. The second return is false when no repeat produced a value, which
// callers must treat as "no measurement" rather than zero.
func Reduce(values []float64, rule Rule) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	if rule == RuleMean {
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), true
	}

	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min, true
}

// Spread returns the population standard deviation of the values, zero for
// fewer than two. It is recorded alongside the representative value but
// takes no part in classification.
func Spread(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var squares float64
	for _, v := range values {
		d := v - mean
		squares += d * d
	}
	return math.Sqrt(squares / float64(len(values)))
}
