package metric

import (
	"errors"
	"fmt"
	"os"

	"github.com/simbisect/simbisect/simlog"
)

var (
	// ErrNoSimLog is returned when a per-RHS metric is requested but the run
	// collected no simulation log to parse.
	ErrNoSimLog = errors.New("run collected no simulation log")
	// ErrNotExtractable is returned for kinds that carry no extraction rule.
	ErrNotExtractable = errors.New("metric has no extraction rule")
)

// Artifacts locates the captured output of one repeat.
type Artifacts struct {
	// RunLog is the captured stdout and stderr of the model process.
	RunLog string
	// SimLog is the rank-zero log collected from the simulation's data
	// directory, empty when the run left none behind.
	SimLog string
}

// Extract parses one repeat's artifacts and returns the kind's measurement
// in seconds. A missing or unparseable artifact is an extraction failure
// reported as an error; the repeat keeps a null value and later repeats
// still run.
func Extract(kind Kind, artifacts Artifacts) (float64, error) {
	switch kind {
	case RuntimeMin, RuntimeMean:
		file, err := os.Open(artifacts.RunLog)
		if err != nil {
			return 0, fmt.Errorf("open run log: %w", err)
		}
		defer file.Close()

		runTime, err := simlog.ParseRunTime(file)
		if err != nil {
			return 0, fmt.Errorf("parse run log %s: %w", artifacts.RunLog, err)
		}
		return runTime.Seconds(), nil

	case RHSTime, InversionTime:
		if artifacts.SimLog == "" {
			return 0, ErrNoSimLog
		}
		file, err := os.Open(artifacts.SimLog)
		if err != nil {
			return 0, fmt.Errorf("open simulation log: %w", err)
		}
		defer file.Close()

		table, err := simlog.ParseTable(file)
		if err != nil {
			return 0, fmt.Errorf("parse simulation log %s: %w", artifacts.SimLog, err)
		}
		if kind == RHSTime {
			return table.TimePerRHS()
		}
		return table.InvTimePerRHS()

	default:
		return 0, fmt.Errorf("%w: %s", ErrNotExtractable, kind)
	}
}
