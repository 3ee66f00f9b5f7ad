// Package simlog parses the progress log written by the simulation: the
// per-output-step timing table and the final wall-clock summary.
package simlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNoTable is returned when the log contains no timing table header.
	ErrNoTable = errors.New("no timing table found")
	// ErrNoSteps is returned when the table holds no rows beyond the
	// initialisation step.
	ErrNoSteps = errors.New("timing table has no steps")
	// ErrNoRHSEvals is returned when the counted steps report zero RHS
	// evaluations, which would make any per-evaluation figure undefined.
	ErrNoRHSEvals = errors.New("timing table reports zero RHS evaluations")
	// ErrNoRunTime is returned when the log contains no wall-clock summary.
	ErrNoRunTime = errors.New("no run time summary found")
)

const (
	tableHeader     = "Sim Time"
	runTimePrefix   = "Run time"
	runTimeSep      = ":"
	tableRowColumns = 8
)

// Row is one output step of the timing table.
// Format: Sim Time | RHS evals | Wall Time | Calc Inv Comm I/O SOLVER
// where the last five columns are percentage shares of the wall time.
type Row struct {
	SimTime  float64
	RHSEvals int
	WallTime float64
	Calc     float64
	Inv      float64
	Comm     float64
	IO       float64
	Solver   float64
}

// InvSeconds returns the wall-clock seconds the step spent in the Laplacian
// inversion, converted from its percentage share.
func (r Row) InvSeconds() float64 {
	return r.WallTime * r.Inv / 100
}

// Table is the timing table of one run.
type Table struct {
	Rows []Row
}

// ParseTable scans the log for the timing table and returns its rows. The
// table starts after the "Sim Time" header and ends at the first line that
// is not a data row (blank lines inside the table are tolerated).
func ParseTable(reader io.Reader) (*Table, error) {
	scanner := bufio.NewScanner(reader)

	inTable := false
	var rows []Row

	for scanner.Scan() {
		line := scanner.Text()

		if !inTable {
			if strings.HasPrefix(strings.TrimSpace(line), tableHeader) {
				inTable = true
			}
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		row, ok := parseRow(line)
		if !ok {
			// The table is contiguous, so the first non-row line
			// ("Run finished at ...") terminates it.
			break
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading input: %w", err)
	}
	if !inTable {
		return nil, ErrNoTable
	}
	if len(rows) == 0 {
		return nil, ErrNoSteps
	}

	return &Table{Rows: rows}, nil
}

// parseRow parses one data row of the timing table
func parseRow(line string) (Row, bool) {
	parts := strings.Fields(line)
	if len(parts) != tableRowColumns {
		return Row{}, false
	}

	values := make([]float64, tableRowColumns)
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return Row{}, false
		}
		values[i] = v
	}

	return Row{
		SimTime:  values[0],
		RHSEvals: int(values[1]),
		WallTime: values[2],
		Calc:     values[3],
		Inv:      values[4],
		Comm:     values[5],
		IO:       values[6],
		Solver:   values[7],
	}, true
}

// Steps returns the rows that count toward per-evaluation statistics. The
// first row covers initialisation rather than time stepping and is excluded.
func (t *Table) Steps() []Row {
	if len(t.Rows) < 2 {
		return nil
	}
	return t.Rows[1:]
}

// TotalRHSEvals sums the RHS evaluations over the counted steps.
func (t *Table) TotalRHSEvals() int {
	total := 0
	for _, row := range t.Steps() {
		total += row.RHSEvals
	}
	return total
}

// TimePerRHS returns the average wall-clock seconds per RHS evaluation.
func (t *Table) TimePerRHS() (float64, error) {
	steps := t.Steps()
	if len(steps) == 0 {
		return 0, ErrNoSteps
	}

	evals := t.TotalRHSEvals()
	if evals == 0 {
		return 0, ErrNoRHSEvals
	}

	var wall float64
	for _, row := range steps {
		wall += row.WallTime
	}
	return wall / float64(evals), nil
}

// InvTimePerRHS returns the average wall-clock seconds per RHS evaluation
// spent in the Laplacian inversion.
func (t *Table) InvTimePerRHS() (float64, error) {
	steps := t.Steps()
	if len(steps) == 0 {
		return 0, ErrNoSteps
	}

	evals := t.TotalRHSEvals()
	if evals == 0 {
		return 0, ErrNoRHSEvals
	}

	var inv float64
	for _, row := range steps {
		inv += row.InvSeconds()
	}
	return inv / float64(evals), nil
}

// ParseRunTime scans the log for the trailing wall-clock summary, e.g.
// "Run time : 1 m 22.7 s", and returns it as a duration. The day, hour and
// minute components are optional.
func ParseRunTime(reader io.Reader) (time.Duration, error) {
	scanner := bufio.NewScanner(reader)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, runTimePrefix) {
			continue
		}

		_, clock, found := strings.Cut(line, runTimeSep)
		if !found {
			continue
		}
		return parseClock(strings.TrimSpace(clock))
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("error reading input: %w", err)
	}
	return 0, ErrNoRunTime
}

// parseClock parses a clock string like "1 d 2 h 3 m 4.5 s" into a duration.
// Components are value/unit pairs; any prefix of the units may be absent.
func parseClock(clock string) (time.Duration, error) {
	parts := strings.Fields(clock)
	if len(parts) == 0 || len(parts)%2 != 0 {
		return 0, fmt.Errorf("invalid run time %q", clock)
	}

	var total time.Duration
	for i := 0; i < len(parts); i += 2 {
		value, err := strconv.ParseFloat(parts[i], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid run time component %q: %w", parts[i], err)
		}

		var unit time.Duration
		switch parts[i+1] {
		case "d":
			unit = 24 * time.Hour
		case "h":
			unit = time.Hour
		case "m":
			unit = time.Minute
		case "s":
			unit = time.Second
		default:
			return 0, fmt.Errorf("unknown run time unit %q", parts[i+1])
		}
		total += time.Duration(value * float64(unit))
	}

	return total, nil
}
