package cli

// This file contains the run phase of one bisect step: the prepare command,
// the repeat loop around the model executable, artifact collection and the
// per-repeat metric extraction.

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"

	"github.com/simbisect/simbisect/config"
	"github.com/simbisect/simbisect/metric"
	"github.com/simbisect/simbisect/model"
	"github.com/simbisect/simbisect/store"
)

// runOutcome summarises the run phase.
type runOutcome struct {
	// Records holds one entry per attempted repeat, in order. The loop stops
	// at the first failure, so len(Records) never exceeds the repeat count.
	Records []model.RunRecord
	// Values holds the successfully extracted per-repeat values.
	Values []float64
	// ExtractionFailures counts repeats whose artifacts could not be parsed.
	ExtractionFailures int
	// FailedRepeat is the index of the repeat that failed, -1 if none did.
	FailedRepeat int
	// PrepareFailed is set when the prepare command failed; no repeat was
	// attempted in that case.
	PrepareFailed bool
}

func (o runOutcome) Failed() bool {
	return o.PrepareFailed || o.FailedRepeat >= 0
}

// runModel runs the model problem up to opts.Repeat times. A failing repeat
// ends the loop immediately. With extract set, each successful repeat is
// parsed right after its output is captured; a repeat whose artifacts cannot
// be parsed keeps a null value and the loop carries on.
func (a *App) runModel(st *store.Store, cfg *config.Config, opts *options, extract bool) runOutcome {
	outcome := runOutcome{FailedRepeat: -1}

	if cfg.Prepare != "" {
		if !a.prepareModelDir(st, cfg, opts) {
			outcome.PrepareFailed = true
			return outcome
		}
	}

	argv := modelCommand(cfg, opts)
	display := shellescape.QuoteCommand(argv)
	dataDir := filepath.Join(opts.ModelDir, cfg.DataDir)

	for repeat := 0; repeat < opts.Repeat; repeat++ {
		a.logger.Info().
			Int("repeat", repeat).
			Str("command", display).
			Msg("Running model")

		var output bytes.Buffer
		fmt.Fprintf(&output, "$ %s\n", display)

		start := time.Now()
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Dir = opts.ModelDir
		cmd.Stdout = &output
		cmd.Stderr = &output
		err := cmd.Run()

		record := model.RunRecord{
			Repeat:   repeat,
			ExitCode: exitCode(err),
			Duration: time.Since(start),
		}

		logPath, werr := st.WriteRunLog(repeat, output.Bytes())
		if werr != nil {
			a.logger.Warn().Err(werr).Int("repeat", repeat).Msg("Failed to write run log")
		} else {
			record.LogFile = store.RunLogName(repeat)
		}

		// Collect the simulation's own output even when the run failed, so
		// a crash leaves its partial logs behind for inspection.
		simLogs, cerr := st.CollectSimOutput(repeat, dataDir, cfg.LogGlob)
		if cerr != nil {
			a.logger.Warn().Err(cerr).Int("repeat", repeat).Msg("Failed to collect simulation logs")
		}
		if cfg.CollectDumps {
			if _, derr := st.CollectSimOutput(repeat, dataDir, cfg.DumpGlob); derr != nil {
				a.logger.Warn().Err(derr).Int("repeat", repeat).Msg("Failed to collect simulation dumps")
			}
		}

		if err != nil {
			outcome.Records = append(outcome.Records, record)
			outcome.FailedRepeat = repeat
			a.logger.Error().
				Int("repeat", repeat).
				Int("exit_code", record.ExitCode).
				Str("log", logPath).
				Msg("Model run failed")
			return outcome
		}

		if extract {
			artifacts := metric.Artifacts{RunLog: logPath}
			if len(simLogs) > 0 {
				// Glob order puts the rank-zero log first.
				artifacts.SimLog = simLogs[0]
			}

			value, xerr := metric.Extract(opts.Metric, artifacts)
			if xerr != nil {
				outcome.ExtractionFailures++
				a.logger.Warn().
					Err(xerr).
					Int("repeat", repeat).
					Str("metric", string(opts.Metric)).
					Msg("Metric extraction failed for repeat")
			} else {
				record.Value = &value
				outcome.Values = append(outcome.Values, value)
				a.logger.Debug().
					Int("repeat", repeat).
					Float64("value", value).
					Msg("Extracted metric value")
			}
		}

		outcome.Records = append(outcome.Records, record)
	}

	return outcome
}

// prepareModelDir runs the prepare command (typically make) in the model
// directory, rebuilding the model against the freshly built library.
func (a *App) prepareModelDir(st *store.Store, cfg *config.Config, opts *options) bool {
	a.logger.Info().Str("command", cfg.Prepare).Msg("Preparing model directory")

	var output bytes.Buffer
	fmt.Fprintf(&output, "$ %s\n", cfg.Prepare)

	cmd := exec.Command("sh", "-c", cfg.Prepare)
	cmd.Dir = opts.ModelDir
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()

	logName, werr := st.WriteLog("prepare.log", output.Bytes())
	if werr != nil {
		a.logger.Warn().Err(werr).Msg("Failed to write prepare log")
	}

	if err != nil {
		a.logger.Error().
			Int("exit_code", exitCode(err)).
			Str("log", filepath.Join(st.RevisionDir(), logName)).
			Msg("Model prepare command failed")
		return false
	}
	return true
}

// modelCommand assembles the model invocation: the launcher prefix when
// running under MPI, the executable, any configured extra arguments and the
// requested output step count.
func modelCommand(cfg *config.Config, opts *options) []string {
	var argv []string
	if cfg.NProcs > 0 && cfg.Launcher != "" {
		argv = append(argv, strings.Fields(cfg.Launcher)...)
		argv = append(argv, "-n", strconv.Itoa(cfg.NProcs))
	}
	argv = append(argv, "./"+opts.Model)
	argv = append(argv, cfg.ModelArgs...)
	argv = append(argv, fmt.Sprintf("NOUT=%d", opts.NOut))
	return argv
}
