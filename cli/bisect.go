package cli

// This file contains the bisect step itself: build the revision, run the
// model problem, reduce the repeat measurements and turn the outcome into
// the exit code the bisection driver acts on.

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/simbisect/simbisect/classify"
	"github.com/simbisect/simbisect/config"
	"github.com/simbisect/simbisect/metric"
	"github.com/simbisect/simbisect/model"
	"github.com/simbisect/simbisect/store"
)

func (a *App) bisect(ctx *cli.Context) error {
	start := time.Now()

	opts, err := a.optionsFromContext(ctx)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", AppName, err), ExitUsage)
	}

	cfg, err := config.Load(opts.ConfigFile, opts.ModelDir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", AppName, err), ExitUsage)
	}

	revision := a.revisionInfo(opts.SourceRoot)
	a.logger.Info().
		Str("revision", revision.Commit).
		Str("model", opts.Model).
		Str("metric", string(opts.Metric)).
		Int("repeat", opts.Repeat).
		Msg("Bisect step starting")

	st, err := store.New(opts.ModelDir, opts.LogDir, revision.Commit)
	if err != nil {
		// Without an artifact store nothing can be judged. Skipping keeps a
		// broken environment from poisoning the bisection with a false
		// verdict.
		a.logger.Error().Err(err).Msg("Failed to create artifact store")
		return cli.Exit("", model.VerdictSkip.ExitCode())
	}

	record := &model.Record{
		ID:        uuid.NewString(),
		Timestamp: start,
		Args:      os.Args,
		Revision:  revision,
		Metric:    string(opts.Metric),
		Verdict:   model.VerdictNone,
	}

	defer func() {
		record.Duration = time.Since(start)
		record.ExitCode = record.Verdict.ExitCode()

		// Record the invocation (non-fatal if it fails)
		if err := st.WriteRecord(record); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to write invocation record")
		}
		if opts.Write {
			if err := st.AppendLedger(record); err != nil {
				a.logger.Warn().Err(err).Msg("Failed to append to ledger")
			}
		}
	}()

	record.Build = a.runBuild(st, cfg, opts.Stages, opts.SourceRoot)
	if record.Build.Status == model.BuildFailed {
		stage, _ := record.Build.FailedStage()
		record.Verdict = opts.OnBuildFailure
		a.logger.Error().
			Str("stage", stage.Name).
			Int("exit_code", stage.ExitCode).
			Str("log", filepath.Join(st.RevisionDir(), stage.LogFile)).
			Str("verdict", string(record.Verdict)).
			Msg("Build failed, no run attempted")
		return cli.Exit("", record.Verdict.ExitCode())
	}

	outcome := a.runModel(st, cfg, opts, opts.Mode != modeScript)
	record.Runs = outcome.Records
	if outcome.Failed() {
		record.Verdict = opts.OnRunFailure
		a.logger.Error().
			Str("verdict", string(record.Verdict)).
			Msg("Run failed")
		return cli.Exit("", record.Verdict.ExitCode())
	}

	if opts.Mode == modeScript {
		status, err := a.runScript(st, opts)
		if err != nil {
			a.logger.Error().Err(err).Msg("Classifier script could not run, skipping revision")
			record.Verdict = model.VerdictSkip
			return cli.Exit("", record.Verdict.ExitCode())
		}
		record.Verdict = classify.FromExitStatus(status)
		a.logger.Info().
			Int("status", status).
			Str("verdict", string(record.Verdict)).
			Msg("Classifier script finished")
		return cli.Exit("", record.Verdict.ExitCode())
	}

	value, ok := metric.Reduce(outcome.Values, opts.Metric.Rule())
	record.Spread = metric.Spread(outcome.Values)
	if !ok {
		record.Verdict = model.VerdictSkip
		a.logger.Error().
			Int("repeats", len(outcome.Records)).
			Int("extraction_failures", outcome.ExtractionFailures).
			Msg("No repeat produced a metric value, skipping revision")
		return cli.Exit("", record.Verdict.ExitCode())
	}
	record.Value = &value

	a.logger.Info().
		Str("metric", string(opts.Metric)).
		Float64("value", value).
		Float64("spread", record.Spread).
		Int("repeats", len(outcome.Values)).
		Msg("Representative value")

	if opts.Mode == modeMeasure {
		// No baselines were given: report the measurement and claim nothing
		// about the revision.
		fmt.Printf("%s %s = %g (spread %g over %d runs)\n",
			revision.Commit, opts.Metric, value, record.Spread, len(outcome.Values))
		return cli.Exit("", record.Verdict.ExitCode())
	}

	record.Verdict = opts.Baseline.Threshold(value)
	a.logger.Info().
		Float64("value", value).
		Float64("cutoff", opts.Baseline.Cutoff()).
		Str("verdict", string(record.Verdict)).
		Msg("Classified revision")
	return cli.Exit("", record.Verdict.ExitCode())
}
