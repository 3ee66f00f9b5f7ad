package cli

// This file contains the translation from command-line flags to the options
// a bisect step runs with. Every error returned here is a configuration
// error: it must be reported with ExitUsage before any subprocess starts,
// never with a verdict exit code.

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/simbisect/simbisect/classify"
	"github.com/simbisect/simbisect/metric"
	"github.com/simbisect/simbisect/model"
)

// mode selects how the run's outcome turns into a verdict.
type mode int

const (
	// modeMeasure records the representative value without judging it.
	modeMeasure mode = iota
	// modeThreshold classifies the value against the good/bad baselines.
	modeThreshold
	// modeScript delegates the verdict to an external script.
	modeScript
)

type options struct {
	// SourceRoot is the working directory the tool was started in; the
	// build stages run there.
	SourceRoot string
	// ModelDir is the resolved --path.
	ModelDir string
	// Model is the executable name inside ModelDir.
	Model string

	Mode     mode
	Metric   metric.Kind
	Baseline classify.Baseline
	Script   string

	Repeat int
	NOut   int

	LogDir     string
	ConfigFile string
	Write      bool

	Stages buildFlags

	OnBuildFailure model.Verdict
	OnRunFailure   model.Verdict
}

func (a *App) optionsFromContext(ctx *cli.Context) (*options, error) {
	opts := &options{
		Model:      ctx.String("model"),
		Script:     ctx.String("script"),
		Repeat:     ctx.Int("repeat"),
		NOut:       ctx.Int("nout"),
		LogDir:     ctx.String("log-dir"),
		ConfigFile: ctx.String("config"),
		Write:      !ctx.Bool("no-write"),
		Stages: buildFlags{
			Clean:     !ctx.Bool("no-clean"),
			Configure: !ctx.Bool("no-configure"),
			Build:     !ctx.Bool("no-make"),
		},
	}

	if ctx.Bool("just-run") {
		opts.Stages = buildFlags{}
		opts.Write = false
	}

	path := ctx.String("path")
	if path == "" {
		return nil, fmt.Errorf("--path is required")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("--model is required")
	}

	sourceRoot, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determine working directory: %w", err)
	}
	opts.SourceRoot = sourceRoot

	modelDir := path
	if !filepath.IsAbs(modelDir) {
		modelDir = filepath.Join(sourceRoot, modelDir)
	}
	info, err := os.Stat(modelDir)
	if err != nil {
		return nil, fmt.Errorf("model directory %s: %w", modelDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model directory %s is not a directory", modelDir)
	}
	opts.ModelDir = modelDir

	if opts.Repeat < 1 {
		return nil, fmt.Errorf("--repeat must be at least 1, got %d", opts.Repeat)
	}
	if opts.NOut < 0 {
		return nil, fmt.Errorf("--nout must not be negative, got %d", opts.NOut)
	}

	if opts.Script != "" {
		// The script is the sole judge; the metric flags have no effect.
		if ctx.IsSet("metric") || ctx.IsSet("good") || ctx.IsSet("bad") || ctx.IsSet("factor") {
			a.logger.Warn().Msg("--script takes precedence, ignoring --metric/--good/--bad/--factor")
		}
		opts.Mode = modeScript
		opts.Metric = metric.ExternalScript
	} else {
		kind, err := metric.ParseKind(ctx.String("metric"))
		if err != nil {
			return nil, err
		}
		opts.Metric = kind

		factor := ctx.Float64("factor")
		if factor < 0 || factor > 1 {
			return nil, fmt.Errorf("--factor must lie in [0,1], got %g", factor)
		}

		goodSet, badSet := ctx.IsSet("good"), ctx.IsSet("bad")
		if goodSet != badSet {
			return nil, fmt.Errorf("--good and --bad must be given together")
		}
		if goodSet {
			opts.Mode = modeThreshold
			opts.Baseline = classify.Baseline{
				Good:   ctx.Float64("good"),
				Bad:    ctx.Float64("bad"),
				Factor: factor,
			}
		} else {
			// Without baselines the step measures and records, but has no
			// opinion about the revision.
			opts.Mode = modeMeasure
		}
	}

	verdict, ok := model.ParseVerdict(ctx.String("on-build-failure"))
	if !ok {
		return nil, fmt.Errorf("--on-build-failure must be skip or bad, got %q", ctx.String("on-build-failure"))
	}
	opts.OnBuildFailure = verdict

	verdict, ok = model.ParseVerdict(ctx.String("on-run-failure"))
	if !ok {
		return nil, fmt.Errorf("--on-run-failure must be skip or bad, got %q", ctx.String("on-run-failure"))
	}
	opts.OnRunFailure = verdict

	return opts, nil
}
