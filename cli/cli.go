package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "simbisect"

// ExitUsage is the exit code for configuration mistakes. It is deliberately
// outside the verdict codes (0 good, 1 bad, 125 skip) so a bisection driver
// never mistakes a flag typo for a judgement about the revision.
const ExitUsage = 2

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
	}
	app.cli = &cli.App{
		Name:  AppName,
		Usage: "Judge one revision of a simulation code for `git bisect run`",
		Description: `simbisect rebuilds the current source tree, runs a model problem and
decides whether the revision is good, bad or untestable. The exit code
follows the git bisect run contract:

  0     the revision is good
  1     the revision is bad
  125   the revision cannot be judged, tell git to skip it
  2     simbisect itself was misconfigured

Typical use:

  git bisect start bad-ref good-ref
  git bisect run simbisect --path examples/elm-pb --model elm_pb \
      --metric runtime-min --good 40.2 --bad 44.9 --repeat 3`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose (debug) logging",
			},
			&cli.StringFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Directory of the model problem, relative to the source root",
			},
			&cli.StringFlag{
				Name:    "model",
				Aliases: []string{"m"},
				Usage:   "Name of the model executable inside the model directory",
			},
			&cli.StringFlag{
				Name:  "metric",
				Usage: "Metric to extract: runtime-min, runtime-mean, rhs-time or inversion-time-per-rhs",
				Value: "runtime-min",
			},
			&cli.StringFlag{
				Name:  "script",
				Usage: "Delegate the verdict to this script's exit status instead of a metric",
			},
			&cli.Float64Flag{
				Name:  "good",
				Usage: "Metric value of a known-good revision",
			},
			&cli.Float64Flag{
				Name:  "bad",
				Usage: "Metric value of a known-bad revision",
			},
			&cli.Float64Flag{
				Name:  "factor",
				Usage: "Position of the cutoff between the good and bad values, in [0,1]",
				Value: 0.5,
			},
			&cli.IntFlag{
				Name:  "repeat",
				Usage: "How often to run the model problem",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "nout",
				Usage: "Number of output steps requested from the model",
				Value: 100,
			},
			&cli.StringFlag{
				Name:  "log-dir",
				Usage: "Artifact directory, relative to the model directory unless absolute",
				Value: "logs",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Build/run configuration file (default: simbisect.yaml in the model directory)",
			},
			&cli.BoolFlag{
				Name:  "no-clean",
				Usage: "Skip the clean stage",
			},
			&cli.BoolFlag{
				Name:  "no-configure",
				Usage: "Skip the configure stage",
			},
			&cli.BoolFlag{
				Name:  "no-make",
				Usage: "Skip the build stage",
			},
			&cli.BoolFlag{
				Name:  "no-write",
				Usage: "Do not append this invocation to the ledger",
			},
			&cli.BoolFlag{
				Name:  "just-run",
				Usage: "Shorthand for --no-clean --no-configure --no-make --no-write",
			},
			&cli.StringFlag{
				Name:  "on-build-failure",
				Usage: "Verdict when the build fails: skip or bad",
				Value: "skip",
			},
			&cli.StringFlag{
				Name:  "on-run-failure",
				Usage: "Verdict when the model run fails: skip or bad",
				Value: "skip",
			},
		},
		Before: func(ctx *cli.Context) error {
			if ctx.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
		Action: app.bisect,
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "history",
		Usage:  "List recorded bisect steps",
		Action: app.history,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show one recorded bisect step in detail",
		ArgsUsage: "[REVISION|ID-PREFIX]",
		Action:    app.show,
		Description: `Show one recorded bisect step in detail.

Arguments:
  <revision>    Show the step recorded for this commit hash
  <id-prefix>   Show the step whose invocation ID starts with this prefix

Without an argument the most recent step is shown.`,
	})
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}
