package cli

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/simbisect/simbisect/classify"
	"github.com/simbisect/simbisect/metric"
	"github.com/simbisect/simbisect/model"
)

// parseOptions runs the flag set through a stub action and returns what
// optionsFromContext made of it.
func parseOptions(t *testing.T, args ...string) (*options, error) {
	t.Helper()

	app := New()
	app.logger = zerolog.Nop()

	var opts *options
	var err error
	app.cli.Action = func(ctx *cli.Context) error {
		opts, err = app.optionsFromContext(ctx)
		return nil
	}

	require.NoError(t, app.Run(append([]string{AppName}, args...)))
	return opts, err
}

func TestOptionsDefaults(t *testing.T) {
	modelDir := t.TempDir()

	opts, err := parseOptions(t, "--path", modelDir, "--model", "elm_pb")
	require.NoError(t, err)

	require.Equal(t, modelDir, opts.ModelDir)
	require.Equal(t, "elm_pb", opts.Model)
	require.Equal(t, modeMeasure, opts.Mode)
	require.Equal(t, metric.RuntimeMin, opts.Metric)
	require.Equal(t, 1, opts.Repeat)
	require.Equal(t, 100, opts.NOut)
	require.Equal(t, "logs", opts.LogDir)
	require.True(t, opts.Write)
	require.Equal(t, buildFlags{Clean: true, Configure: true, Build: true}, opts.Stages)
	require.Equal(t, model.VerdictSkip, opts.OnBuildFailure)
	require.Equal(t, model.VerdictSkip, opts.OnRunFailure)

	wd, werr := os.Getwd()
	require.NoError(t, werr)
	require.Equal(t, wd, opts.SourceRoot)
}

func TestOptionsThresholdMode(t *testing.T) {
	modelDir := t.TempDir()

	opts, err := parseOptions(t, "--path", modelDir, "--model", "elm_pb",
		"--metric", "rhs-time", "--good", "40.2", "--bad", "44.9", "--factor", "0.25")
	require.NoError(t, err)

	require.Equal(t, modeThreshold, opts.Mode)
	require.Equal(t, metric.RHSTime, opts.Metric)
	require.Equal(t, classify.Baseline{Good: 40.2, Bad: 44.9, Factor: 0.25}, opts.Baseline)
}

func TestOptionsScriptModeWins(t *testing.T) {
	modelDir := t.TempDir()

	// The metric flags are ignored once a script is given.
	opts, err := parseOptions(t, "--path", modelDir, "--model", "elm_pb",
		"--script", "check.sh", "--metric", "runtime-mean", "--good", "1", "--bad", "2")
	require.NoError(t, err)

	require.Equal(t, modeScript, opts.Mode)
	require.Equal(t, metric.ExternalScript, opts.Metric)
	require.Equal(t, "check.sh", opts.Script)
}

func TestOptionsJustRun(t *testing.T) {
	modelDir := t.TempDir()

	opts, err := parseOptions(t, "--path", modelDir, "--model", "elm_pb", "--just-run")
	require.NoError(t, err)

	require.Equal(t, buildFlags{}, opts.Stages)
	require.False(t, opts.Write)
}

func TestOptionsStageToggles(t *testing.T) {
	modelDir := t.TempDir()

	opts, err := parseOptions(t, "--path", modelDir, "--model", "elm_pb",
		"--no-clean", "--no-configure")
	require.NoError(t, err)

	require.Equal(t, buildFlags{Build: true}, opts.Stages)
	require.True(t, opts.Write)
}

func TestOptionsFailurePolicies(t *testing.T) {
	modelDir := t.TempDir()

	opts, err := parseOptions(t, "--path", modelDir, "--model", "elm_pb",
		"--on-build-failure", "bad", "--on-run-failure", "bad")
	require.NoError(t, err)

	require.Equal(t, model.VerdictBad, opts.OnBuildFailure)
	require.Equal(t, model.VerdictBad, opts.OnRunFailure)
}

func TestOptionsErrors(t *testing.T) {
	modelDir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "missing path",
			args: []string{"--model", "elm_pb"},
			want: "--path is required",
		},
		{
			name: "missing model",
			args: []string{"--path", modelDir},
			want: "--model is required",
		},
		{
			name: "path does not exist",
			args: []string{"--path", modelDir + "/nope", "--model", "elm_pb"},
			want: "model directory",
		},
		{
			name: "unknown metric",
			args: []string{"--path", modelDir, "--model", "elm_pb", "--metric", "runtime-max"},
			want: "unknown metric",
		},
		{
			name: "repeat below one",
			args: []string{"--path", modelDir, "--model", "elm_pb", "--repeat", "0"},
			want: "--repeat must be at least 1",
		},
		{
			name: "negative nout",
			args: []string{"--path", modelDir, "--model", "elm_pb", "--nout", "-5"},
			want: "--nout must not be negative",
		},
		{
			name: "factor out of range",
			args: []string{"--path", modelDir, "--model", "elm_pb", "--factor", "1.5"},
			want: "--factor must lie in [0,1]",
		},
		{
			name: "good without bad",
			args: []string{"--path", modelDir, "--model", "elm_pb", "--good", "40"},
			want: "--good and --bad must be given together",
		},
		{
			name: "bad without good",
			args: []string{"--path", modelDir, "--model", "elm_pb", "--bad", "44"},
			want: "--good and --bad must be given together",
		},
		{
			name: "bogus build failure policy",
			args: []string{"--path", modelDir, "--model", "elm_pb", "--on-build-failure", "good"},
			want: "--on-build-failure must be skip or bad",
		},
		{
			name: "bogus run failure policy",
			args: []string{"--path", modelDir, "--model", "elm_pb", "--on-run-failure", "retry"},
			want: "--on-run-failure must be skip or bad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseOptions(t, tt.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
