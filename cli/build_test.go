package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/simbisect/simbisect/config"
	"github.com/simbisect/simbisect/model"
	"github.com/simbisect/simbisect/store"
)

func newTestApp() *App {
	return &App{logger: zerolog.Nop()}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(t.TempDir(), "logs", "a1b2c3d")
	require.NoError(t, err)
	return st
}

func TestRunBuildAllStages(t *testing.T) {
	a := newTestApp()
	st := newTestStore(t)
	cfg := &config.Config{
		Clean:     []string{"echo cleaning"},
		Configure: "echo configuring",
		Build:     "echo building",
	}

	record := a.runBuild(st, cfg, buildFlags{Clean: true, Configure: true, Build: true}, t.TempDir())

	require.Equal(t, model.BuildSucceeded, record.Status)
	require.Len(t, record.Stages, 3)
	for _, stage := range record.Stages {
		require.Equal(t, model.StageSucceeded, stage.Status)
		require.Equal(t, 0, stage.ExitCode)
		require.NotEmpty(t, stage.LogFile)
	}

	data, err := os.ReadFile(filepath.Join(st.RevisionDir(), "configure.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "$ echo configuring")
	require.Contains(t, string(data), "configuring")
}

func TestRunBuildFailureAbortsDownstream(t *testing.T) {
	a := newTestApp()
	st := newTestStore(t)
	cfg := &config.Config{
		Clean:     []string{"true"},
		Configure: "echo broken >&2; exit 7",
		Build:     "echo building",
	}

	record := a.runBuild(st, cfg, buildFlags{Clean: true, Configure: true, Build: true}, t.TempDir())

	require.Equal(t, model.BuildFailed, record.Status)
	require.Equal(t, model.StageSucceeded, record.Stages[0].Status)
	require.Equal(t, model.StageFailed, record.Stages[1].Status)
	require.Equal(t, 7, record.Stages[1].ExitCode)
	require.Equal(t, model.StageAborted, record.Stages[2].Status)

	stage, ok := record.FailedStage()
	require.True(t, ok)
	require.Equal(t, "configure", stage.Name)

	// The failing stage keeps its captured output.
	data, err := os.ReadFile(filepath.Join(st.RevisionDir(), "configure.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "broken")

	// The aborted stage never produced a log.
	_, err = os.Stat(filepath.Join(st.RevisionDir(), "build.log"))
	require.True(t, os.IsNotExist(err))
}

func TestRunBuildDisabledStages(t *testing.T) {
	a := newTestApp()
	st := newTestStore(t)
	cfg := &config.Config{
		Clean:     []string{"false"},
		Configure: "false",
		Build:     "echo building",
	}

	record := a.runBuild(st, cfg, buildFlags{Build: true}, t.TempDir())

	require.Equal(t, model.BuildSucceeded, record.Status)
	require.Equal(t, model.StageSkipped, record.Stages[0].Status)
	require.Equal(t, model.StageSkipped, record.Stages[1].Status)
	require.Equal(t, model.StageSucceeded, record.Stages[2].Status)
}

func TestRunBuildNothingEnabled(t *testing.T) {
	a := newTestApp()
	st := newTestStore(t)

	record := a.runBuild(st, config.Default(), buildFlags{}, t.TempDir())

	require.Equal(t, model.BuildSkipped, record.Status)
	for _, stage := range record.Stages {
		require.Equal(t, model.StageSkipped, stage.Status)
	}
}

func TestRunBuildMultiCommandStage(t *testing.T) {
	a := newTestApp()
	st := newTestStore(t)

	// The default clean guards distclean with || true; a guarded failure
	// must not fail the stage.
	cfg := &config.Config{Clean: []string{"false || true", "echo cleaned"}}
	record := a.runBuild(st, cfg, buildFlags{Clean: true}, t.TempDir())
	require.Equal(t, model.BuildSucceeded, record.Status)

	data, err := os.ReadFile(filepath.Join(st.RevisionDir(), "clean.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "cleaned")

	// An unguarded failure stops the stage at the failing command.
	cfg = &config.Config{Clean: []string{"exit 4", "echo never"}}
	record = a.runBuild(st, cfg, buildFlags{Clean: true}, t.TempDir())
	require.Equal(t, model.BuildFailed, record.Status)
	require.Equal(t, 4, record.Stages[0].ExitCode)

	data, err = os.ReadFile(filepath.Join(st.RevisionDir(), "clean.log"))
	require.NoError(t, err)
	require.NotContains(t, string(data), "never")
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, exitCode(nil))

	cmd := exec.Command("sh", "-c", "exit 3")
	require.Equal(t, 3, exitCode(cmd.Run()))

	cmd = exec.Command("/nonexistent/simbisect-test-binary")
	require.Equal(t, -1, exitCode(cmd.Run()))
}
