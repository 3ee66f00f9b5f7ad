package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunScriptReportsExitStatus(t *testing.T) {
	a := newTestApp()
	st, modelDir := newRunStore(t)
	writeScript(t, modelDir, "check.sh", "echo inspecting artifacts\nexit 2\n")

	status, err := a.runScript(st, &options{ModelDir: modelDir, Script: "check.sh"})
	require.NoError(t, err)
	require.Equal(t, 2, status)

	data, err := os.ReadFile(filepath.Join(st.RevisionDir(), "script.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "inspecting artifacts")
}

func TestRunScriptSuccess(t *testing.T) {
	a := newTestApp()
	st, modelDir := newRunStore(t)
	writeScript(t, modelDir, "check.sh", "exit 0\n")

	status, err := a.runScript(st, &options{ModelDir: modelDir, Script: "check.sh"})
	require.NoError(t, err)
	require.Zero(t, status)
}

func TestRunScriptAbsolutePath(t *testing.T) {
	a := newTestApp()
	st, modelDir := newRunStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(modelDir, "marker.txt"), []byte("ran in model dir"), 0o644))

	scriptDir := t.TempDir()
	writeScript(t, scriptDir, "check.sh", "cat marker.txt\nexit 1\n")

	status, err := a.runScript(st, &options{
		ModelDir: modelDir,
		Script:   filepath.Join(scriptDir, "check.sh"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, status)

	// The script still runs inside the model directory.
	data, err := os.ReadFile(filepath.Join(st.RevisionDir(), "script.log"))
	require.NoError(t, err)
	require.Contains(t, string(data), "ran in model dir")
}

func TestRunScriptMissing(t *testing.T) {
	a := newTestApp()
	st, modelDir := newRunStore(t)

	status, err := a.runScript(st, &options{ModelDir: modelDir, Script: "no-such-script.sh"})
	require.Error(t, err)
	require.Equal(t, -1, status)
}
