package cli

// This file contains the external classifier used by --script mode: the
// script inspects the finished run's artifacts itself and its exit status
// becomes the verdict.

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"

	"al.essio.dev/pkg/shellescape"

	"github.com/simbisect/simbisect/store"
)

// runScript executes the classifier script in the model directory and
// captures its output to script.log. The returned status is the script's
// exit code; the error is reserved for scripts that could not be started,
// which callers must not confuse with a bad verdict.
func (a *App) runScript(st *store.Store, opts *options) (int, error) {
	script := opts.Script
	if !filepath.IsAbs(script) {
		script = filepath.Join(opts.ModelDir, script)
	}

	a.logger.Info().Str("script", script).Msg("Delegating verdict to external script")

	var output bytes.Buffer
	fmt.Fprintf(&output, "$ %s\n", shellescape.Quote(script))

	cmd := exec.Command(script)
	cmd.Dir = opts.ModelDir
	cmd.Stdout = &output
	cmd.Stderr = &output
	err := cmd.Run()

	if _, werr := st.WriteLog("script.log", output.Bytes()); werr != nil {
		a.logger.Warn().Err(werr).Msg("Failed to write script log")
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("failed to execute classifier script %s: %w", script, err)
	}
	return 0, nil
}
