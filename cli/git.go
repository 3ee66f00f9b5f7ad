package cli

// This file contains Git integration utilities for identifying the
// revision under test.

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/simbisect/simbisect/model"
)

// revisionInfo identifies the source tree under test. When the tree is not
// a git checkout (or git is missing) the step still has to produce a
// verdict, so a working-tree marker stands in for the commit hash.
func (a *App) revisionInfo(sourceRoot string) model.Revision {
	commit, date, err := gitInfo(sourceRoot)
	if err != nil {
		marker := fmt.Sprintf("worktree-%d", time.Now().Unix())
		a.logger.Warn().
			Err(err).
			Str("marker", marker).
			Msg("Source root is not a git checkout, using a working-tree marker")
		return model.Revision{Commit: marker, SourceRoot: sourceRoot}
	}
	return model.Revision{Commit: commit, Date: date, SourceRoot: sourceRoot}
}

func gitInfo(dir string) (commit, date string, err error) {
	// Get current commit hash
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to get git commit: %w", err)
	}
	commit = strings.TrimSpace(string(output))
	if len(commit) > 7 {
		commit = commit[:7]
	}

	// Get the commit date
	cmd = exec.Command("git", "--no-pager", "show", "-s", "--format=%ci", "HEAD")
	cmd.Dir = dir
	output, err = cmd.Output()
	if err != nil {
		return "", "", fmt.Errorf("failed to get commit date: %w", err)
	}
	date = strings.TrimSpace(string(output))

	return commit, date, nil
}
