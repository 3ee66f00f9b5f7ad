package cli

// This file contains the build lifecycle of one bisect step: the clean,
// configure and build stages that bring the source tree from a fresh
// checkout to a ready-to-run state.

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"

	"github.com/simbisect/simbisect/config"
	"github.com/simbisect/simbisect/model"
	"github.com/simbisect/simbisect/store"
)

// buildFlags records which stages are enabled for this invocation.
type buildFlags struct {
	Clean     bool
	Configure bool
	Build     bool
}

type buildStage struct {
	name     string
	enabled  bool
	commands []string
}

// runBuild executes the enabled stages in order. A failing stage aborts the
// stages after it; disabled stages are recorded as skipped so the record
// always lists all three.
func (a *App) runBuild(st *store.Store, cfg *config.Config, flags buildFlags, sourceRoot string) model.BuildRecord {
	stages := []buildStage{
		{name: "clean", enabled: flags.Clean, commands: cfg.Clean},
		{name: "configure", enabled: flags.Configure, commands: []string{cfg.Configure}},
		{name: "build", enabled: flags.Build, commands: []string{cfg.Build}},
	}

	record := model.BuildRecord{Status: model.BuildSkipped}
	failed := false

	for _, stage := range stages {
		result := model.StageResult{Name: stage.name, Status: model.StageSkipped}
		switch {
		case failed && stage.enabled:
			result.Status = model.StageAborted
		case stage.enabled:
			result = a.runStage(st, stage, sourceRoot)
			if result.Status == model.StageFailed {
				failed = true
			} else if record.Status == model.BuildSkipped {
				record.Status = model.BuildSucceeded
			}
		}
		record.Stages = append(record.Stages, result)
	}

	if failed {
		record.Status = model.BuildFailed
	}
	return record
}

// runStage runs the stage's commands through the shell in sourceRoot. All
// output is captured into one buffer and persisted whether or not the stage
// succeeds, so a failing stage keeps its log.
func (a *App) runStage(st *store.Store, stage buildStage, sourceRoot string) model.StageResult {
	result := model.StageResult{Name: stage.name, Status: model.StageSucceeded}

	var output bytes.Buffer
	for _, command := range stage.commands {
		if strings.TrimSpace(command) == "" {
			continue
		}

		a.logger.Info().
			Str("stage", stage.name).
			Str("command", command).
			Msg("Running build stage command")
		fmt.Fprintf(&output, "$ %s\n", command)

		cmd := exec.Command("sh", "-c", command)
		cmd.Dir = sourceRoot
		cmd.Stdout = &output
		cmd.Stderr = &output

		err := cmd.Run()
		result.ExitCode = exitCode(err)
		if err != nil {
			result.Status = model.StageFailed
			break
		}
	}

	logName := stage.name + ".log"
	if name, err := st.WriteLog(logName, output.Bytes()); err != nil {
		a.logger.Warn().Err(err).Str("stage", stage.name).Msg("Failed to write stage log")
	} else {
		result.LogFile = name
	}

	if result.Status == model.StageSucceeded {
		a.logger.Debug().Str("stage", stage.name).Msg("Build stage finished")
	}
	return result
}

// exitCode extracts the exit status of a finished subprocess, -1 when it
// could not be started at all.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
