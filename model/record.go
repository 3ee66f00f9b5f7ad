package model

import "time"

// Verdict is the decision reported for one revision
type Verdict string

const (
	// VerdictNone is recorded for measure-only invocations that classify nothing
	VerdictNone Verdict = "none"
	VerdictGood Verdict = "good"
	VerdictBad  Verdict = "bad"
	VerdictSkip Verdict = "skip"
)

// ExitCode maps a verdict to the exit status the bisection driver expects:
// 0 marks the revision good, 1 bad, 125 tells the driver to skip it.
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictBad:
		return 1
	case VerdictSkip:
		return 125
	default:
		return 0
	}
}

// ParseVerdict parses a failure-policy value ("skip" or "bad").
func ParseVerdict(s string) (Verdict, bool) {
	switch Verdict(s) {
	case VerdictSkip:
		return VerdictSkip, true
	case VerdictBad:
		return VerdictBad, true
	}
	return "", false
}

// StageStatus is the outcome of a single build stage
type StageStatus string

const (
	// StageSkipped means the stage was disabled for this invocation
	StageSkipped StageStatus = "skipped"
	// StageSucceeded means every command of the stage exited zero
	StageSucceeded StageStatus = "succeeded"
	// StageFailed means a command of the stage exited non-zero or could not start
	StageFailed StageStatus = "failed"
	// StageAborted means the stage was enabled but never ran because an
	// earlier stage failed
	StageAborted StageStatus = "aborted-upstream"
)

// BuildStatus is the overall outcome of the build phase
type BuildStatus string

const (
	BuildSkipped   BuildStatus = "skipped"
	BuildSucceeded BuildStatus = "succeeded"
	BuildFailed    BuildStatus = "failed"
)

// Revision identifies the source tree state under test
type Revision struct {
	// Commit is the short commit hash, or a worktree-<unix time> marker when
	// the source root is not a git checkout
	Commit string `json:"commit"`
	// Date of the commit as reported by git, empty for worktree markers
	Date string `json:"date,omitempty"`
	// SourceRoot is the directory the build stages ran in
	SourceRoot string `json:"source_root,omitempty"`
}

// StageResult records one build stage
type StageResult struct {
	// Name of the stage (clean, configure, build)
	Name string `json:"name"`
	// Status of the stage
	Status StageStatus `json:"status"`
	// LogFile holds the captured output, relative to the revision directory;
	// empty when the stage never ran
	LogFile string `json:"log_file,omitempty"`
	// ExitCode of the last command the stage ran, -1 if it could not start
	ExitCode int `json:"exit_code"`
}

// BuildRecord records the build phase of one invocation
type BuildRecord struct {
	// Stages in execution order (clean, configure, build)
	Stages []StageResult `json:"stages"`
	// Status across all stages
	Status BuildStatus `json:"status"`
}

// FailedStage returns the stage that failed the build, if any.
func (b BuildRecord) FailedStage() (StageResult, bool) {
	for _, s := range b.Stages {
		if s.Status == StageFailed {
			return s, true
		}
	}
	return StageResult{}, false
}

// RunRecord records one repeat of the model problem
type RunRecord struct {
	// Repeat index, starting at zero
	Repeat int `json:"repeat"`
	// LogFile holds the captured model output, relative to the revision directory
	LogFile string `json:"log_file,omitempty"`
	// ExitCode of the model process, -1 if it could not start
	ExitCode int `json:"exit_code"`
	// Duration of the repeat as observed by this tool (informational only,
	// metric values come from the parsed logs)
	Duration time.Duration `json:"duration"`
	// Value extracted from this repeat's artifacts, null when the run failed
	// or its logs could not be parsed
	Value *float64 `json:"value,omitempty"`
}

// Record is the full record of one bisect step, persisted next to the logs
// it describes and summarized in the ledger.
type Record struct {
	// Unique ID for this invocation
	ID string `json:"id"`
	// Timestamp when the invocation started
	Timestamp time.Time `json:"timestamp"`
	// Command-line arguments (including command name)
	Args []string `json:"args"`
	// Revision under test
	Revision Revision `json:"revision"`
	// Metric that was extracted, or "external-script" in script mode
	Metric string `json:"metric,omitempty"`
	// Build phase outcome
	Build BuildRecord `json:"build"`
	// Runs holds one entry per attempted repeat, never more than the
	// requested repeat count
	Runs []RunRecord `json:"runs,omitempty"`
	// Value is the representative metric value across repeats, null when no
	// repeat produced one
	Value *float64 `json:"value,omitempty"`
	// Spread is the population standard deviation of the per-repeat values
	Spread float64 `json:"spread,omitempty"`
	// Verdict reported to the driver
	Verdict Verdict `json:"verdict"`
	// ExitCode the process terminated with
	ExitCode int `json:"exit_code"`
	// Duration of the whole invocation
	Duration time.Duration `json:"duration"`
}
