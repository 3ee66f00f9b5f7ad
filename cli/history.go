package cli

// This file contains the history and show commands for inspecting the
// bisect steps recorded in the artifact store.

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/simbisect/simbisect/model"
	"github.com/simbisect/simbisect/store"
)

// logRootFromContext resolves the log root from the shared --path and
// --log-dir flags, which the subcommands inherit from the app.
func logRootFromContext(ctx *cli.Context) (string, error) {
	path := ctx.String("path")
	if path == "" {
		return "", fmt.Errorf("--path is required")
	}

	root := store.LogRoot(path, ctx.String("log-dir"))
	if _, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("no bisect history under %s", root)
	}
	return root, nil
}

func verdictIndicator(v model.Verdict) string {
	switch v {
	case model.VerdictGood:
		return "✓"
	case model.VerdictBad:
		return "✗"
	case model.VerdictSkip:
		return "?"
	default:
		return "·"
	}
}

func formatValue(value *float64) string {
	if value == nil {
		return "none"
	}
	return strconv.FormatFloat(*value, 'g', -1, 64)
}

func loadSortedEntries(ctx *cli.Context, a *App) ([]store.Entry, error) {
	root, err := logRootFromContext(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := store.LoadEntries(a.logger, root)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	// Sort by timestamp (newest first)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Record.Timestamp.After(entries[j].Record.Timestamp)
	})
	return entries, nil
}

func (a *App) history(ctx *cli.Context) error {
	limit := ctx.Int("limit")

	entries, err := loadSortedEntries(ctx, a)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", AppName, err), ExitUsage)
	}

	if len(entries) == 0 {
		fmt.Println("No bisect steps recorded")
		return nil
	}

	// Apply limit
	display := entries
	if limit > 0 && limit < len(display) {
		display = display[:limit]
	}

	fmt.Printf("\n=== Bisect steps (%d total) ===\n\n", len(entries))

	for _, entry := range display {
		r := entry.Record
		timestamp := r.Timestamp.Format("2006-01-02 15:04:05")
		duration := r.Duration.Round(time.Millisecond)

		// Show short ID (first 8 chars)
		shortID := r.ID
		if len(shortID) > 8 {
			shortID = shortID[:8]
		}

		fmt.Printf("%s  %s  [%s]  %s  verdict=%s  id=%s\n",
			verdictIndicator(r.Verdict), timestamp, duration, r.Revision.Commit, r.Verdict, shortID)
		if r.Metric != "" {
			fmt.Printf("   Metric: %s = %s", r.Metric, formatValue(r.Value))
			if r.Spread > 0 {
				fmt.Printf(" (spread %s)", strconv.FormatFloat(r.Spread, 'g', -1, 64))
			}
			fmt.Println()
		}
		fmt.Printf("   Build: %s", r.Build.Status)
		if stage, ok := r.Build.FailedStage(); ok {
			fmt.Printf(" (%s exit=%d)", stage.Name, stage.ExitCode)
		}
		fmt.Printf("  Runs: %d\n", len(r.Runs))
		fmt.Printf("   %s\n", entry.FullPath)
		fmt.Println()
	}

	fmt.Printf("\nShow one step: %s --path <path> show <revision>\n", AppName)

	return nil
}

func (a *App) show(ctx *cli.Context) error {
	entries, err := loadSortedEntries(ctx, a)
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", AppName, err), ExitUsage)
	}
	if len(entries) == 0 {
		return cli.Exit("no bisect steps recorded", 1)
	}

	entry, err := matchEntry(entries, ctx.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", AppName, err), 1)
	}

	r := entry.Record

	fmt.Printf("Revision:  %s", r.Revision.Commit)
	if r.Revision.Date != "" {
		fmt.Printf(" (%s)", r.Revision.Date)
	}
	fmt.Println()
	fmt.Printf("Recorded:  %s  [%s]\n", r.Timestamp.Format("2006-01-02 15:04:05"), r.Duration.Round(time.Millisecond))
	fmt.Printf("ID:        %s\n", r.ID)
	if len(r.Args) > 1 {
		fmt.Printf("Args:      %s\n", strings.Join(r.Args[1:], " "))
	}
	fmt.Printf("Verdict:   %s (exit %d)\n", r.Verdict, r.ExitCode)
	if r.Metric != "" {
		fmt.Printf("Metric:    %s = %s", r.Metric, formatValue(r.Value))
		if r.Spread > 0 {
			fmt.Printf(" (spread %s)", strconv.FormatFloat(r.Spread, 'g', -1, 64))
		}
		fmt.Println()
	}

	fmt.Printf("\nBuild: %s\n", r.Build.Status)
	for _, stage := range r.Build.Stages {
		fmt.Printf("  %-10s %s", stage.Name, stage.Status)
		if stage.Status == model.StageFailed {
			fmt.Printf(" (exit=%d)", stage.ExitCode)
		}
		if stage.LogFile != "" {
			fmt.Printf("  %s", filepath.Join(entry.FullPath, stage.LogFile))
		}
		fmt.Println()
	}

	if len(r.Runs) > 0 {
		fmt.Printf("\nRuns: %d\n", len(r.Runs))
		for _, run := range r.Runs {
			fmt.Printf("  run%02d  exit=%d  [%s]  value=%s\n",
				run.Repeat, run.ExitCode, run.Duration.Round(time.Millisecond), formatValue(run.Value))
		}
	}

	fmt.Printf("\nArtifacts: %s\n", entry.FullPath)

	return nil
}

// matchEntry finds the step for a commit hash or invocation ID prefix; with
// an empty query the most recent step wins.
func matchEntry(entries []store.Entry, query string) (store.Entry, error) {
	if query == "" {
		return entries[0], nil
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Record.Revision.Commit, query) || strings.HasPrefix(entry.Record.ID, query) {
			return entry, nil
		}
	}
	return store.Entry{}, fmt.Errorf("no bisect step matches %q", query)
}
