// Package store persists the artifacts of each bisect step: per-revision
// log directories, the invocation record, and the append-only ledger shared
// by sequential invocations.
package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/simbisect/simbisect/model"
)

const (
	// RecordFile is the per-revision invocation record.
	RecordFile = "record.json"
	// LedgerFile is the append-only summary kept next to the model problem.
	LedgerFile = "bisect_timings"
	// RunLogFile is the captured output of one repeat.
	RunLogFile = "run.log"
)

// Store manages the artifacts of one invocation. Rerunning a revision reuses
// its directory, so the logs always describe the latest attempt; the ledger
// keeps one line per invocation either way.
type Store struct {
	root   string
	revDir string
	ledger string
}

// LogRoot resolves the log directory against the model directory. An
// absolute log directory is used as-is.
func LogRoot(modelDir, logDir string) string {
	if filepath.IsAbs(logDir) {
		return logDir
	}
	return filepath.Join(modelDir, logDir)
}

// New creates the per-revision directory under the log root and returns the
// store. The ledger lives in the model directory so that every invocation of
// a bisect session appends to the same file.
func New(modelDir, logDir, revision string) (*Store, error) {
	root := LogRoot(modelDir, logDir)
	revDir := filepath.Join(root, revision)
	if err := os.MkdirAll(revDir, 0o755); err != nil {
		return nil, fmt.Errorf("create revision directory: %w", err)
	}

	return &Store{
		root:   root,
		revDir: revDir,
		ledger: filepath.Join(modelDir, LedgerFile),
	}, nil
}

// RevisionDir returns the directory all artifacts of this invocation land in.
func (s *Store) RevisionDir() string {
	return s.revDir
}

// LedgerPath returns the ledger file this store appends to.
func (s *Store) LedgerPath() string {
	return s.ledger
}

// WriteLog stores captured output under the revision directory and returns
// the name, relative to the revision directory, for the invocation record.
func (s *Store) WriteLog(name string, data []byte) (string, error) {
	if err := os.WriteFile(filepath.Join(s.revDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

// RepeatDir returns the directory of one repeat, run00 style.
func (s *Store) RepeatDir(repeat int) string {
	return filepath.Join(s.revDir, repeatName(repeat))
}

// RunLogName returns a repeat's captured-output name, relative to the
// revision directory.
func RunLogName(repeat int) string {
	return filepath.Join(repeatName(repeat), RunLogFile)
}

func repeatName(repeat int) string {
	return fmt.Sprintf("run%02d", repeat)
}

// WriteRunLog stores the captured output of one repeat, creating the repeat
// directory on first use, and returns the file's full path.
func (s *Store) WriteRunLog(repeat int, data []byte) (string, error) {
	dir := s.RepeatDir(repeat)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create repeat directory: %w", err)
	}

	path := filepath.Join(dir, RunLogFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write run log: %w", err)
	}
	return path, nil
}

// CollectSimOutput copies the files matching glob out of dataDir into the
// repeat directory and returns the destination paths in glob order. A glob
// matching nothing collects nothing; simulations that write no such files
// are not an error.
func (s *Store) CollectSimOutput(repeat int, dataDir, glob string) ([]string, error) {
	if glob == "" {
		return nil, nil
	}

	matches, err := filepath.Glob(filepath.Join(dataDir, glob))
	if err != nil {
		return nil, fmt.Errorf("bad collection glob %q: %w", glob, err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	dir := s.RepeatDir(repeat)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repeat directory: %w", err)
	}

	var collected []string
	for _, src := range matches {
		dst := filepath.Join(dir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return collected, fmt.Errorf("collect %s: %w", src, err)
		}
		collected = append(collected, dst)
	}
	return collected, nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	// Copy file permissions
	sourceInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, sourceInfo.Mode())
}

// WriteRecord persists the invocation record next to the logs it describes.
func (s *Store) WriteRecord(record *model.Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.revDir, RecordFile), data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// AppendLedger adds one summary line for the invocation. The file is opened
// with O_APPEND so the sequential invocations of a bisect session never
// clobber each other's lines.
func (s *Store) AppendLedger(record *model.Record) error {
	file, err := os.OpenFile(s.ledger, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(LedgerLine(record, s.revDir)); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	return nil
}

// LedgerLine formats one ledger entry: revision, timestamp, build status,
// representative value or none, spread, verdict, invocation id, artifact
// directory.
func LedgerLine(record *model.Record, revDir string) string {
	value := "none"
	if record.Value != nil {
		value = formatValue(*record.Value)
	}

	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s\n",
		record.Revision.Commit,
		record.Timestamp.Format(time.RFC3339),
		record.Build.Status,
		value,
		formatValue(record.Spread),
		record.Verdict,
		record.ID,
		revDir,
	)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Entry pairs a loaded record with the directory it came from.
type Entry struct {
	Record   model.Record
	FullPath string
}

// LoadEntries walks the log root and parses every invocation record found.
// Unreadable records are skipped with a warning so one corrupt file cannot
// hide the rest of the history.
func LoadEntries(logger zerolog.Logger, root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			recordPath := filepath.Join(path, RecordFile)
			if _, err := os.Stat(recordPath); err == nil {
				record, err := parseRecordJSON(recordPath)
				if err != nil {
					logger.Warn().Err(err).Str("path", recordPath).Msg("Failed to parse record.json")
					return nil
				}

				entries = append(entries, Entry{
					Record:   record,
					FullPath: path,
				})
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk log directory: %w", err)
	}

	return entries, nil
}

// parseRecordJSON parses a record.json file.
func parseRecordJSON(recordPath string) (model.Record, error) {
	data, err := os.ReadFile(recordPath)
	if err != nil {
		return model.Record{}, err
	}

	var record model.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return model.Record{}, err
	}

	return record, nil
}
