// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package status

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 📊 Status is the terminal state of one file in a run
type Status int

const (
	StatusUnknown     Status = iota
	StatusUnchanged          // No rule matched
	StatusWritten            // Rules matched and the result was written
	StatusPlanned            // Rules matched, dry run so nothing was written
	StatusUndecodable        // Content is not valid text, skipped
	StatusWriteError         // Rules matched but the write failed
	StatusReadError          // The file could not be read
)

// String returns a string representation of Status
func (s Status) String() string {
	switch s {
	case StatusUnchanged:
		return "unchanged"
	case StatusWritten:
		return "written"
	case StatusPlanned:
		return "planned"
	case StatusUndecodable:
		return "undecodable"
	case StatusWriteError:
		return "write_error"
	case StatusReadError:
		return "read_error"
	default:
		return "unknown"
	}
}

// IsModified reports whether the file's content was (or would be) changed
func (s Status) IsModified() bool {
	return s == StatusWritten || s == StatusPlanned
}

// 📄 FileOutcome is the result of processing one file
type FileOutcome struct {
	Path         string         // File that was read
	Target       string         // File that was (or would be) written
	Status       Status         // Terminal state
	Counts       map[string]int // Matches per rule, zeros included
	Replacements int            // Sum of Counts
	Diff         string         // Preview of the change, dry run only
	Err          error          // Cause for the error and skip states
}

// FileError describes a non-fatal problem recorded against a file or directory
type FileError struct {
	Path    string `json:"path"`
	Kind    string `json:"kind"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

const (
	KindDirectoryListing = "directory_listing"
	KindUndecodable      = "undecodable"
	KindWrite            = "write"
	KindRead             = "read"
)

// 📦 RunResult is the aggregated report of a run
type RunResult struct {
	RunID         string         `json:"run_id"`
	Mode          string         `json:"mode"`
	Root          string         `json:"root"`
	DryRun        bool           `json:"dry_run"`
	FilesScanned  int            `json:"files_scanned"`
	FilesModified int            `json:"files_modified"`
	PerRuleTotals map[string]int `json:"per_rule_totals"`
	RuleOrder     []string       `json:"rule_order"`
	ModifiedPaths []string       `json:"modified_paths"`
	Skipped       []FileError    `json:"skipped"`
	Errors        []FileError    `json:"errors"`
}

// HasErrors reports whether any non-fatal error was recorded
func (r *RunResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// 💾 FileManager handles the file system operations of a run
type FileManager interface {
	ReadFile(ctx context.Context, path string) ([]byte, fs.FileMode, error)
	WriteFileAtomic(ctx context.Context, path string, content []byte, perm fs.FileMode) error
	BackupFile(ctx context.Context, path, backupPath string) error
}

// 📈 Reporter aggregates file outcomes into a RunResult
type Reporter interface {
	Record(ctx context.Context, outcome FileOutcome)
	RecordError(ctx context.Context, kind, path string, err error)
	Result() *RunResult
}

// Run describes the run a Manager reports on
type Run struct {
	Mode   string
	Root   string
	DryRun bool
	Rules  []string
}

// 🔧 Manager implements both FileManager and Reporter
type Manager struct {
	logger    *zerolog.Logger
	formatter FileFormatter

	mu        sync.Mutex
	result    RunResult
	processed int
}

var (
	_ FileManager = (*Manager)(nil)
	_ Reporter    = (*Manager)(nil)
)

// 🏭 New creates a new status manager for one run
func New(run Run, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	totals := make(map[string]int, len(run.Rules))
	for _, id := range run.Rules {
		totals[id] = 0
	}

	return &Manager{
		logger:    logger,
		formatter: NewDefaultFileFormatter(),
		result: RunResult{
			RunID:         uuid.NewString(),
			Mode:          run.Mode,
			Root:          run.Root,
			DryRun:        run.DryRun,
			PerRuleTotals: totals,
			RuleOrder:     append([]string(nil), run.Rules...),
			ModifiedPaths: []string{},
			Skipped:       []FileError{},
			Errors:        []FileError{},
		},
	}
}

// RunID returns the identifier of the run
func (m *Manager) RunID() string {
	return m.result.RunID
}

// Reporter interface implementation

func (m *Manager) Record(ctx context.Context, outcome FileOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.result.FilesScanned++
	m.processed++

	if outcome.Status.IsModified() {
		m.result.FilesModified++
		m.result.ModifiedPaths = append(m.result.ModifiedPaths, outcome.Target)
		for id, n := range outcome.Counts {
			m.result.PerRuleTotals[id] += n
		}
	}

	switch outcome.Status {
	case StatusUndecodable:
		m.result.Skipped = append(m.result.Skipped, newFileError(KindUndecodable, outcome.Path, outcome.Err))
	case StatusWriteError:
		m.result.Errors = append(m.result.Errors, newFileError(KindWrite, outcome.Target, outcome.Err))
	case StatusReadError:
		m.result.Errors = append(m.result.Errors, newFileError(KindRead, outcome.Path, outcome.Err))
	}

	event := m.logger.Debug()
	if outcome.Err != nil {
		event = m.logger.Warn().Err(outcome.Err)
	}
	event.
		Str("run_id", m.result.RunID).
		Str("path", outcome.Path).
		Str("status", outcome.Status.String()).
		Int("replacements", outcome.Replacements).
		Msg(m.formatter.FormatOutcome(outcome))

	m.logger.Trace().Int("processed", m.processed).Msg(m.formatter.FormatProgress(m.processed))
}

func (m *Manager) RecordError(ctx context.Context, kind, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.result.Errors = append(m.result.Errors, newFileError(kind, path, err))
	m.logger.Warn().Str("run_id", m.result.RunID).Str("path", path).Str("kind", kind).Err(err).Msg(m.formatter.FormatError(err))
}

// Result returns a snapshot of the aggregated result with stable ordering
func (m *Manager) Result() *RunResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := m.result
	res.PerRuleTotals = make(map[string]int, len(m.result.PerRuleTotals))
	for k, v := range m.result.PerRuleTotals {
		res.PerRuleTotals[k] = v
	}
	res.RuleOrder = append([]string(nil), m.result.RuleOrder...)
	res.ModifiedPaths = append([]string{}, m.result.ModifiedPaths...)
	res.Skipped = append([]FileError{}, m.result.Skipped...)
	res.Errors = append([]FileError{}, m.result.Errors...)

	sort.Strings(res.ModifiedPaths)
	sortFileErrors(res.Skipped)
	sortFileErrors(res.Errors)

	return &res
}

// FileManager interface implementation

func (m *Manager) ReadFile(ctx context.Context, path string) ([]byte, fs.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, errors.Errorf("stat file: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, errors.Errorf("reading file: %w", err)
	}
	return content, info.Mode().Perm(), nil
}

// WriteFileAtomic writes content to a temp file next to path and renames it into place
func (m *Manager) WriteFileAtomic(ctx context.Context, path string, content []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".retext-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	if _, err := tmp.Write(content); err != nil {
		cleanup()
		return errors.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// BackupFile copies path to backupPath, creating parent directories and keeping the file mode
func (m *Manager) BackupFile(ctx context.Context, path, backupPath string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Errorf("checking file existence: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
		return errors.Errorf("creating backup directories: %w", err)
	}

	if err := copyFile(path, backupPath, info.Mode().Perm()); err != nil {
		return errors.Errorf("creating backup: %w", err)
	}

	return nil
}

// Helper functions

func copyFile(src, dst string, perm fs.FileMode) error {
	source, err := os.Open(src)
	if err != nil {
		return errors.Errorf("opening source file: %w", err)
	}
	defer source.Close()

	destination, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return errors.Errorf("creating destination file: %w", err)
	}

	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return errors.Errorf("copying file: %w", err)
	}

	if err := destination.Close(); err != nil {
		return errors.Errorf("closing destination file: %w", err)
	}

	return nil
}

func newFileError(kind, path string, err error) FileError {
	fe := FileError{Path: path, Kind: kind, Err: err}
	if err != nil {
		fe.Message = err.Error()
	}
	return fe
}

func sortFileErrors(errs []FileError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Path != errs[j].Path {
			return errs[i].Path < errs[j].Path
		}
		return errs[i].Kind < errs[j].Kind
	})
}
