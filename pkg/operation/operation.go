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

package operation

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/walteh/retext/pkg/log"
	"github.com/walteh/retext/pkg/status"
	"github.com/walteh/retext/pkg/text"
	"github.com/walteh/retext/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

var (
	// ErrNotFound is returned when the root directory or input file does not exist.
	ErrNotFound = errors.Base("not found")

	// ErrWrite marks a file whose rewrite could not be stored.
	ErrWrite = errors.Base("write failed")

	// ErrRead marks a file that was listed but could not be read.
	ErrRead = errors.Base("read failed")

	// ErrLocked is returned when another run holds the lock for the same root.
	ErrLocked = errors.Base("root is locked by another run")

	// ErrSameFile is returned when single-file mode is asked to write over its input.
	ErrSameFile = errors.Base("output is the input file")
)

// 🔧 Options contains configuration for the engine
type Options struct {
	// Rules are applied in order to every file
	Rules *text.RuleSet
	// Files performs disk access, nil uses the local file system
	Files status.FileManager
	// Concurrency bounds the files processed at once, 0 selects GOMAXPROCS
	Concurrency int
	// DryRun computes the changes and their diffs without writing
	DryRun bool
	// BackupDir receives a copy of each file before it is rewritten in place.
	// Relative paths are resolved against the tree root.
	BackupDir string
	// LockDir holds the per-root lock files, empty selects os.TempDir
	LockDir string
}

// 🎮 Engine applies a RuleSet to files
type Engine struct {
	rules       *text.RuleSet
	files       status.FileManager
	concurrency int
	dryRun      bool
	backupDir   string
	lockDir     string
}

// 🏭 New creates a new engine with the given options
func New(opts Options) (*Engine, error) {
	if opts.Rules == nil {
		return nil, errors.Errorf("rules are required")
	}
	if opts.Concurrency < 0 {
		return nil, errors.Errorf("concurrency must not be negative, got %d", opts.Concurrency)
	}

	e := &Engine{
		rules:       opts.Rules,
		files:       opts.Files,
		concurrency: opts.Concurrency,
		dryRun:      opts.DryRun,
		backupDir:   opts.BackupDir,
		lockDir:     opts.LockDir,
	}
	if e.files == nil {
		// disk access only, every run reports through its own Manager
		e.files = status.New(status.Run{}, nil)
	}
	if e.concurrency == 0 {
		e.concurrency = runtime.GOMAXPROCS(0)
	}
	if e.lockDir == "" {
		e.lockDir = os.TempDir()
	}
	return e, nil
}

// 📄 ProcessFile reads path, applies the rules and writes the result to target
// when at least one rule matched. Problems are reported through the outcome's
// status, ProcessFile itself never fails.
func (e *Engine) ProcessFile(ctx context.Context, path, target string) status.FileOutcome {
	outcome, _, _ := e.processFile(ctx, path, target, "")
	return outcome
}

// processFile also returns the bytes read and their mode so single-file mode
// can copy unchanged content
func (e *Engine) processFile(ctx context.Context, path, target, backupPath string) (status.FileOutcome, []byte, fs.FileMode) {
	logger := zerolog.Ctx(ctx)

	outcome := status.FileOutcome{
		Path:   path,
		Target: target,
	}

	content, perm, err := e.files.ReadFile(ctx, path)
	if err != nil {
		outcome.Status = status.StatusReadError
		outcome.Err = errors.Errorf("%w: %s: %s", ErrRead, path, err.Error())
		return outcome, nil, 0
	}

	res, err := e.rules.ReplaceText(ctx, bytes.NewReader(content))
	if err != nil {
		if errors.Is(err, text.ErrUndecodable) {
			logger.Debug().Str("file", path).Msg("skipping undecodable file")
			outcome.Status = status.StatusUndecodable
			outcome.Err = errors.Errorf("%s: %w", path, err)
			return outcome, content, perm
		}
		outcome.Status = status.StatusReadError
		outcome.Err = errors.Errorf("%w: %s: %s", ErrRead, path, err.Error())
		return outcome, content, perm
	}

	outcome.Counts = res.CountsByRule()
	outcome.Replacements = res.ReplacementCount
	for _, change := range res.Changes() {
		logger.Trace().Str("file", path).Str("rule", change.Rule).Int("index", change.Index).Int("count", change.Count).Msg("rule matched")
	}

	if !res.WasModified {
		outcome.Status = status.StatusUnchanged
		return outcome, content, perm
	}

	if e.dryRun {
		outcome.Status = status.StatusPlanned
		outcome.Diff = text.Diff(target, string(res.OriginalContent), string(res.ModifiedContent))
		return outcome, content, perm
	}

	if backupPath != "" {
		if err := e.files.BackupFile(ctx, path, backupPath); err != nil {
			outcome.Status = status.StatusWriteError
			outcome.Err = errors.Errorf("%w: backing up %s: %s", ErrWrite, path, err.Error())
			return outcome, content, perm
		}
	}

	if err := e.files.WriteFileAtomic(ctx, target, res.ModifiedContent, perm); err != nil {
		outcome.Status = status.StatusWriteError
		outcome.Err = errors.Errorf("%w: %s: %s", ErrWrite, target, err.Error())
		return outcome, content, perm
	}

	logger.Debug().
		Str("file", path).
		Str("target", target).
		Int("replacements", res.ReplacementCount).
		Msg("file rewritten")

	outcome.Status = status.StatusWritten
	return outcome, content, perm
}

// 🌳 RunTree rewrites every matching file under root in place.
// Non-fatal problems are collected in the result. When ctx is cancelled the
// partial result is returned together with the context error.
func (e *Engine) RunTree(ctx context.Context, root string, opts walk.Options) (*status.RunResult, error) {
	logger := zerolog.Ctx(ctx)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving root %s: %w", root, err)
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	exists, err := walk.Exists(absRoot)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Errorf("%w: root %s is not a directory", ErrNotFound, root)
	}

	if err := opts.Validate(); err != nil {
		return nil, errors.Errorf("validating walk options: %w", err)
	}

	lock, err := acquireLock(e.lockDir, absRoot)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn().Err(err).Msg("releasing lock")
		}
	}()

	backupRoot := ""
	if e.backupDir != "" && !e.dryRun {
		backupRoot = e.backupDir
		if !filepath.IsAbs(backupRoot) {
			backupRoot = filepath.Join(absRoot, backupRoot)
		}
		opts.SkipPaths = append(append([]string{}, opts.SkipPaths...), backupRoot)
	}

	mgr := status.New(status.Run{
		Mode:   "tree",
		Root:   absRoot,
		DryRun: e.dryRun,
		Rules:  e.rules.IDs(),
	}, logger)

	console := log.FromContextOrNil(ctx)
	if console != nil {
		console.StartRunOperation(ctx, log.RunOperation{ID: mgr.RunID(), Mode: "tree", Root: absRoot, DryRun: e.dryRun})
		defer console.EndRunOperation(ctx)
	}

	logger.Info().
		Str("run_id", mgr.RunID()).
		Str("root", absRoot).
		Int("concurrency", e.concurrency).
		Bool("dry_run", e.dryRun).
		Msg("starting tree run")

	r := newRunner(e.concurrency)
	var walkErr error
	for path, err := range walk.Walk(ctx, absRoot, opts) {
		if err != nil {
			if errors.Is(err, walk.ErrDirectoryListing) {
				mgr.RecordError(ctx, status.KindDirectoryListing, path, err)
				if console != nil {
					console.LogDirectoryError(ctx, err)
				}
				continue
			}
			walkErr = err
			break
		}

		if ctx.Err() != nil {
			break
		}

		backupPath := ""
		if backupRoot != "" {
			rel, err := filepath.Rel(absRoot, path)
			if err == nil {
				backupPath = filepath.Join(backupRoot, rel)
			}
		}

		r.Go(func() {
			outcome, _, _ := e.processFile(ctx, path, path, backupPath)
			mgr.Record(ctx, outcome)
			if console != nil {
				console.LogFileOutcome(ctx, outcome)
			}
		})
	}
	r.Wait()

	res := mgr.Result()

	logger.Info().
		Str("run_id", res.RunID).
		Int("scanned", res.FilesScanned).
		Int("modified", res.FilesModified).
		Int("errors", len(res.Errors)).
		Msg("tree run finished")

	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, errors.Errorf("run cancelled: %w", ctxErr)
	}
	if walkErr != nil {
		return res, walkErr
	}
	return res, nil
}

// 📄 RunFile transforms in and writes the result to out. The output is always
// produced: unchanged and undecodable input is copied byte for byte. in is
// never modified, an out naming the same file fails with ErrSameFile.
func (e *Engine) RunFile(ctx context.Context, in, out string) (*status.RunResult, error) {
	logger := zerolog.Ctx(ctx)

	info, err := os.Stat(in)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Errorf("%w: input %s", ErrNotFound, in)
		}
		return nil, errors.Errorf("checking input %s: %w", in, err)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Errorf("%w: input %s is not a regular file", ErrNotFound, in)
	}
	if samePath(in, out) {
		return nil, errors.Errorf("%w: %s", ErrSameFile, out)
	}

	mgr := status.New(status.Run{
		Mode:   "file",
		Root:   in,
		DryRun: e.dryRun,
		Rules:  e.rules.IDs(),
	}, logger)

	console := log.FromContextOrNil(ctx)
	if console != nil {
		console.StartRunOperation(ctx, log.RunOperation{ID: mgr.RunID(), Mode: "file", Root: in, DryRun: e.dryRun})
		defer console.EndRunOperation(ctx)
	}

	outcome, content, perm := e.processFile(ctx, in, out, "")

	copyThrough := outcome.Status == status.StatusUnchanged || outcome.Status == status.StatusUndecodable
	if copyThrough && !e.dryRun {
		if err := e.files.WriteFileAtomic(ctx, out, content, perm); err != nil {
			outcome.Status = status.StatusWriteError
			outcome.Err = errors.Errorf("%w: %s: %s", ErrWrite, out, err.Error())
		}
	}

	mgr.Record(ctx, outcome)
	if console != nil {
		console.LogFileOutcome(ctx, outcome)
	}

	return mgr.Result(), nil
}

// samePath reports whether a and b name the same file, following symlinks
func samePath(a, b string) bool {
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA == nil && errB == nil {
		return os.SameFile(infoA, infoB)
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
