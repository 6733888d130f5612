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

// Package walk enumerates the candidate files of a tree rewrite.
package walk

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ErrDirectoryListing is yielded for a directory that could not be enumerated.
// The walk continues with the directory's siblings.
var ErrDirectoryListing = errors.Base("directory listing failed")

// DefaultExcludeDirs is used when Options.ExcludeDirs is nil
var DefaultExcludeDirs = []string{
	".git",
	".hg",
	".svn",
	"node_modules",
	".venv",
	"venv",
	"__pycache__",
}

// 🔧 Options controls which entries a walk yields
type Options struct {
	// ExcludeDirs are directory base names pruned at any depth.
	// nil selects DefaultExcludeDirs, an empty slice prunes nothing.
	ExcludeDirs []string

	// Include, when set, restricts files to those whose root-relative
	// slash path matches one of the doublestar globs.
	Include []string

	// Exclude drops files whose root-relative slash path matches one of the doublestar globs.
	Exclude []string

	// SkipPaths are absolute paths (files or directories) never yielded or descended into.
	SkipPaths []string
}

func (o Options) excludeDirs() map[string]bool {
	names := o.ExcludeDirs
	if names == nil {
		names = DefaultExcludeDirs
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Validate checks that every glob is well formed
func (o Options) Validate() error {
	for _, g := range append(append([]string{}, o.Include...), o.Exclude...) {
		if !doublestar.ValidatePattern(g) {
			return errors.Errorf("invalid glob %q", g)
		}
	}
	return nil
}

// 🚶 Walk lazily yields the absolute path of every regular file under root,
// depth first. A directory that cannot be listed yields (dir, err) with err
// wrapping ErrDirectoryListing. A symlinked root is followed and paths are
// yielded under its target. Symlinks below the root and other non-regular
// entries are skipped.
func Walk(ctx context.Context, root string, opts Options) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		logger := zerolog.Ctx(ctx)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			yield(root, errors.Errorf("%w: resolving %s: %s", ErrDirectoryListing, root, err.Error()))
			return
		}
		// WalkDir does not descend into a symlinked root
		absRoot = resolve(absRoot)

		excluded := opts.excludeDirs()
		skip := make(map[string]bool, len(opts.SkipPaths))
		for _, p := range opts.SkipPaths {
			if abs, err := filepath.Abs(p); err == nil {
				skip[abs] = true
				skip[resolve(abs)] = true
			}
		}

		stopped := false
		emit := func(path string, err error) bool {
			if !yield(path, err) {
				stopped = true
				return false
			}
			return true
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}

			if err != nil {
				// d is nil only when the root itself could not be stat'd
				if d == nil || d.IsDir() {
					if !emit(path, errors.Errorf("%w: %s: %s", ErrDirectoryListing, path, err.Error())) {
						return filepath.SkipAll
					}
					return nil
				}
				logger.Debug().Str("path", path).Err(err).Msg("skipping unreadable entry")
				return nil
			}

			if skip[path] {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != absRoot && excluded[d.Name()] {
					logger.Debug().Str("dir", path).Msg("pruning excluded directory")
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() {
				logger.Debug().Str("path", path).Str("mode", d.Type().String()).Msg("skipping non-regular file")
				return nil
			}

			if !matchesFilters(absRoot, path, opts) {
				return nil
			}

			if !emit(path, nil) {
				return filepath.SkipAll
			}
			return nil
		})

		if walkErr != nil && !stopped {
			yield("", errors.Errorf("walking %s: %w", absRoot, walkErr))
		}
	}
}

// resolve follows symlinks in an absolute path, falling back to the path
// itself when it does not exist yet
func resolve(abs string) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	return abs
}

// Exists reports whether root is an existing directory
func Exists(root string) (bool, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Errorf("checking root: %w", err)
	}
	return info.IsDir(), nil
}

func matchesFilters(root, path string, opts Options) bool {
	if len(opts.Include) == 0 && len(opts.Exclude) == 0 {
		return true
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	for _, pattern := range opts.Exclude {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return false
		}
	}

	if len(opts.Include) == 0 {
		return true
	}
	for _, pattern := range opts.Include {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}
