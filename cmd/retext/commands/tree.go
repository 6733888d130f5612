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

package commands

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/retext/cmd/retext/opts"
	"github.com/walteh/retext/pkg/config"
	"github.com/walteh/retext/pkg/log"
	"github.com/walteh/retext/pkg/operation"
	"github.com/walteh/retext/pkg/status"
	"gitlab.com/tozd/go/errors"
)

type treeFlags struct {
	excludeDirs []string
	include     []string
	exclude     []string
	concurrency int
	dryRun      bool
	diff        bool
	backupDir   string
	verbose     bool
}

func NewTreeCmd(ro *opts.RootOpts) *cobra.Command {
	flags := &treeFlags{}

	cmd := &cobra.Command{
		Use:   "tree [root]",
		Short: "Rewrite every matching file under a directory in place",
		Long: `Tree walks root (default ".") and applies the rules to every text file.
It will:
1. Skip excluded directories (.git, node_modules, ... unless --exclude-dir is given)
2. Skip files that are not valid UTF-8 text
3. Rewrite only files where at least one rule matched
4. Report per-rule totals, modified files and every non-fatal error

Exits with 2 when some files or directories could not be processed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "tree").Logger().WithContext(cmd.Context())

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			cfg, err := ro.LoadConfig(ctx)
			if err != nil {
				return err
			}
			applyTreeFlags(cmd, cfg, flags)

			eng, err := newEngine(cfg, flags.dryRun)
			if err != nil {
				return err
			}

			ctx = withConsole(ctx, ro, flags.verbose, flags.diff && flags.dryRun)

			res, err := eng.RunTree(ctx, root, cfg.WalkOptions())
			if res != nil {
				if reportErr := report(ctx, ro, res); reportErr != nil {
					return reportErr
				}
			}
			if err != nil {
				return errors.Errorf("running tree: %w", err)
			}

			if res.HasErrors() {
				ro.ExitCode = 2
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&flags.excludeDirs, "exclude-dir", nil, "directory name to skip at any depth, replaces the defaults (repeatable)")
	cmd.Flags().StringSliceVar(&flags.include, "include", nil, "only process files matching this glob (repeatable)")
	cmd.Flags().StringSliceVar(&flags.exclude, "exclude", nil, "skip files matching this glob (repeatable)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "files processed at once (default: number of CPUs)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "print a diff of each planned change (with --dry-run)")
	cmd.Flags().StringVar(&flags.backupDir, "backup-dir", "", "copy originals here before rewriting them")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "also list unchanged files")

	return cmd
}

// applyTreeFlags lets explicitly set flags override the config file
func applyTreeFlags(cmd *cobra.Command, cfg *config.Config, flags *treeFlags) {
	if cmd.Flags().Changed("exclude-dir") {
		cfg.ExcludeDirs = append([]string{}, flags.excludeDirs...)
	}
	if cmd.Flags().Changed("include") {
		cfg.Include = flags.include
	}
	if cmd.Flags().Changed("exclude") {
		cfg.Exclude = flags.exclude
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = flags.concurrency
	}
	if cmd.Flags().Changed("backup-dir") {
		cfg.BackupDir = flags.backupDir
	}
}

func newEngine(cfg *config.Config, dryRun bool) (*operation.Engine, error) {
	if cfg.Concurrency < 0 {
		return nil, errors.Errorf("%w: concurrency must not be negative, got %d", config.ErrInvalidConfig, cfg.Concurrency)
	}

	rs, err := cfg.RuleSet()
	if err != nil {
		return nil, err
	}

	eng, err := operation.New(operation.Options{
		Rules:       rs,
		Concurrency: cfg.Concurrency,
		DryRun:      dryRun,
		BackupDir:   cfg.BackupDir,
	})
	if err != nil {
		return nil, errors.Errorf("creating engine: %w", err)
	}
	return eng, nil
}

// withConsole attaches the per-file console logger unless JSON output was requested
func withConsole(ctx context.Context, ro *opts.RootOpts, verbose, diff bool) context.Context {
	if ro.Flags.JSON {
		return ctx
	}
	console := log.New(ro.Stdout, zerolog.Disabled,
		log.WithLogger(*zerolog.Ctx(ctx)),
		log.WithVerbose(verbose),
		log.WithDiff(diff),
	)
	return log.NewContext(ctx, console)
}

// report writes the run summary followed by the console verdict, or the JSON result
func report(ctx context.Context, ro *opts.RootOpts, res *status.RunResult) error {
	if ro.Flags.JSON {
		return status.WriteJSON(ro.Stdout, res)
	}
	if err := status.RenderSummary(ro.Stdout, res); err != nil {
		return err
	}
	log.FromContext(ctx).LogRunResult(ctx, res)
	return nil
}
