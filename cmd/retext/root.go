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

package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/retext/cmd/retext/commands"
	"github.com/walteh/retext/cmd/retext/opts"
)

func newRootCmd(stdout, stderr io.Writer) (*opts.RootOpts, *cobra.Command) {
	ro := &opts.RootOpts{
		Stdout: stdout,
		Stderr: stderr,
	}

	cmd := &cobra.Command{
		Use:   "retext",
		Short: "Apply ordered text substitution rules across files",
		Long: `retext rewrites text files using an ordered table of pattern -> replacement rules.
Rules come from a config file (.retext.yaml, .retext.hcl, .retext.json or .retext)
and from --replace flags. Binary files and excluded directories are never modified.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ro.ConfigExplicit = cmd.Flags().Changed("config")
			setupColor(ro)
			cmd.SetContext(setupLogging(ro).WithContext(cmd.Context()))
			return nil
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	addRootFlags(cmd, ro)

	cmd.AddCommand(
		commands.NewTreeCmd(ro),
		commands.NewFileCmd(ro),
		commands.NewRulesCmd(ro),
		commands.NewVersionCmd(ro),
	)

	return ro, cmd
}

func addRootFlags(cmd *cobra.Command, ro *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&ro.Flags.ConfigFile, "config", "c", ".retext.yaml", "config file path (default: first of .retext.yaml, .retext.hcl, .retext.json, .retext)")
	cmd.PersistentFlags().StringArrayVarP(&ro.Flags.Replace, "replace", "r", nil, "literal OLD=NEW rule applied after the configured rules (repeatable)")
	cmd.PersistentFlags().BoolVarP(&ro.Flags.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&ro.Flags.JSON, "json", false, "print the run report as JSON")
	cmd.PersistentFlags().BoolVar(&ro.Flags.NoColor, "no-color", false, "disable colored output")
}

func setupLogging(ro *opts.RootOpts) zerolog.Logger {
	level := zerolog.WarnLevel
	if ro.Flags.Debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: ro.Stderr, NoColor: color.NoColor}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func setupColor(ro *opts.RootOpts) {
	if ro.Flags.NoColor || !isTerminal(ro.Stdout) {
		color.NoColor = true
		pterm.DisableStyling()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
