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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/retext/cmd/retext/opts"
	"gitlab.com/tozd/go/errors"
)

func NewFileCmd(ro *opts.RootOpts) *cobra.Command {
	var dryRun, diff bool

	cmd := &cobra.Command{
		Use:   "file <input> <output>",
		Short: "Transform a single file into an output file",
		Long: `File applies the rules to input and writes the result to output.
The input is never modified. Output is always produced: when no rule matches,
or the input is not text, it is a byte for byte copy of the input.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "file").Logger().WithContext(cmd.Context())

			cfg, err := ro.LoadConfig(ctx)
			if err != nil {
				return err
			}

			eng, err := newEngine(cfg, dryRun)
			if err != nil {
				return err
			}

			ctx = withConsole(ctx, ro, true, diff && dryRun)

			res, err := eng.RunFile(ctx, args[0], args[1])
			if err != nil {
				return errors.Errorf("running file: %w", err)
			}
			if err := report(ctx, ro, res); err != nil {
				return err
			}

			if res.HasErrors() {
				ro.ExitCode = 2
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVar(&diff, "diff", false, "print a diff of the planned change (with --dry-run)")

	return cmd
}
