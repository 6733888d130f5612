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

package opts

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/walteh/retext/pkg/config"
	"gitlab.com/tozd/go/errors"
)

// GlobalFlags are the persistent flags shared by every command
type GlobalFlags struct {
	ConfigFile string
	Replace    []string
	Debug      bool
	JSON       bool
	NoColor    bool
}

// RootOpts is the state shared between the root command and its subcommands
type RootOpts struct {
	Flags GlobalFlags

	// ConfigExplicit is set when --config was passed, a missing file is then an error
	ConfigExplicit bool

	Stdout io.Writer
	Stderr io.Writer

	// ExitCode is returned by the process when no fatal error occurred
	ExitCode int
}

// 📚 LoadConfig resolves the rule table: the config file, if any, followed by --replace rules
func (ro *RootOpts) LoadConfig(ctx context.Context) (*config.Config, error) {
	logger := zerolog.Ctx(ctx)

	path := ro.Flags.ConfigFile
	if !ro.ConfigExplicit {
		found, err := config.Discover(".")
		if err != nil {
			return nil, errors.Errorf("finding config: %w", err)
		}
		path = found
	}

	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.Load(ctx, path)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		logger.Debug().Msg("no config file found, using --replace rules only")
	}

	if err := cfg.AddReplacements(ro.Flags.Replace...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating rules: %w", err)
	}

	return cfg, nil
}
