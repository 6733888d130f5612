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

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/retext/pkg/status"
)

// 🎨 Display configuration
const (
	fileIndent  = 4  // spaces to indent file entries
	nameWidth   = 35 // Base width for filename
	countWidth  = 6  // Width for the replacement count
	statusWidth = 12 // Width for status text
)

// 📦 RunOperation describes the run being logged
type RunOperation struct {
	ID     string // Run identifier
	Mode   string // tree or file
	Root   string // Root directory or input file
	DryRun bool   // Whether writes are suppressed
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog      zerolog.Logger
	console   io.Writer
	mu        sync.Mutex
	currentOp *RunOperation
	files     int
	verbose   bool
	showDiff  bool
}

// Option configures a Logger
type Option func(*Logger)

// WithVerbose also prints unchanged files
func WithVerbose(v bool) Option {
	return func(l *Logger) { l.verbose = v }
}

// WithDiff prints the diff preview of planned changes
func WithDiff(v bool) Option {
	return func(l *Logger) { l.showDiff = v }
}

// WithLogger replaces the structured logger records are written to
func WithLogger(zlog zerolog.Logger) Option {
	return func(l *Logger) { l.zlog = zlog }
}

// 🏭 New creates a new logger. Structured records go to stderr at the given level.
func New(console io.Writer, level zerolog.Level, opts ...Option) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})).With().Timestamp().Logger().Level(level)
	l := &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🔍 FromContextOrNil gets the logger from context, or nil when none is set
func FromContextOrNil(ctx context.Context) *Logger {
	logger, _ := ctx.Value(contextKey{}).(*Logger)
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatOutcome formats a file outcome for display
func (l *Logger) formatOutcome(outcome status.FileOutcome) string {
	var symbol rune
	var symbolColor color.Attribute
	switch outcome.Status {
	case status.StatusWritten:
		symbol = '⟳'
		symbolColor = color.FgBlue
	case status.StatusPlanned:
		symbol = '~'
		symbolColor = color.FgCyan
	case status.StatusUndecodable:
		symbol = '-'
		symbolColor = color.FgYellow
	case status.StatusWriteError, status.StatusReadError:
		symbol = '✗'
		symbolColor = color.FgRed
	default:
		symbol = '•'
		symbolColor = color.Faint
	}

	path := outcome.Target
	if path == "" {
		path = outcome.Path
	}
	if l.currentOp != nil && l.currentOp.Mode == "tree" {
		if rel, err := filepath.Rel(l.currentOp.Root, path); err == nil {
			path = rel
		}
	}

	count := ""
	if outcome.Replacements > 0 {
		count = fmt.Sprintf("+%d", outcome.Replacements)
	}

	return fmt.Sprintf("%s%s %s %s %s",
		strings.Repeat(" ", fileIndent),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, path),
		color.New(color.FgGreen).Sprint(fmt.Sprintf("%-*s", countWidth, count)),
		fmt.Sprintf("%-*s", statusWidth, outcome.Status.String()))
}

// 📝 LogFileOutcome logs the outcome of one file
func (l *Logger) LogFileOutcome(ctx context.Context, outcome status.FileOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.files++

	if outcome.Status != status.StatusUnchanged || l.verbose {
		fmt.Fprintln(l.console, l.formatOutcome(outcome))
		if outcome.Err != nil {
			fmt.Fprintf(l.console, "%s%s\n", strings.Repeat(" ", fileIndent+2), color.New(color.FgRed).Sprint(outcome.Err.Error()))
		}
		if l.showDiff && outcome.Diff != "" {
			for _, line := range strings.Split(strings.TrimSuffix(outcome.Diff, "\n"), "\n") {
				fmt.Fprintf(l.console, "%s%s\n", strings.Repeat(" ", fileIndent+2), colorDiffLine(line))
			}
		}
	}

	event := l.zlog.Debug()
	if outcome.Err != nil {
		event = l.zlog.Warn().Err(outcome.Err)
	}
	event.
		Str("file", outcome.Path).
		Str("target", outcome.Target).
		Str("status", outcome.Status.String()).
		Int("replacements", outcome.Replacements).
		Msg("file processed")
}

// 📝 LogDirectoryError logs a directory that could not be listed
func (l *Logger) LogDirectoryError(ctx context.Context, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.console, "%s%s %s\n",
		strings.Repeat(" ", fileIndent),
		color.New(color.FgRed).Sprint("✗"),
		color.New(color.FgRed).Sprint(err.Error()))
	l.zlog.Warn().Err(err).Msg("directory skipped")
}

// 📝 StartRunOperation starts a new run
func (l *Logger) StartRunOperation(ctx context.Context, op RunOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.files = 0

	mode := op.Mode
	if op.DryRun {
		mode += ", dry run"
	}
	fmt.Fprintf(l.console, "[rewriting %s]\n", color.New(color.FgCyan).Sprint(op.Root))
	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(mode),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(op.ID))

	l.zlog.Info().
		Str("run_id", op.ID).
		Str("mode", op.Mode).
		Str("root", op.Root).
		Bool("dry_run", op.DryRun).
		Msg("starting run")
}

// 📝 EndRunOperation ends the current run
func (l *Logger) EndRunOperation(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentOp == nil {
		return
	}

	l.zlog.Info().
		Str("run_id", l.currentOp.ID).
		Int("files", l.files).
		Msg("run complete")

	l.currentOp = nil
	l.files = 0
}

func colorDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return color.New(color.Bold).Sprint(line)
	case strings.HasPrefix(line, "+"):
		return color.New(color.FgGreen).Sprint(line)
	case strings.HasPrefix(line, "-"):
		return color.New(color.FgRed).Sprint(line)
	case strings.HasPrefix(line, "@@"):
		return color.New(color.FgCyan).Sprint(line)
	default:
		return line
	}
}

// 🏁 LogRunResult prints the closing verdict of a finished run
func (l *Logger) LogRunResult(ctx context.Context, res *status.RunResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case res.HasErrors():
		msg := fmt.Sprintf("%d of %d files changed, %d could not be processed", res.FilesModified, res.FilesScanned, len(res.Errors))
		fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
		l.zlog.Warn().Str("run_id", res.RunID).Int("errors", len(res.Errors)).Msg(msg)
	case res.DryRun:
		msg := fmt.Sprintf("dry run, %d of %d files would change", res.FilesModified, res.FilesScanned)
		fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
		l.zlog.Info().Str("run_id", res.RunID).Msg(msg)
	default:
		msg := fmt.Sprintf("%d of %d files changed", res.FilesModified, res.FilesScanned)
		fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
		l.zlog.Info().Str("run_id", res.RunID).Msg(msg)
	}
}
