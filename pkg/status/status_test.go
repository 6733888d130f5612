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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func newTestManager(rules ...string) *Manager {
	logger := zerolog.Nop()
	return New(Run{Mode: "tree", Root: "/root", Rules: rules}, &logger)
}

func TestManager_Record(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager("rule0", "rule1")

	mgr.Record(ctx, FileOutcome{Path: "/root/b.txt", Target: "/root/b.txt", Status: StatusWritten, Counts: map[string]int{"rule0": 2, "rule1": 0}, Replacements: 2})
	mgr.Record(ctx, FileOutcome{Path: "/root/a.txt", Target: "/root/a.txt", Status: StatusWritten, Counts: map[string]int{"rule0": 1, "rule1": 3}, Replacements: 4})
	mgr.Record(ctx, FileOutcome{Path: "/root/c.txt", Status: StatusUnchanged, Counts: map[string]int{"rule0": 0, "rule1": 0}})
	mgr.Record(ctx, FileOutcome{Path: "/root/logo.png", Status: StatusUndecodable, Err: errors.New("not text")})
	mgr.Record(ctx, FileOutcome{Path: "/root/ro.txt", Target: "/root/ro.txt", Status: StatusWriteError, Counts: map[string]int{"rule0": 5}, Err: errors.New("permission denied")})
	mgr.RecordError(ctx, KindDirectoryListing, "/root/locked", errors.New("permission denied"))

	res := mgr.Result()
	assert.NotEmpty(t, res.RunID, "run id should be set")
	assert.Equal(t, 5, res.FilesScanned, "every recorded file counts as scanned")
	assert.Equal(t, 2, res.FilesModified)
	assert.Equal(t, map[string]int{"rule0": 3, "rule1": 3}, res.PerRuleTotals, "failed writes should not count")
	assert.Equal(t, []string{"rule0", "rule1"}, res.RuleOrder)
	assert.Equal(t, []string{"/root/a.txt", "/root/b.txt"}, res.ModifiedPaths, "paths should be sorted")

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, FileError{Path: "/root/logo.png", Kind: KindUndecodable, Message: res.Skipped[0].Err.Error(), Err: res.Skipped[0].Err}, res.Skipped[0])

	require.Len(t, res.Errors, 2)
	assert.Equal(t, "/root/locked", res.Errors[0].Path)
	assert.Equal(t, KindDirectoryListing, res.Errors[0].Kind)
	assert.Equal(t, "/root/ro.txt", res.Errors[1].Path)
	assert.Equal(t, KindWrite, res.Errors[1].Kind)
	assert.True(t, res.HasErrors())
}

func TestManager_ResultIsSnapshot(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager("rule0")

	mgr.Record(ctx, FileOutcome{Path: "a", Target: "a", Status: StatusWritten, Counts: map[string]int{"rule0": 1}, Replacements: 1})
	first := mgr.Result()
	first.PerRuleTotals["rule0"] = 100
	first.ModifiedPaths[0] = "changed"

	second := mgr.Result()
	assert.Equal(t, 1, second.PerRuleTotals["rule0"])
	assert.Equal(t, []string{"a"}, second.ModifiedPaths)
	assert.False(t, second.HasErrors())
}

func TestManager_RecordConcurrently(t *testing.T) {
	ctx := context.Background()
	mgr := newTestManager("rule0")

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("/root/%03d.txt", i)
			mgr.Record(ctx, FileOutcome{Path: path, Target: path, Status: StatusWritten, Counts: map[string]int{"rule0": 2}, Replacements: 2})
		}(i)
	}
	wg.Wait()

	res := mgr.Result()
	assert.Equal(t, 100, res.FilesScanned)
	assert.Equal(t, 100, res.FilesModified)
	assert.Equal(t, 200, res.PerRuleTotals["rule0"])
	assert.Len(t, res.ModifiedPaths, 100)
	assert.Equal(t, "/root/000.txt", res.ModifiedPaths[0])
}

func TestManager_WriteFileAtomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0755))

	mgr := newTestManager()
	require.NoError(t, mgr.WriteFileAtomic(ctx, path, []byte("new"), 0755))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm(), "mode should be preserved")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func TestManager_WriteFileAtomic_TargetIsDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	target := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0755))

	mgr := newTestManager()
	err := mgr.WriteFileAtomic(ctx, target, []byte("x"), 0644)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "renaming temp file")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be removed on failure")
}

func TestManager_ReadFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))

	mgr := newTestManager()
	content, perm, err := mgr.ReadFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(content))
	assert.Equal(t, os.FileMode(0600), perm)

	_, _, err = mgr.ReadFile(ctx, path+".missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestManager_BackupFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "src", "a.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0755))
	require.NoError(t, os.WriteFile(src, []byte("original"), 0640))

	backup := filepath.Join(dir, "backup", "src", "a.txt")
	mgr := newTestManager()
	require.NoError(t, mgr.BackupFile(ctx, src, backup))

	content, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "original", string(content))

	err = mgr.BackupFile(ctx, filepath.Join(dir, "missing.txt"), backup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checking file existence")
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusUnchanged, "unchanged"},
		{StatusWritten, "written"},
		{StatusPlanned, "planned"},
		{StatusUndecodable, "undecodable"},
		{StatusWriteError, "write_error"},
		{StatusReadError, "read_error"},
		{StatusUnknown, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
	assert.True(t, StatusWritten.IsModified())
	assert.True(t, StatusPlanned.IsModified())
	assert.False(t, StatusWriteError.IsModified())
}

func TestRenderSummary(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	res := &RunResult{
		RunID:         "run-1",
		Mode:          "tree",
		Root:          "/repo",
		FilesScanned:  4,
		FilesModified: 1,
		PerRuleTotals: map[string]int{"company": 7, "email": 0},
		RuleOrder:     []string{"company", "email"},
		ModifiedPaths: []string{"/repo/README.md"},
		Skipped:       []FileError{{Path: "/repo/logo.png", Kind: KindUndecodable, Message: "undecodable content"}},
		Errors:        []FileError{{Path: "/repo/ro.txt", Kind: KindWrite, Message: "permission denied"}},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, res))

	out := buf.String()
	assert.Contains(t, out, "scanned 4 files, modified 1")
	assert.Contains(t, out, "company")
	assert.Contains(t, out, "7")
	assert.Contains(t, out, "/repo/README.md")
	assert.Contains(t, out, "skipped and failed (2)")
	assert.Contains(t, out, "/repo/logo.png")
	assert.Contains(t, out, "permission denied")
}

func TestRenderSummary_DryRun(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	res := &RunResult{Mode: "tree", DryRun: true, FilesScanned: 1, FilesModified: 1, PerRuleTotals: map[string]int{}, ModifiedPaths: []string{"/a"}}

	var buf bytes.Buffer
	require.NoError(t, RenderSummary(&buf, res))
	assert.Contains(t, buf.String(), "would modify 1")
	assert.NotContains(t, buf.String(), "skipped and failed")
}

func TestWriteJSON(t *testing.T) {
	mgr := newTestManager("rule0")
	mgr.Record(context.Background(), FileOutcome{Path: "/root/a", Target: "/root/a", Status: StatusWritten, Counts: map[string]int{"rule0": 2}, Replacements: 2})

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, mgr.Result()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(1), decoded["files_modified"])
	assert.Equal(t, map[string]any{"rule0": float64(2)}, decoded["per_rule_totals"])
	assert.Equal(t, []any{"/root/a"}, decoded["modified_paths"])
	assert.Equal(t, []any{}, decoded["errors"])
}
