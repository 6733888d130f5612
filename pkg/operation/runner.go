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
	"golang.org/x/sync/errgroup"
)

// 🏃 runner executes per-file work with bounded concurrency
type runner struct {
	group *errgroup.Group
}

// 🏗️ newRunner creates a runner. A limit of 1 runs work inline.
func newRunner(limit int) *runner {
	if limit <= 1 {
		return &runner{}
	}
	g := &errgroup.Group{}
	g.SetLimit(limit)
	return &runner{group: g}
}

// 🏃 Go runs fn, blocking while the limit is reached
func (r *runner) Go(fn func()) {
	if r.group == nil {
		fn()
		return
	}
	r.group.Go(func() error {
		fn()
		return nil
	})
}

// ⏳ Wait blocks until all work has finished
func (r *runner) Wait() {
	if r.group == nil {
		return
	}
	_ = r.group.Wait()
}
