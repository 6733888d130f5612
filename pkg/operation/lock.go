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
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"github.com/gofrs/flock"
	"gitlab.com/tozd/go/errors"
)

// lockPath returns the lock file guarding root. It lives outside the tree
// so locking never adds files to it.
func lockPath(dir, root string) string {
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(dir, "retext-"+hex.EncodeToString(sum[:])[:16]+".lock")
}

// 🔒 acquireLock takes the advisory lock for root without blocking
func acquireLock(dir, root string) (*flock.Flock, error) {
	path := lockPath(dir, root)
	fl := flock.New(path)

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, errors.Errorf("locking %s: %w", path, err)
	}
	if !acquired {
		return nil, errors.Errorf("%w: %s (lock file %s)", ErrLocked, root, path)
	}
	return fl, nil
}
