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

package text

import (
	"unicode/utf8"

	"gitlab.com/tozd/go/errors"
)

// ErrUndecodable is returned for content that is not valid UTF-8 text
var ErrUndecodable = errors.Base("undecodable content")

// 🔍 Decode returns content as a string if it is valid UTF-8.
// Binary files (images, archives, compiled objects) fail here and are never rewritten.
func Decode(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", errors.Errorf("%w: not valid utf-8", ErrUndecodable)
	}
	return string(content), nil
}
